package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrCredentialAbsent   = fmt.Errorf("no credential supplied")
	ErrCredentialInvalid  = fmt.Errorf("credential rejected")
	ErrOutboxClosed       = fmt.Errorf("outbox closed")
	ErrOutboxFull         = fmt.Errorf("outbox full")
)
