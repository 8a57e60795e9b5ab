package services

import (
	"fmt"
	"time"

	"courier/auth"
	"courier/errors"
	"courier/repositories"
)

type IAuthService interface {
	Login(username, password string) (Session, error)
	Register(username, password string) (Session, error)
}

// Session is what a successful login or registration yields: the user id
// for the response body and the signed token for the cookie.
type Session struct {
	UserID string
	Token  string
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokenDuration  time.Duration
}

func NewAuthService(repo repositories.IUserRepository, tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(username, password string) (Session, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Password: password,
	}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hash in the service layer to keep the repository unaware of plain
	// passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(username, hashedPassword)
	if err != nil {
		return Session{}, err // Propagates ErrUserAlreadyExists when taken
	}

	token, err := auth.GenerateToken(userID, username, s.tokenDuration)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}

	return Session{UserID: userID, Token: token}, nil
}

func (s *AuthService) Login(username, password string) (Session, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.tokenDuration)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}

	return Session{UserID: user.ID, Token: token}, nil
}
