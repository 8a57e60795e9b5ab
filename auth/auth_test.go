package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "aPerfectlyFine1Password"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrongPassword1", hash)
	req.NoError(err)
	req.False(match)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "password123"}, false},
		{"Username too short", RegisterRequest{"al", "password123"}, true},
		{"Username not alphanumeric", RegisterRequest{"alice!", "password123"}, true},
		{"Password too short", RegisterRequest{"alice", "pass1"}, true},
		{"Missing digit", RegisterRequest{"alice", "passwordonly"}, true},
		{"Missing letter", RegisterRequest{"alice", "1234567890"}, true},
		{"Password too long (edge case)", RegisterRequest{"alice", strings.Repeat("a", 72) + "1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", "alice", time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
	req.Equal("alice", claims.Username)
}

func TestTokenExpired(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", "alice", -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func TestResolver(t *testing.T) {
	req := require.New(t)
	resolver := NewTokenResolver()

	token, err := GenerateToken("user-42", "alice", time.Hour)
	req.NoError(err)

	// Given a valid credential, the resolver yields the identity
	identity, err := resolver.Resolve(token)
	req.NoError(err)
	req.Equal("user-42", identity.ID)
	req.Equal("alice", identity.DisplayName)

	// An absent or garbled credential is a typed failure
	_, err = resolver.Resolve("")
	req.Error(err)
	_, err = resolver.Resolve("not-a-token")
	req.Error(err)
}

// BenchmarkHashPassword measures the CPU/RAM impact of a registration.
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("a-long-password-for-bench-123")
	}
}
