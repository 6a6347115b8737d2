package auth

import (
	"context"

	"eco/pkg/types"
)

// Provider resolves bearer tokens into sessions and exchanges credentials for tokens.
type Provider interface {
	Authenticate(ctx context.Context, token string) (*types.Session, error)
	SignIn(ctx context.Context, email, password string) (*Token, error)
}

type Token struct {
	AccessToken string
	ExpiresIn   int
	UserID      string
}

// Profiles loads the profile behind an authenticated user, creating it on first sight.
type Profiles interface {
	EnsureProfile(ctx context.Context, userID, displayName string) (*types.Profile, error)
}
