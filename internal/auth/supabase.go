package auth

import (
	"context"
	"fmt"
	"strings"

	"eco/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
	supauth "github.com/supabase-community/auth-go"
)

type SupabaseProvider struct {
	logger   *logrus.Logger
	client   supauth.Client
	profiles Profiles

	jwksCache *jwk.Cache
	jwksURL   string
}

func NewSupabaseProvider(logger *logrus.Logger, client supauth.Client, profiles Profiles, jwksCache *jwk.Cache, jwksURL string) *SupabaseProvider {
	return &SupabaseProvider{
		logger:    logger,
		client:    client,
		profiles:  profiles,
		jwksCache: jwksCache,
		jwksURL:   jwksURL,
	}
}

// JWKSURL is where a Supabase project publishes its signing keys.
func JWKSURL(supabaseURL string) string {
	return strings.TrimRight(supabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
}

func (p *SupabaseProvider) Authenticate(ctx context.Context, token string) (*types.Session, error) {
	if token == "" {
		return nil, types.ErrAuthRequired
	}

	set, err := p.jwksCache.Lookup(ctx, p.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}

	parsed, err := jwt.Parse([]byte(token), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		p.logger.WithError(err).Debug("rejected access token")
		return nil, types.ErrAuthRequired
	}

	userID, ok := parsed.Subject()
	if !ok || userID == "" {
		return nil, types.ErrAuthRequired
	}

	// email is optional
	var email string
	_ = parsed.Get("email", &email)

	profile, err := p.profiles.EnsureProfile(ctx, userID, displayNameFromEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return &types.Session{
		Token:   token,
		User:    &types.User{ID: userID, Email: email},
		Profile: profile,
	}, nil
}

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Token, error) {
	resp, err := p.client.SignInWithEmailPassword(email, password)
	if err != nil {
		p.logger.WithError(err).Info("sign in rejected")
		return nil, types.ErrAuthRequired
	}

	if resp.AccessToken == "" {
		return nil, types.ErrAuthRequired
	}

	return &Token{
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.ExpiresIn,
		UserID:      resp.User.ID.String(),
	}, nil
}

func displayNameFromEmail(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
