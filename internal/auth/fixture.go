package auth

import (
	"context"
	"fmt"
	"io"
	"os"

	"eco/pkg/types"

	"gopkg.in/yaml.v3"
)

// FixtureUser is one entry of the fixture file. The token doubles as the bearer.
type FixtureUser struct {
	Token    string        `yaml:"token"`
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Profile  types.Profile `yaml:"profile"`
}

type fixtureFile struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureProvider serves users from a YAML file for local development and demos.
type FixtureProvider struct {
	byToken  map[string]FixtureUser
	byEmail  map[string]FixtureUser
	profiles Profiles
}

// WithProfiles makes the provider read profiles from the database, so onboarding changes
// stick. The fixture profile only names the user.
func (p *FixtureProvider) WithProfiles(profiles Profiles) *FixtureProvider {
	p.profiles = profiles
	return p
}

func LoadFixtureProvider(path string) (*FixtureProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open auth fixtures: %w", err)
	}
	defer f.Close()

	return NewFixtureProvider(f)
}

func NewFixtureProvider(r io.Reader) (*FixtureProvider, error) {
	var file fixtureFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode auth fixtures: %w", err)
	}

	p := &FixtureProvider{
		byToken: make(map[string]FixtureUser, len(file.Users)),
		byEmail: make(map[string]FixtureUser, len(file.Users)),
	}
	for _, u := range file.Users {
		if u.Token == "" || u.Profile.ID == "" {
			return nil, fmt.Errorf("fixture user %q needs a token and a profile id", u.Email)
		}
		if u.Profile.Role == "" {
			u.Profile.Role = types.RoleResident
		}
		if !u.Profile.Role.Valid() {
			return nil, fmt.Errorf("fixture user %q has unknown role %q", u.Email, u.Profile.Role)
		}
		p.byToken[u.Token] = u
		p.byEmail[u.Email] = u
	}

	return p, nil
}

func (p *FixtureProvider) Authenticate(ctx context.Context, token string) (*types.Session, error) {
	u, ok := p.byToken[token]
	if !ok || token == "" {
		return nil, types.ErrAuthRequired
	}

	profile := &u.Profile
	if p.profiles != nil {
		stored, err := p.profiles.EnsureProfile(ctx, u.Profile.ID, displayNameFromEmail(u.Email))
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		profile = stored
	}

	return &types.Session{
		Token:   token,
		User:    &types.User{ID: u.Profile.ID, Email: u.Email},
		Profile: profile,
	}, nil
}

func (p *FixtureProvider) SignIn(_ context.Context, email, password string) (*Token, error) {
	u, ok := p.byEmail[email]
	if !ok || u.Password != password {
		return nil, types.ErrAuthRequired
	}

	return &Token{AccessToken: u.Token, ExpiresIn: 3600, UserID: u.Profile.ID}, nil
}
