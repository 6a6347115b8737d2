package auth

import (
	"context"
	"strings"
	"testing"

	"eco/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtures = `
users:
  - token: tok-maria
    email: maria@example.com
    password: segredo
    profile:
      id: u-maria
      display_name: Maria
      neighborhood_id: n-centro
  - token: tok-op
    email: op@example.com
    password: admin
    profile:
      id: u-op
      role: operator
      neighborhood_id: n-centro
`

func TestFixtureProviderAuthenticate(t *testing.T) {
	p, err := NewFixtureProvider(strings.NewReader(fixtures))
	require.NoError(t, err)

	session, err := p.Authenticate(context.Background(), "tok-maria")
	require.NoError(t, err)
	assert.Equal(t, "u-maria", session.UserID())
	assert.Equal(t, types.RoleResident, session.Profile.Role)
	assert.True(t, session.Profile.HasNeighborhood())

	session, err = p.Authenticate(context.Background(), "tok-op")
	require.NoError(t, err)
	assert.Equal(t, types.RoleOperator, session.Profile.Role)

	_, err = p.Authenticate(context.Background(), "nope")
	assert.ErrorIs(t, err, types.ErrAuthRequired)

	_, err = p.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrAuthRequired)
}

func TestFixtureProviderSignIn(t *testing.T) {
	p, err := NewFixtureProvider(strings.NewReader(fixtures))
	require.NoError(t, err)

	tok, err := p.SignIn(context.Background(), "maria@example.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, "tok-maria", tok.AccessToken)
	assert.Equal(t, "u-maria", tok.UserID)

	_, err = p.SignIn(context.Background(), "maria@example.com", "errada")
	assert.ErrorIs(t, err, types.ErrAuthRequired)
}

func TestFixtureProviderRejectsBadRole(t *testing.T) {
	_, err := NewFixtureProvider(strings.NewReader(`
users:
  - token: t
    email: x@example.com
    profile:
      id: u
      role: admin
`))
	assert.Error(t, err)
}

func TestDisplayNameFromEmail(t *testing.T) {
	assert.Equal(t, "maria", displayNameFromEmail("maria@example.com"))
	assert.Equal(t, "", displayNameFromEmail(""))
}

type stubProfiles struct {
	profile *types.Profile
}

func (s *stubProfiles) EnsureProfile(_ context.Context, userID, _ string) (*types.Profile, error) {
	p := *s.profile
	p.ID = userID
	return &p, nil
}

func TestFixtureProviderWithProfiles(t *testing.T) {
	p, err := NewFixtureProvider(strings.NewReader(fixtures))
	require.NoError(t, err)

	stored := &types.Profile{Role: types.RoleCooperado}
	p.WithProfiles(&stubProfiles{profile: stored})

	session, err := p.Authenticate(context.Background(), "tok-maria")
	require.NoError(t, err)
	assert.Equal(t, "u-maria", session.Profile.ID)
	assert.Equal(t, types.RoleCooperado, session.Profile.Role)
	assert.False(t, session.Profile.HasNeighborhood())
}
