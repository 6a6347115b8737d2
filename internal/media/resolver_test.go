package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"eco/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, token string) (*types.Session, error) {
	if token != "good" {
		return nil, types.ErrAuthRequired
	}
	return &types.Session{Token: token, User: &types.User{ID: "viewer"}}, nil
}

type stubObjects struct {
	objs    map[string]*types.MediaObject
	visible map[string]bool
}

func (s *stubObjects) MediaByID(_ context.Context, id string) (*types.MediaObject, error) {
	obj, ok := s.objs[id]
	if !ok {
		return nil, types.ErrMediaNotFound
	}
	return obj, nil
}

func (s *stubObjects) MediaByEntity(_ context.Context, entityType, entityID string) ([]*types.MediaObject, error) {
	var out []*types.MediaObject
	for _, o := range s.objs {
		if o.EntityType == entityType && o.EntityID == entityID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubObjects) CanViewMedia(_ context.Context, viewerID, mediaID string) (bool, error) {
	return viewerID == "viewer" && s.visible[mediaID], nil
}

type stubSigner struct{ fail bool }

func (s stubSigner) SignURL(_ context.Context, bucket, path string, _ time.Duration) (string, error) {
	if s.fail {
		return "", errors.New("storage down")
	}
	return "https://storage/" + bucket + "/" + path + "?token=x", nil
}

func newObjects() *stubObjects {
	return &stubObjects{
		objs: map[string]*types.MediaObject{
			"m1": {ID: "m1", Bucket: "eco-private", Path: "receipts/r1/1.jpg", EntityType: "receipt", EntityID: "r1"},
			"m2": {ID: "m2", Bucket: "eco-private", Path: "receipts/r1/2.jpg", EntityType: "receipt", EntityID: "r1"},
		},
		visible: map[string]bool{"m1": true},
	}
}

func TestRemoteResolver_SignMedia(t *testing.T) {
	r := NewRemoteResolver(stubAuth{}, newObjects(), stubSigner{})
	fixed := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return fixed }

	signed, err := r.SignMedia(context.Background(), "good", "m1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://storage/eco-private/receipts/r1/1.jpg?token=x", signed.URL)
	assert.Equal(t, fixed.Add(time.Minute), signed.ExpiresAt)

	_, err = r.SignMedia(context.Background(), "good", "m2", time.Minute)
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = r.SignMedia(context.Background(), "good", "nope", time.Minute)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = r.SignMedia(context.Background(), "bad", "m1", time.Minute)
	assert.ErrorIs(t, err, types.ErrAuthRequired)
}

func TestRemoteResolver_SignEntityFiltersInvisible(t *testing.T) {
	r := NewRemoteResolver(stubAuth{}, newObjects(), stubSigner{})

	urls, err := r.SignEntity(context.Background(), "good", "receipt", "r1", time.Minute)
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, "m1", urls[0].MediaID)

	urls, err = r.SignEntity(context.Background(), "good", "receipt", "none", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestRemoteResolver_SignerFailureIsUpstream(t *testing.T) {
	r := NewRemoteResolver(stubAuth{}, newObjects(), stubSigner{fail: true})

	_, err := r.SignMedia(context.Background(), "good", "m1", time.Minute)
	assert.ErrorIs(t, err, types.ErrUpstream)
}
