package media

import (
	"context"
	"fmt"
	"time"

	"eco/pkg/types"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*types.Session, error)
}

type Objects interface {
	MediaByID(ctx context.Context, mediaID string) (*types.MediaObject, error)
	MediaByEntity(ctx context.Context, entityType, entityID string) ([]*types.MediaObject, error)
	CanViewMedia(ctx context.Context, viewerID, mediaID string) (bool, error)
}

// Signer issues a download URL for one object in a private bucket.
type Signer interface {
	SignURL(ctx context.Context, bucket, path string, expiry time.Duration) (string, error)
}

// RemoteResolver authenticates the bearer, checks the viewer may see each object and signs
// it with the configured storage backend.
type RemoteResolver struct {
	auth    Authenticator
	objects Objects
	signer  Signer
	now     func() time.Time
}

func NewRemoteResolver(auth Authenticator, objects Objects, signer Signer) *RemoteResolver {
	return &RemoteResolver{auth: auth, objects: objects, signer: signer, now: time.Now}
}

func (r *RemoteResolver) SignMedia(ctx context.Context, token, mediaID string, expiry time.Duration) (*types.SignedURL, error) {
	session, err := r.session(ctx, token)
	if err != nil {
		return nil, err
	}

	obj, err := r.objects.MediaByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	ok, err := r.objects.CanViewMedia(ctx, session.UserID(), obj.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check media permission: %w", err)
	}
	if !ok {
		return nil, types.ErrForbidden
	}

	return r.sign(ctx, obj, expiry)
}

func (r *RemoteResolver) SignEntity(ctx context.Context, token, entityType, entityID string, expiry time.Duration) ([]*types.SignedURL, error) {
	session, err := r.session(ctx, token)
	if err != nil {
		return nil, err
	}

	objs, err := r.objects.MediaByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	out := make([]*types.SignedURL, 0, len(objs))
	for _, obj := range objs {
		ok, err := r.objects.CanViewMedia(ctx, session.UserID(), obj.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check media permission: %w", err)
		}
		if !ok {
			continue
		}

		signed, err := r.sign(ctx, obj, expiry)
		if err != nil {
			return nil, err
		}
		out = append(out, signed)
	}

	if len(objs) > 0 && len(out) == 0 {
		return nil, types.ErrForbidden
	}

	return out, nil
}

func (r *RemoteResolver) session(ctx context.Context, token string) (*types.Session, error) {
	if token == "" {
		return nil, types.ErrAuthRequired
	}

	session, err := r.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.UserID() == "" {
		return nil, types.ErrAuthRequired
	}

	return session, nil
}

func (r *RemoteResolver) sign(ctx context.Context, obj *types.MediaObject, expiry time.Duration) (*types.SignedURL, error) {
	issued := r.now()

	url, err := r.signer.SignURL(ctx, obj.Bucket, obj.Path, expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: sign %s: %v", types.ErrUpstream, obj.ID, err)
	}

	return &types.SignedURL{MediaID: obj.ID, URL: url, ExpiresAt: issued.Add(expiry)}, nil
}
