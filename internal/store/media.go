package store

import (
	"context"
	"fmt"
	"time"

	"eco/internal/utils"
	"eco/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	mediaTableName = table("media_objects")
	mediaColumns   = utils.StructTagValues(types.MediaObject{})
)

type MediaRepository struct {
	pool *pgxpool.Pool
}

func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

func (r *MediaRepository) MediaByID(ctx context.Context, mediaID string) (*types.MediaObject, error) {
	query, args, err := psql().
		Select(mediaColumns...).
		From(mediaTableName).
		Where(sq.Eq{"id": mediaID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate media query: %w", err)
	}

	var obj types.MediaObject
	err = pgxscan.Get(ctx, r.pool, &obj, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to fetch media object: %w", err)
	}

	return &obj, nil
}

func (r *MediaRepository) MediaByEntity(ctx context.Context, entityType, entityID string) ([]*types.MediaObject, error) {
	query, args, err := psql().
		Select(mediaColumns...).
		From(mediaTableName).
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate entity media query: %w", err)
	}

	out := make([]*types.MediaObject, 0)
	err = pgxscan.Select(ctx, r.pool, &out, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entity media: %w", err)
	}

	return out, nil
}

// CanViewMedia defers to the eco.can_view_media database function, which applies the same
// policy as the storage bucket.
func (r *MediaRepository) CanViewMedia(ctx context.Context, viewerID, mediaID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, "SELECT eco.can_view_media($1, $2)", viewerID, mediaID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate media permission: %w", err)
	}
	return ok, nil
}

func (r *MediaRepository) CreateMedia(ctx context.Context, obj *types.MediaObject) error {
	if obj.ID == "" {
		obj.ID = utils.NanoID()
	}
	obj.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(mediaTableName).
		SetMap(utils.StructToMap(obj)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert media query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create media object")
}

func (r *MediaRepository) DeleteMedia(ctx context.Context, mediaID string) error {
	query, args, err := psql().
		Delete(mediaTableName).
		Where(sq.Eq{"id": mediaID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete media query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete media object")
}
