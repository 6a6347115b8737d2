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
	postTableName = table("posts")
	postColumns   = utils.StructTagValues(types.Post{})

	transparencyViewName = table("v_transparency_summary")
	transparencyColumns  = utils.StructTagValues(types.TransparencySummary{})
)

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

// RecentPosts returns the newest mural posts. An empty neighborhoodID lists every neighborhood.
func (r *PostRepository) RecentPosts(ctx context.Context, neighborhoodID string, limit uint64) ([]*types.Post, error) {
	builder := psql().
		Select(postColumns...).
		From(postTableName).
		OrderBy("created_at DESC").
		Limit(limit)
	if neighborhoodID != "" {
		builder = builder.Where(sq.Or{
			sq.Eq{"neighborhood_id": neighborhoodID},
			sq.Eq{"neighborhood_id": nil},
		})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate posts query: %w", err)
	}

	out := make([]*types.Post, 0)
	err = pgxscan.Select(ctx, r.pool, &out, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}

	return out, nil
}

func (r *PostRepository) CreatePost(ctx context.Context, post *types.Post) error {
	if post.ID == "" {
		post.ID = utils.NanoID()
	}
	post.CreatedAt = time.Now()

	query, args, err := psql().
		Insert(postTableName).
		SetMap(utils.StructToMap(post)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert post query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create post")
}

func (r *PostRepository) TransparencySummary(ctx context.Context) (*types.TransparencyReport, error) {
	query, args, err := psql().
		Select(transparencyColumns...).
		From(transparencyViewName).
		OrderBy("neighborhood_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transparency query: %w", err)
	}

	items := make([]*types.TransparencySummary, 0)
	err = pgxscan.Select(ctx, r.pool, &items, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transparency summary: %w", err)
	}

	return &types.TransparencyReport{Items: items}, nil
}
