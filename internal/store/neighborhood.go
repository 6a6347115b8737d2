package store

import (
	"context"
	"fmt"

	"eco/internal/utils"
	"eco/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	neighborhoodTableName = table("neighborhoods")
	neighborhoodColumns   = utils.StructTagValues(types.Neighborhood{})

	dropPointTableName = table("drop_points")
	dropPointColumns   = utils.StructTagValues(types.DropPoint{})
)

type NeighborhoodRepository struct {
	pool *pgxpool.Pool
}

func NewNeighborhoodRepository(pool *pgxpool.Pool) *NeighborhoodRepository {
	return &NeighborhoodRepository{pool: pool}
}

func (r *NeighborhoodRepository) Neighborhoods(ctx context.Context) ([]*types.Neighborhood, error) {
	query, args, err := psql().
		Select(neighborhoodColumns...).
		From(neighborhoodTableName).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate neighborhoods query: %w", err)
	}

	var out []*types.Neighborhood
	err = pgxscan.Select(ctx, r.pool, &out, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch neighborhoods: %w", err)
	}

	return out, nil
}

func (r *NeighborhoodRepository) DropPoints(ctx context.Context, neighborhoodID string) ([]*types.DropPoint, error) {
	builder := psql().
		Select(dropPointColumns...).
		From(dropPointTableName).
		Where(sq.Eq{"is_active": true}).
		OrderBy("name ASC")
	if neighborhoodID != "" {
		builder = builder.Where(sq.Eq{"neighborhood_id": neighborhoodID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate drop points query: %w", err)
	}

	var out []*types.DropPoint
	err = pgxscan.Select(ctx, r.pool, &out, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drop points: %w", err)
	}

	return out, nil
}

func (r *NeighborhoodRepository) DropPoint(ctx context.Context, id string) (*types.DropPoint, error) {
	query, args, err := psql().
		Select(dropPointColumns...).
		From(dropPointTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate drop point query: %w", err)
	}

	var dp types.DropPoint
	err = pgxscan.Get(ctx, r.pool, &dp, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("drop point %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch drop point: %w", err)
	}

	return &dp, nil
}

func (r *NeighborhoodRepository) UpsertNeighborhood(ctx context.Context, n *types.Neighborhood) error {
	query, args, err := psql().
		Insert(neighborhoodTableName).
		Columns("id", "name", "slug").
		Values(n.ID, n.Name, n.Slug).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert neighborhood query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert neighborhood")
}

func (r *NeighborhoodRepository) UpsertDropPoint(ctx context.Context, dp *types.DropPoint) error {
	query, args, err := psql().
		Insert(dropPointTableName).
		Columns("id", "neighborhood_id", "name", "address", "is_active").
		Values(dp.ID, dp.NeighborhoodID, dp.Name, dp.Address, dp.IsActive).
		Suffix("ON CONFLICT (id) DO UPDATE SET neighborhood_id = EXCLUDED.neighborhood_id, name = EXCLUDED.name, address = EXCLUDED.address, is_active = EXCLUDED.is_active").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert drop point query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert drop point")
}
