package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eco/internal/utils"
	"eco/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	profileTableName = table("profiles")
	profileColumns   = utils.StructTagValues(types.Profile{})
)

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Profile(ctx context.Context, userID string) (*types.Profile, error) {
	query, args, err := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile query: %w", err)
	}

	var profile types.Profile
	err = pgxscan.Get(ctx, r.pool, &profile, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return &profile, nil
}

// EnsureProfile creates the resident profile of a first time user and returns the stored row.
// Existing profiles are returned untouched.
func (r *ProfileRepository) EnsureProfile(ctx context.Context, userID, displayName string) (*types.Profile, error) {
	now := time.Now()

	query, args, err := psql().
		Insert(profileTableName).
		Columns("id", "display_name", "role", "created_at", "updated_at").
		Values(userID, nullable(strings.TrimSpace(displayName)), types.RoleResident, now, now).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ensure profile query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	return r.Profile(ctx, userID)
}

func (r *ProfileRepository) SetNeighborhood(ctx context.Context, userID, neighborhoodID string) error {
	return r.update(ctx, userID, map[string]any{"neighborhood_id": neighborhoodID}, "neighborhood")
}

func (r *ProfileRepository) SetAddress(ctx context.Context, userID string, address types.ProfileAddress) error {
	return r.update(ctx, userID, map[string]any{
		"address_line": nullable(strings.TrimSpace(address.AddressLine)),
		"address_ext":  nullable(strings.TrimSpace(address.AddressExt)),
	}, "address")
}

func (r *ProfileRepository) update(ctx context.Context, userID string, values map[string]any, what string) error {
	values["updated_at"] = time.Now()

	query, args, err := psql().
		Update(profileTableName).
		SetMap(values).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update profile %s query: %w", what, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrProfileNotFound
	}

	return nil
}

// DisplayNames maps user ids to display names. Users without a name are omitted.
func (r *ProfileRepository) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	query, args, err := psql().
		Select("id", "display_name").
		From(profileTableName).
		Where(sq.Eq{"id": userIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate display names query: %w", err)
	}

	var rows []struct {
		ID          string  `db:"id"`
		DisplayName *string `db:"display_name"`
	}
	err = pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch display names: %w", err)
	}

	for _, row := range rows {
		if name := utils.PtrString(row.DisplayName); name != "" {
			names[row.ID] = name
		}
	}

	return names, nil
}
