package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"eco/internal/utils"
	"eco/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	onboardingTableName = table("onboarding_states")
	onboardingColumns   = utils.StructTagValues(types.OnboardingState{})
)

type OnboardingRepository struct {
	pool *pgxpool.Pool
}

func NewOnboardingRepository(pool *pgxpool.Pool) *OnboardingRepository {
	return &OnboardingRepository{pool: pool}
}

func (r *OnboardingRepository) State(ctx context.Context, userID string) (*types.OnboardingState, error) {
	query, args, err := psql().
		Select(onboardingColumns...).
		From(onboardingTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate onboarding state query: %w", err)
	}

	var state types.OnboardingState
	err = pgxscan.Get(ctx, r.pool, &state, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrOnboardingNotFound
		}
		return nil, fmt.Errorf("failed to fetch onboarding state: %w", err)
	}

	return &state, nil
}

// Save upserts the single onboarding row of a user. Only the columns set by update change
// on conflict.
func (r *OnboardingRepository) Save(ctx context.Context, userID string, update types.OnboardingUpdate) error {
	values := update.Values()
	values["user_id"] = userID
	values["updated_at"] = time.Now()

	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	row := make([]any, 0, len(columns))
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		row = append(row, values[col])
		if col != "user_id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	query, args, err := psql().
		Insert(onboardingTableName).
		Columns(columns...).
		Values(row...).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate save onboarding query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to save onboarding state")
}
