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
	payoutPeriodTableName = table("payout_periods")
	payoutPeriodColumns   = utils.StructTagValues(types.PayoutPeriod{})

	payoutTableName = table("payouts")
	payoutColumns   = utils.StructTagValues(types.Payout{})

	ledgerTableName = table("ledger_entries")
	ledgerColumns   = utils.StructTagValues(types.LedgerEntry{})

	adjustmentTableName = table("payout_adjustments")
	adjustmentColumns   = utils.StructTagValues(types.PayoutAdjustment{})
)

type PayoutRepository struct {
	pool *pgxpool.Pool
}

func NewPayoutRepository(pool *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{pool: pool}
}

func (r *PayoutRepository) Period(ctx context.Context, periodID string) (*types.PayoutPeriod, error) {
	query, args, err := psql().
		Select(payoutPeriodColumns...).
		From(payoutPeriodTableName).
		Where(sq.Eq{"id": periodID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payout period query: %w", err)
	}

	var period types.PayoutPeriod
	err = pgxscan.Get(ctx, r.pool, &period, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrPeriodNotFound
		}
		return nil, fmt.Errorf("failed to fetch payout period: %w", err)
	}

	return &period, nil
}

func (r *PayoutRepository) RecentPeriods(ctx context.Context, limit uint64) ([]*types.PayoutPeriod, error) {
	query, args, err := psql().
		Select(payoutPeriodColumns...).
		From(payoutPeriodTableName).
		OrderBy("period_start DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payout periods query: %w", err)
	}

	out := make([]*types.PayoutPeriod, 0)
	err = pgxscan.Select(ctx, r.pool, &out, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payout periods: %w", err)
	}

	return out, nil
}

func (r *PayoutRepository) Payouts(ctx context.Context, periodID string) ([]*types.Payout, error) {
	out := make([]*types.Payout, 0)
	err := r.selectByPeriod(ctx, &out, payoutTableName, payoutColumns, periodID)
	return out, utils.ErrorWrapOrNil(err, "failed to fetch payouts")
}

func (r *PayoutRepository) LedgerEntries(ctx context.Context, periodID string) ([]*types.LedgerEntry, error) {
	out := make([]*types.LedgerEntry, 0)
	err := r.selectByPeriod(ctx, &out, ledgerTableName, ledgerColumns, periodID)
	return out, utils.ErrorWrapOrNil(err, "failed to fetch ledger entries")
}

func (r *PayoutRepository) Adjustments(ctx context.Context, periodID string) ([]*types.PayoutAdjustment, error) {
	out := make([]*types.PayoutAdjustment, 0)
	err := r.selectByPeriod(ctx, &out, adjustmentTableName, adjustmentColumns, periodID)
	return out, utils.ErrorWrapOrNil(err, "failed to fetch payout adjustments")
}

func (r *PayoutRepository) selectByPeriod(ctx context.Context, dst any, tableName string, columns []string, periodID string) error {
	query, args, err := psql().
		Select(columns...).
		From(tableName).
		Where(sq.Eq{"period_id": periodID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate %s query: %w", tableName, err)
	}

	return pgxscan.Select(ctx, r.pool, dst, query, args...)
}
