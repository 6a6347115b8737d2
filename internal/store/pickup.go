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
	pickupTableName = table("pickup_requests")
	pickupColumns   = utils.StructTagValues(types.PickupRequest{})

	receiptTableName = table("receipts")
	receiptColumns   = utils.StructTagValues(types.Receipt{})

	recurrenceTableName = table("recurrence_subscriptions")
	recurrenceColumns   = utils.StructTagValues(types.RecurrenceSubscription{})
)

type PickupRepository struct {
	pool *pgxpool.Pool
}

func NewPickupRepository(pool *pgxpool.Pool) *PickupRepository {
	return &PickupRepository{pool: pool}
}

func (r *PickupRepository) CreatePickup(ctx context.Context, req *types.PickupRequest) error {
	if req.ID == "" {
		req.ID = utils.NanoID()
	}
	now := time.Now()
	req.Status = types.PickupStatusOpen
	req.CreatedAt = now
	req.UpdatedAt = now

	query, args, err := psql().
		Insert(pickupTableName).
		SetMap(utils.StructToMap(req)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert pickup query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create pickup request")
}

func (r *PickupRepository) PickupsByResident(ctx context.Context, residentID string) ([]*types.PickupRequest, error) {
	return r.selectPickups(ctx, sq.Eq{"resident_id": residentID})
}

// OpenPickupsInNeighborhood lists the requests a cooperado can still accept.
func (r *PickupRepository) OpenPickupsInNeighborhood(ctx context.Context, neighborhoodID string) ([]*types.PickupRequest, error) {
	return r.selectPickups(ctx, sq.Eq{"neighborhood_id": neighborhoodID, "status": types.PickupStatusOpen})
}

func (r *PickupRepository) selectPickups(ctx context.Context, where sq.Eq) ([]*types.PickupRequest, error) {
	query, args, err := psql().
		Select(pickupColumns...).
		From(pickupTableName).
		Where(where).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pickups query: %w", err)
	}

	out := make([]*types.PickupRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &out, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pickups: %w", err)
	}

	return out, nil
}

// TransitionPickup asks the database to move a request to its next status. The allowed
// transitions are enforced by eco.rpc_transition_pickup.
func (r *PickupRepository) TransitionPickup(ctx context.Context, requestID string, next types.PickupStatus) error {
	_, err := r.pool.Exec(ctx, "SELECT eco.rpc_transition_pickup($1, $2)", requestID, string(next))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return types.ErrPickupNotFound
		}
		return fmt.Errorf("failed to transition pickup: %w", err)
	}
	return nil
}

func (r *PickupRepository) Receipt(ctx context.Context, receiptID string) (*types.Receipt, error) {
	query, args, err := psql().
		Select(receiptColumns...).
		From(receiptTableName).
		Where(sq.Eq{"id": receiptID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt query: %w", err)
	}

	var receipt types.Receipt
	err = pgxscan.Get(ctx, r.pool, &receipt, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}

	return &receipt, nil
}

func (r *PickupRepository) Recurrence(ctx context.Context, userID string) (*types.RecurrenceSubscription, error) {
	query, args, err := psql().
		Select(recurrenceColumns...).
		From(recurrenceTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate recurrence query: %w", err)
	}

	var sub types.RecurrenceSubscription
	err = pgxscan.Get(ctx, r.pool, &sub, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch recurrence: %w", err)
	}

	return &sub, nil
}

func (r *PickupRepository) SaveRecurrence(ctx context.Context, userID string, weekday int, active bool) error {
	now := time.Now()

	query, args, err := psql().
		Insert(recurrenceTableName).
		Columns("user_id", "weekday", "is_active", "created_at", "updated_at").
		Values(userID, weekday, active, now, now).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET weekday = EXCLUDED.weekday, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate save recurrence query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to save recurrence")
}
