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
	notificationTableName = table("notifications")
	notificationColumns   = utils.StructTagValues(types.Notification{})
)

const NotificationListLimit = 20

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// NotificationsByUser returns up to limit notifications, unread first and then newest first.
func (r *NotificationRepository) NotificationsByUser(ctx context.Context, userID string, limit uint64) ([]*types.Notification, error) {
	query, args, err := psql().
		Select(notificationColumns...).
		From(notificationTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("is_read ASC", "created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate notifications query: %w", err)
	}

	out := make([]*types.Notification, 0)
	err = pgxscan.Select(ctx, r.pool, &out, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return out, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query, args, err := psql().
		Select("count(*)").
		From(notificationTableName).
		Where(sq.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate unread count query: %w", err)
	}

	var count int
	err = r.pool.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead flags the caller's notifications as read. With all set, ids are ignored. Rows
// of other users are never touched.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, ids []string, all bool) (int64, error) {
	builder := psql().
		Update(notificationTableName).
		Set("is_read", true).
		Where(sq.Eq{"user_id": userID, "is_read": false})
	if !all {
		if len(ids) == 0 {
			return 0, nil
		}
		builder = builder.Where(sq.Eq{"id": ids})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate mark read query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return tag.RowsAffected(), nil
}
