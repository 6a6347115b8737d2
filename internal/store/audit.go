package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eco/internal/utils"
	"eco/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

var auditTableName = table("audit_log")

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Record appends an entry to the audit log. The log is append only; there is no update
// or delete.
func (r *AuditRepository) Record(ctx context.Context, entry *types.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = utils.NanoID()
	}
	entry.CreatedAt = time.Now()

	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode audit meta: %w", err)
	}

	query, args, err := psql().
		Insert(auditTableName).
		Columns("id", "actor_id", "action", "target_type", "target_id", "meta", "created_at").
		Values(entry.ID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, meta, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate audit insert: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record audit entry")
}
