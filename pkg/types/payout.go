package types

import "time"

type PayoutPeriod struct {
	ID          string    `db:"id"`
	PeriodStart time.Time `db:"period_start"`
	PeriodEnd   time.Time `db:"period_end"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

type Payout struct {
	ID          string     `db:"id"`
	PeriodID    string     `db:"period_id"`
	CooperadoID string     `db:"cooperado_id"`
	TotalCents  int64      `db:"total_cents"`
	Status      string     `db:"status"`
	PaidAt      *time.Time `db:"paid_at"`
}

type LedgerEntry struct {
	PeriodID    string  `db:"period_id"`
	CooperadoID string  `db:"cooperado_id"`
	AmountCents int64   `db:"amount_cents"`
	ReceiptID   *string `db:"receipt_id"`
}

type PayoutAdjustment struct {
	PeriodID    string  `db:"period_id"`
	CooperadoID string  `db:"cooperado_id"`
	AmountCents int64   `db:"amount_cents"`
	Reason      *string `db:"reason"`
}

type AuditEntry struct {
	ID         string         `db:"id"`
	ActorID    string         `db:"actor_id"`
	Action     string         `db:"action"`
	TargetType string         `db:"target_type"`
	TargetID   string         `db:"target_id"`
	Meta       map[string]any `db:"meta"`
	CreatedAt  time.Time      `db:"created_at"`
}

const AuditActionPayoutsExport = "payouts.export"
