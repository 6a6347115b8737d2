package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"eco/pkg/types"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

var payoutColumns = []string{
	"cooperado_id",
	"nome",
	"total_ledger",
	"total_ajustes",
	"total_pagamento",
	"status",
	"pago_em",
}

// Input carries everything read for one period.
type Input struct {
	Period      *types.PayoutPeriod
	Payouts     []*types.Payout
	Ledger      []*types.LedgerEntry
	Adjustments []*types.PayoutAdjustment
	Names       map[string]string
}

// CooperadoIDs lists every cooperado that appears in payouts, ledger or adjustments.
func (in Input) CooperadoIDs() []string {
	seen := make(map[string]struct{})
	for _, p := range in.Payouts {
		seen[p.CooperadoID] = struct{}{}
	}
	for _, l := range in.Ledger {
		seen[l.CooperadoID] = struct{}{}
	}
	for _, a := range in.Adjustments {
		seen[a.CooperadoID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BuildPayoutCSV renders one row per cooperado, ordered by cooperado id. Cooperados with
// ledger or adjustment rows but no payout row still get a line with an empty status.
func BuildPayoutCSV(in Input) []byte {
	ledger := make(map[string]int64)
	for _, l := range in.Ledger {
		ledger[l.CooperadoID] += l.AmountCents
	}

	adjustments := make(map[string]int64)
	for _, a := range in.Adjustments {
		adjustments[a.CooperadoID] += a.AmountCents
	}

	payouts := make(map[string]*types.Payout, len(in.Payouts))
	for _, p := range in.Payouts {
		payouts[p.CooperadoID] = p
	}

	var buf bytes.Buffer
	buf.Write(bom)
	writeRow(&buf, payoutColumns)

	for _, id := range in.CooperadoIDs() {
		var (
			total  int64
			status string
			paidAt string
		)
		if p, ok := payouts[id]; ok {
			total = p.TotalCents
			status = p.Status
			if p.PaidAt != nil {
				paidAt = p.PaidAt.UTC().Format(time.RFC3339)
			}
		} else {
			total = ledger[id] + adjustments[id]
		}

		writeRow(&buf, []string{
			id,
			in.Names[id],
			formatCents(ledger[id]),
			formatCents(adjustments[id]),
			formatCents(total),
			status,
			paidAt,
		})
	}

	return buf.Bytes()
}

// FileName is repasses_<start>_<end>.csv with dates as digits only.
func FileName(period *types.PayoutPeriod) string {
	return fmt.Sprintf("repasses_%s_%s.csv", period.PeriodStart.Format("20060102"), period.PeriodEnd.Format("20060102"))
}

func writeRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(Escape(f))
	}
	buf.WriteString("\r\n")
}

// Escape quotes a field holding a comma, quote or line break and doubles inner quotes.
func Escape(field string) string {
	if !strings.ContainsAny(field, ",\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
