package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"eco/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeriod() *types.PayoutPeriod {
	return &types.PayoutPeriod{
		ID:          "8a6e0804-2bd0-4672-b79d-d97027f9071a",
		PeriodStart: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `"Doe, Jane"`, Escape("Doe, Jane"))
	assert.Equal(t, `"diz ""oi"""`, Escape(`diz "oi"`))
	assert.Equal(t, "\"a\nb\"", Escape("a\nb"))
	assert.Equal(t, "plain", Escape("plain"))
	assert.Equal(t, "", Escape(""))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.34", formatCents(1234))
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "0.00", formatCents(0))
	assert.Equal(t, "-3.50", formatCents(-350))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "repasses_20260901_20260930.csv", FileName(testPeriod()))
}

func TestBuildPayoutCSV(t *testing.T) {
	paid := time.Date(2026, 10, 5, 14, 30, 0, 0, time.UTC)
	reason := "bonus"

	in := Input{
		Period: testPeriod(),
		Payouts: []*types.Payout{
			{CooperadoID: "c2", TotalCents: 5000, Status: "pending"},
			{CooperadoID: "c1", TotalCents: 1234, Status: "paid", PaidAt: &paid},
		},
		Ledger: []*types.LedgerEntry{
			{CooperadoID: "c1", AmountCents: 1000},
			{CooperadoID: "c1", AmountCents: 134},
			{CooperadoID: "c2", AmountCents: 5000},
		},
		Adjustments: []*types.PayoutAdjustment{
			{CooperadoID: "c1", AmountCents: 100, Reason: &reason},
		},
		Names: map[string]string{"c1": "Doe, Jane", "c2": "Zé"},
	}

	out := BuildPayoutCSV(in)
	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))

	lines := strings.Split(strings.TrimSuffix(string(out[3:]), "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "cooperado_id,nome,total_ledger,total_ajustes,total_pagamento,status,pago_em", lines[0])
	assert.Equal(t, `c1,"Doe, Jane",11.34,1.00,12.34,paid,2026-10-05T14:30:00Z`, lines[1])
	assert.Equal(t, "c2,Zé,50.00,0.00,50.00,pending,", lines[2])
}

func TestBuildPayoutCSVIsOrderIndependent(t *testing.T) {
	a := Input{
		Payouts: []*types.Payout{{CooperadoID: "b"}, {CooperadoID: "a"}},
		Ledger:  []*types.LedgerEntry{{CooperadoID: "a", AmountCents: 1}, {CooperadoID: "b", AmountCents: 2}},
	}
	b := Input{
		Payouts: []*types.Payout{{CooperadoID: "a"}, {CooperadoID: "b"}},
		Ledger:  []*types.LedgerEntry{{CooperadoID: "b", AmountCents: 2}, {CooperadoID: "a", AmountCents: 1}},
	}

	assert.Equal(t, BuildPayoutCSV(a), BuildPayoutCSV(b))
}

func TestBuildPayoutCSVLedgerOnlyCooperado(t *testing.T) {
	out := BuildPayoutCSV(Input{
		Ledger:      []*types.LedgerEntry{{CooperadoID: "c9", AmountCents: 700}},
		Adjustments: []*types.PayoutAdjustment{{CooperadoID: "c9", AmountCents: -200}},
	})

	assert.Contains(t, string(out), "c9,,7.00,-2.00,5.00,,\r\n")
}
