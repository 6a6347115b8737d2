package export

import (
	"context"
	"errors"
	"fmt"

	"eco/pkg/types"

	"golang.org/x/sync/errgroup"
)

type Payouts interface {
	Period(ctx context.Context, periodID string) (*types.PayoutPeriod, error)
	Payouts(ctx context.Context, periodID string) ([]*types.Payout, error)
	LedgerEntries(ctx context.Context, periodID string) ([]*types.LedgerEntry, error)
	Adjustments(ctx context.Context, periodID string) ([]*types.PayoutAdjustment, error)
}

type Names interface {
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

type Auditor interface {
	Record(ctx context.Context, entry *types.AuditEntry) error
}

// ErrAudit marks a failed audit write. The file must not be handed out in that case.
var ErrAudit = errors.New("audit write failed")

type File struct {
	Name string
	Data []byte
	Rows int
}

type Exporter struct {
	payouts Payouts
	names   Names
	audit   Auditor
}

func NewExporter(payouts Payouts, names Names, audit Auditor) *Exporter {
	return &Exporter{payouts: payouts, names: names, audit: audit}
}

// Export builds the payout CSV of a period on behalf of actorID. Errors wrap
// types.ErrPeriodNotFound, types.ErrUpstream or ErrAudit.
func (e *Exporter) Export(ctx context.Context, actorID, periodID string) (*File, error) {
	period, err := e.payouts.Period(ctx, periodID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}

	in := Input{Period: period}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Payouts, err = e.payouts.Payouts(gctx, periodID)
		return err
	})
	g.Go(func() error {
		var err error
		in.Ledger, err = e.payouts.LedgerEntries(gctx, periodID)
		return err
	})
	g.Go(func() error {
		var err error
		in.Adjustments, err = e.payouts.Adjustments(gctx, periodID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}

	in.Names, err = e.names.DisplayNames(ctx, in.CooperadoIDs())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}

	file := &File{
		Name: FileName(period),
		Data: BuildPayoutCSV(in),
		Rows: len(in.CooperadoIDs()),
	}

	err = e.audit.Record(ctx, &types.AuditEntry{
		ActorID:    actorID,
		Action:     types.AuditActionPayoutsExport,
		TargetType: "payout_period",
		TargetID:   period.ID,
		Meta: map[string]any{
			"filename": file.Name,
			"rows":     file.Rows,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAudit, err)
	}

	return file, nil
}
