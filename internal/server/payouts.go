package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"eco/internal/export"
	"eco/internal/query"
	"eco/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const operatorPeriodsLimit = 12

func (s *Service) handleOperator(w http.ResponseWriter, r *http.Request) {
	data := &OperatorPageData{
		BasePageData: types.BasePageData{Title: "Operação"},
	}

	res := query.Do(r.Context(), func(ctx context.Context) ([]*types.PayoutPeriod, error) {
		return s.deps.Periods.RecentPeriods(ctx, operatorPeriodsLimit)
	})
	if res.Status == query.StatusError {
		s.logger.WithError(res.Err).Error("failed to load payout periods")
		data.Error = res.Message()
	}
	data.Periods = res.Data

	s.render(w, r, "page.operator", data)
}

func (s *Service) handleAPIPayoutsExport(w http.ResponseWriter, r *http.Request) {
	session := s.apiSession(w, r)
	if session == nil {
		return
	}

	if session.Profile == nil || session.Profile.Role != types.RoleOperator {
		writeError(w, http.StatusForbidden, "Apenas operadores podem exportar repasses.")
		return
	}

	periodID := r.URL.Query().Get("period_id")
	if _, err := uuid.Parse(periodID); err != nil {
		writeError(w, http.StatusBadRequest, "period_id inválido.")
		return
	}

	s.servePayoutExport(w, r, session.UserID(), periodID)
}

// handleOperatorExport is the cookie session twin of the API export, linked from the
// operator page. The gate already checked the role.
func (s *Service) handleOperatorExport(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	periodID := flow.Param(r.Context(), "id")
	if _, err := uuid.Parse(periodID); err != nil {
		writeError(w, http.StatusBadRequest, "period_id inválido.")
		return
	}

	s.servePayoutExport(w, r, session.UserID(), periodID)
}

func (s *Service) servePayoutExport(w http.ResponseWriter, r *http.Request, actorID, periodID string) {
	file, err := s.deps.Exporter.Export(r.Context(), actorID, periodID)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, "Período não encontrado.")
		return
	case errors.Is(err, export.ErrAudit):
		s.logger.WithError(err).WithField("period_id", periodID).Error("payout export aborted, audit write failed")
		writeError(w, http.StatusInternalServerError, "Não foi possível registrar a exportação.")
		return
	default:
		s.logger.WithError(err).WithField("period_id", periodID).Error("failed to export payouts")
		writeError(w, http.StatusBadGateway, "Não foi possível gerar o arquivo.")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"period_id": periodID,
		"user_id":   actorID,
		"rows":      file.Rows,
	}).Info("payouts exported")

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
