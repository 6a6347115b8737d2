package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"eco/internal/query"
	"eco/pkg/types"

	"github.com/alexedwards/flow"
)

var pickupMaterials = []string{"papel", "plastico", "vidro", "metal", "eletronicos", "oleo"}

var weekdays = []string{"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

// nextPickupStatus is what a cooperado may ask for from each status. The database still
// has the final word.
var nextPickupStatus = map[types.PickupStatus]types.PickupStatus{
	types.PickupStatusOpen:     types.PickupStatusAccepted,
	types.PickupStatusAccepted: types.PickupStatusEnRoute,
	types.PickupStatusEnRoute:  types.PickupStatusCollected,
}

func (s *Service) handleGetPickupForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "page.pickup.form", &PickupFormPageData{
		BasePageData: types.BasePageData{Title: "Pedir coleta", Error: r.URL.Query().Get("error")},
		Materials:    pickupMaterials,
	})
}

func (s *Service) handlePostPickupForm(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, "/pedir-coleta", "Não foi possível ler o pedido.")
		return
	}

	var pickupForm types.PickupForm
	if err := decoder.Decode(&pickupForm, r.Form); err != nil {
		s.logger.WithError(err).Error("failed to decode pickup form")
		s.redirectWithError(w, r, "/pedir-coleta", "Não foi possível ler o pedido.")
		return
	}

	materials := make([]string, 0, len(pickupForm.Materials))
	for _, m := range pickupForm.Materials {
		if contains(pickupMaterials, m) {
			materials = append(materials, m)
		}
	}
	if len(materials) == 0 {
		s.redirectWithError(w, r, "/pedir-coleta", "Escolha ao menos um material.")
		return
	}

	req := &types.PickupRequest{
		ResidentID:     session.UserID(),
		NeighborhoodID: *session.Profile.NeighborhoodID,
		Materials:      materials,
	}
	if notes := strings.TrimSpace(pickupForm.Notes); notes != "" {
		req.Notes = &notes
	}

	if err := s.deps.Pickups.CreatePickup(r.Context(), req); err != nil {
		s.logger.WithError(err).Error("failed to create pickup request")
		s.redirectWithError(w, r, "/pedir-coleta", "Não foi possível registrar o pedido agora.")
		return
	}

	s.redirectWithNotice(w, r, "/pedidos", "Pedido registrado. Avisaremos quando um cooperado aceitar.")
}

func (s *Service) handleMyPickups(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	data := &PickupsPageData{
		BasePageData: types.BasePageData{Title: "Meus pedidos", Notice: r.URL.Query().Get("notice")},
	}

	res := query.Do(r.Context(), func(ctx context.Context) ([]*types.PickupRequest, error) {
		return s.deps.Pickups.PickupsByResident(ctx, session.UserID())
	})
	if res.Status == query.StatusError {
		s.logger.WithError(res.Err).Error("failed to load pickups")
		data.Error = res.Message()
	}
	data.Pickups = res.Data

	s.render(w, r, "page.pickups", data)
}

func (s *Service) handleGetRecurrence(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	data := &RecurrencePageData{
		BasePageData: types.BasePageData{
			Title:  "Coleta recorrente",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
		Weekdays: weekdays,
	}

	res := query.Do(r.Context(), func(ctx context.Context) (*types.RecurrenceSubscription, error) {
		return s.deps.Pickups.Recurrence(ctx, session.UserID())
	})
	if res.Status == query.StatusError {
		s.logger.WithError(res.Err).Error("failed to load recurrence")
		data.Error = res.Message()
	}
	data.Subscription = res.Data

	s.render(w, r, "page.recurrence", data)
}

func (s *Service) handlePostRecurrence(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	weekday, err := strconv.Atoi(r.FormValue("weekday"))
	if err != nil || weekday < 0 || weekday > 6 {
		s.redirectWithError(w, r, "/recorrencia", "Escolha um dia da semana.")
		return
	}
	active := r.FormValue("active") != "false"

	if err := s.deps.Pickups.SaveRecurrence(r.Context(), session.UserID(), weekday, active); err != nil {
		s.logger.WithError(err).Error("failed to save recurrence")
		s.redirectWithError(w, r, "/recorrencia", "Não foi possível salvar agora.")
		return
	}

	notice := "Coleta recorrente ativada."
	if !active {
		notice = "Coleta recorrente pausada."
	}
	s.redirectWithNotice(w, r, "/recorrencia", notice)
}

func (s *Service) handleCooperado(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())
	neighborhoodID := *session.Profile.NeighborhoodID

	data := &CooperadoPageData{
		BasePageData: types.BasePageData{
			Title:  "Pedidos do bairro",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
	}

	res := query.Do(r.Context(), func(ctx context.Context) ([]*types.PickupRequest, error) {
		return s.deps.Pickups.OpenPickupsInNeighborhood(ctx, neighborhoodID)
	})
	if res.Status == query.StatusError {
		s.logger.WithError(res.Err).Error("failed to load open pickups")
		data.Error = res.Message()
	}
	data.Pickups = res.Data

	s.render(w, r, "page.cooperado", data)
}

func (s *Service) handlePostCooperadoTransition(w http.ResponseWriter, r *http.Request) {
	requestID := flow.Param(r.Context(), "id")
	current := types.PickupStatus(r.FormValue("status"))

	next, ok := nextPickupStatus[current]
	if !ok {
		s.redirectWithError(w, r, "/cooperado", "Este pedido já foi concluído.")
		return
	}

	err := s.deps.Pickups.TransitionPickup(r.Context(), requestID, next)
	switch {
	case errors.Is(err, types.ErrNotFound):
		s.redirectWithError(w, r, "/cooperado", "Pedido não encontrado.")
		return
	case err != nil:
		s.logger.WithError(err).WithField("pickup_id", requestID).Error("failed to transition pickup")
		s.redirectWithError(w, r, "/cooperado", "Não foi possível atualizar o pedido.")
		return
	}

	s.redirectWithNotice(w, r, "/cooperado", "Pedido atualizado.")
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, target, notice string) {
	v := url.Values{}
	v.Set("notice", notice)
	http.Redirect(w, r, target+"?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, target, msg string) {
	v := url.Values{}
	v.Set("error", msg)
	http.Redirect(w, r, target+"?"+v.Encode(), http.StatusSeeOther)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
