package server

import (
	"encoding/json"
	"net/http"

	"eco/internal/store"
	"eco/pkg/types"
)

type notificationsResponse struct {
	Items  []*types.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

// apiSession answers 401 for API calls without a valid bearer and 502 when the bearer
// could not be checked.
func (s *Service) apiSession(w http.ResponseWriter, r *http.Request) *types.Session {
	if err := sessionError(r.Context()); err != nil && bearerToken(r) != "" {
		writeError(w, http.StatusBadGateway, "Não foi possível verificar a sessão. Tente novamente.")
		return nil
	}

	session := sessionFromContext(r.Context())
	if session == nil || bearerToken(r) == "" {
		writeError(w, http.StatusUnauthorized, "Não autenticado.")
		return nil
	}
	return session
}

func (s *Service) handleAPINotificationsList(w http.ResponseWriter, r *http.Request) {
	session := s.apiSession(w, r)
	if session == nil {
		return
	}

	resp, err := s.loadNotifications(r, session)
	if err != nil {
		s.logger.WithError(err).Error("failed to list notifications")
		writeError(w, http.StatusBadGateway, "Não foi possível carregar as notificações.")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleAPINotificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	session := s.apiSession(w, r)
	if session == nil {
		return
	}

	var req types.MarkReadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo inválido.")
		return
	}
	if len(req.IDs) == 0 && !req.All {
		writeError(w, http.StatusBadRequest, "Informe ids ou all.")
		return
	}

	updated, err := s.deps.Notifications.MarkRead(r.Context(), session.UserID(), req.IDs, req.All)
	if err != nil {
		s.logger.WithError(err).Error("failed to mark notifications read")
		writeError(w, http.StatusBadGateway, "Não foi possível atualizar as notificações.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (s *Service) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	data := &NotificationsPageData{
		BasePageData: types.BasePageData{Title: "Notificações", Notice: r.URL.Query().Get("notice")},
	}

	resp, err := s.loadNotifications(r, session)
	if err != nil {
		s.logger.WithError(err).Error("failed to list notifications")
		data.Error = "Não foi possível carregar as notificações."
	} else {
		data.Items = resp.Items
		data.Unread = resp.Unread
	}

	s.render(w, r, "page.notifications", data)
}

func (s *Service) handlePostNotifications(w http.ResponseWriter, r *http.Request) {
	session := sessionFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, "/notificacoes", "Não foi possível ler o envio.")
		return
	}

	ids := r.Form["id"]
	all := r.FormValue("all") == "true"
	if len(ids) == 0 && !all {
		s.redirectWithError(w, r, "/notificacoes", "Nada selecionado.")
		return
	}

	if _, err := s.deps.Notifications.MarkRead(r.Context(), session.UserID(), ids, all); err != nil {
		s.logger.WithError(err).Error("failed to mark notifications read")
		s.redirectWithError(w, r, "/notificacoes", "Não foi possível atualizar agora.")
		return
	}

	http.Redirect(w, r, "/notificacoes", http.StatusSeeOther)
}

func (s *Service) loadNotifications(r *http.Request, session *types.Session) (*notificationsResponse, error) {
	items, err := s.deps.Notifications.NotificationsByUser(r.Context(), session.UserID(), store.NotificationListLimit)
	if err != nil {
		return nil, err
	}

	unread, err := s.deps.Notifications.UnreadCount(r.Context(), session.UserID())
	if err != nil {
		return nil, err
	}

	return &notificationsResponse{Items: items, Unread: unread}, nil
}
