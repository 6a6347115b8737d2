package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"eco/internal/utils"
	"eco/pkg/types"
)

func (s *Service) render(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	s.renderStatus(w, r, http.StatusOK, templateName, data)
}

// renderStatus executes into a buffer first so a failing template never leaves a half
// written page behind.
func (s *Service) renderStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	if setter, ok := data.(types.NavbarDataSetter); ok {
		setter.SetNavbarData(navbarData(sessionFromContext(r.Context())))
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.WithError(err).WithField("template", templateName).Error("failed to render template")
		s.internalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func navbarData(session *types.Session) types.NavbarData {
	if session == nil || session.User == nil {
		return types.NavbarData{}
	}

	nav := types.NavbarData{
		IsAuthenticated: true,
		UserID:          session.User.ID,
		UserEmail:       session.User.Email,
	}
	if p := session.Profile; p != nil {
		nav.UserName = utils.PtrString(p.DisplayName)
		nav.IsCooperado = p.Role == types.RoleCooperado || p.Role == types.RoleOperator
		nav.IsOperator = p.Role == types.RoleOperator
	}
	return nav
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
