package server

import (
	"errors"
	"net/http"
	"strconv"

	"eco/internal/media"
	"eco/pkg/types"
)

type signedURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

type signedURLItem struct {
	MediaID   string `json:"media_id"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

func (s *Service) handleAPISignedURL(w http.ResponseWriter, r *http.Request) {
	session := s.apiSession(w, r)
	if session == nil {
		return
	}

	q := r.URL.Query()
	opts := media.Options{ForceRefresh: q.Get("force") == "1"}
	if raw := q.Get("expires_in"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expires_in inválido.")
			return
		}
		opts.ExpiresIn = n
	}

	if mediaID := q.Get("media_id"); mediaID != "" {
		signed, err := s.deps.MediaURLs.URLForMedia(r.Context(), session.Token, mediaID, opts)
		if err != nil {
			s.writeMediaError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, signedURLResponse{URL: signed.URL, ExpiresAt: formatExpiry(signed)})
		return
	}

	entityType, entityID := q.Get("entity_type"), q.Get("entity_id")
	if entityType == "" || entityID == "" {
		writeError(w, http.StatusBadRequest, "Informe media_id ou entity_type e entity_id.")
		return
	}

	signed, err := s.deps.MediaURLs.URLsForEntity(r.Context(), session.Token, entityType, entityID, opts)
	if err != nil {
		s.writeMediaError(w, err)
		return
	}

	items := make([]signedURLItem, 0, len(signed))
	for _, u := range signed {
		items = append(items, signedURLItem{MediaID: u.MediaID, URL: u.URL, ExpiresAt: formatExpiry(u)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func formatExpiry(u *types.SignedURL) string {
	return u.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")
}

func (s *Service) writeMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, "Não autenticado.")
	case errors.Is(err, types.ErrForbidden):
		writeError(w, http.StatusForbidden, "Sem permissão para esta mídia.")
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, "Mídia não encontrada.")
	default:
		s.logger.WithError(err).Error("failed to sign media url")
		writeError(w, http.StatusBadGateway, "Não foi possível gerar o link.")
	}
}
