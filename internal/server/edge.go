package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"eco/internal"
	"eco/pkg/types"
)

func (s *Service) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if !s.config.IsProduction() {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
		return
	}

	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") == "http" {
		scheme = "http"
	}
	_, _ = fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s://%s/sitemap.xml\n", scheme, r.Host)
}

// StagingGate keeps staging deployments behind a shared password. Static assets and
// robots.txt stay reachable so the password page renders and crawlers read the disallow.
func (s *Service) StagingGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.IsStaging() || s.config.StagingPassword == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Path == "/robots.txt" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		if s.hasStagingCookie(r) {
			next.ServeHTTP(w, r)
			return
		}

		supplied := r.Header.Get(internal.HEADER_STAGING_PASSWORD)
		if supplied == "" {
			supplied = r.URL.Query().Get(internal.QUERY_STAGING_PASSWORD)
		}

		if supplied != "" && s.stagingPasswordMatches(supplied) {
			s.setStagingCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		s.renderStatus(w, r, http.StatusUnauthorized, "page.staging", &StagingPageData{
			BasePageData: types.BasePageData{Title: "Ambiente de testes"},
			Action:       r.URL.Path,
			Failed:       supplied != "",
		})
	})
}

func (s *Service) stagingPasswordMatches(supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.config.StagingPassword)) == 1
}

func (s *Service) hasStagingCookie(r *http.Request) bool {
	cookie, err := r.Cookie(internal.COOKIE_STAGING_NAME)
	if err != nil {
		return false
	}

	var granted bool
	err = s.stagingCookie.Decode(internal.COOKIE_STAGING_NAME, cookie.Value, &granted)
	return err == nil && granted
}

func (s *Service) setStagingCookie(w http.ResponseWriter) {
	encoded, err := s.stagingCookie.Encode(internal.COOKIE_STAGING_NAME, true)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode staging cookie")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_STAGING_NAME,
		Value:    encoded,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(stagingCookieAge.Seconds()),
	})
}

type feature struct {
	Key   string
	Title string
	On    func(types.Features) bool
}

var (
	featurePilot   = feature{"piloto", "Projeto piloto", func(f types.Features) bool { return f.Pilot }}
	featureAnchors = feature{"ancoras", "Âncoras do bairro", func(f types.Features) bool { return f.Anchors }}
	featureGalpao  = feature{"galpao", "Galpão", func(f types.Features) bool { return f.Galpao }}
	featureGov     = feature{"gov", "Painel público", func(f types.Features) bool { return f.Gov }}
	featureLearn   = feature{"aprender", "Aprender a separar", func(f types.Features) bool { return f.Learn }}
)

func (s *Service) handleFeature(f feature) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := &FeaturePageData{
			BasePageData: types.BasePageData{Title: f.Title},
			Key:          f.Key,
		}

		if !f.On(s.config.Features) {
			s.render(w, r, "page.placeholder", data)
			return
		}

		s.render(w, r, "page.feature."+f.Key, data)
	}
}
