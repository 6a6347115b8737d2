package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"eco/internal"
	"eco/internal/access"
	"eco/internal/utils"
	"eco/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeySession      contextKey = "session"
	contextKeySessionError contextKey = "session_error"
	contextKeyRequestID    contextKey = "request_id"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		requestID := r.Header.Get(internal.HEADER_REQUEST_ID)
		if requestID == "" {
			requestID = utils.NanoIDSize(16)
		}
		rw.Header().Set(internal.HEADER_REQUEST_ID, requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)

		next.ServeHTTP(rw, r.WithContext(ctx))

		s.logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// LoadSession resolves the caller from the Authorization bearer or the session cookie.
// Anonymous requests continue without a session; routes decide whether that is enough.
func (s *Service) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := s.requestToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := s.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, types.ErrAuthRequired) {
				if fromCookie {
					s.clearSessionCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			// the token may well be valid, the provider could not tell
			s.logger.WithError(err).Error("failed to resolve session")
			ctx := context.WithValue(r.Context(), contextKeySessionError, err)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ctx := context.WithValue(r.Context(), contextKeySession, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) requestToken(r *http.Request) (token string, fromCookie bool) {
	if token := bearerToken(r); token != "" {
		return token, false
	}

	cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err != nil {
		return "", false
	}

	err = s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &token)
	if err != nil {
		s.logger.WithError(err).Debug("failed to decrypt access token")
		return "", false
	}

	return token, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func sessionFromContext(ctx context.Context) *types.Session {
	session, _ := ctx.Value(contextKeySession).(*types.Session)
	return session
}

// sessionError is set when the auth provider failed for reasons other than a bad token.
func sessionError(ctx context.Context) error {
	err, _ := ctx.Value(contextKeySessionError).(error)
	return err
}

// renderSessionUnavailable answers page requests whose session could not be resolved
// because a backend failed. The caller is not sent to the login page.
func (s *Service) renderSessionUnavailable(w http.ResponseWriter, r *http.Request) {
	s.renderStatus(w, r, http.StatusBadGateway, "page.denied", &DeniedPageData{
		BasePageData: types.BasePageData{Title: "Serviço indisponível"},
		Message:      "Não conseguimos verificar sua sessão agora. Tente novamente em instantes.",
		ActionLabel:  "Tentar novamente",
		ActionHref:   r.URL.RequestURI(),
	})
}

// Gate applies the route rules of the access package to page requests.
func (s *Service) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			user    *types.User
			profile *types.Profile
		)
		if session := sessionFromContext(r.Context()); session != nil {
			user, profile = session.User, session.Profile
		}

		if user == nil && sessionError(r.Context()) != nil && access.GetAuthRequirement(r.URL.Path).RequiresAuth {
			s.renderSessionUnavailable(w, r)
			return
		}

		decision := access.Decide(r.URL.Path, user, profile, false)
		if decision.Allowed() {
			next.ServeHTTP(w, r)
			return
		}

		status := http.StatusForbidden
		if decision.Reason == access.ReasonUnauthenticated {
			status = http.StatusUnauthorized
			s.setRedirectCookie(w, r.URL.RequestURI(), time.Minute*5)
		}

		s.logger.WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"reason": decision.Reason,
		}).Debug("request denied by gate")

		label, href := decision.CallToAction()
		s.renderStatus(w, r, status, "page.denied", &DeniedPageData{
			BasePageData: types.BasePageData{Title: "Acesso restrito"},
			Message:      decision.Message(),
			ActionLabel:  label,
			ActionHref:   href,
		})
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")
			newURL.RawPath = ""

			// Preserve query string
			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}
