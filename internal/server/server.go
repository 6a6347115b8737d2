package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eco/internal/auth"
	"eco/internal/export"
	"eco/internal/media"
	"eco/internal/onboarding"
	"eco/internal/query"
	"eco/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

type Profiles interface {
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

type Neighborhoods interface {
	Neighborhoods(ctx context.Context) ([]*types.Neighborhood, error)
	DropPoints(ctx context.Context, neighborhoodID string) ([]*types.DropPoint, error)
}

type Pickups interface {
	CreatePickup(ctx context.Context, req *types.PickupRequest) error
	PickupsByResident(ctx context.Context, residentID string) ([]*types.PickupRequest, error)
	OpenPickupsInNeighborhood(ctx context.Context, neighborhoodID string) ([]*types.PickupRequest, error)
	TransitionPickup(ctx context.Context, requestID string, next types.PickupStatus) error
	Receipt(ctx context.Context, receiptID string) (*types.Receipt, error)
	Recurrence(ctx context.Context, userID string) (*types.RecurrenceSubscription, error)
	SaveRecurrence(ctx context.Context, userID string, weekday int, active bool) error
}

type Posts interface {
	RecentPosts(ctx context.Context, neighborhoodID string, limit uint64) ([]*types.Post, error)
	CreatePost(ctx context.Context, post *types.Post) error
	TransparencySummary(ctx context.Context) (*types.TransparencyReport, error)
}

type Notifications interface {
	NotificationsByUser(ctx context.Context, userID string, limit uint64) ([]*types.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, ids []string, all bool) (int64, error)
}

type PayoutPeriods interface {
	RecentPeriods(ctx context.Context, limit uint64) ([]*types.PayoutPeriod, error)
}

type MediaObjects interface {
	CreateMedia(ctx context.Context, obj *types.MediaObject) error
	DeleteMedia(ctx context.Context, mediaID string) error
}

type Uploader interface {
	UploadFile(ctx context.Context, bucket, path string, file io.Reader, contentType string) (string, error)
	DeleteFile(ctx context.Context, bucket, path string) error
}

type MediaURLs interface {
	URLForMedia(ctx context.Context, token, mediaID string, opts media.Options) (*types.SignedURL, error)
	URLsForEntity(ctx context.Context, token, entityType, entityID string, opts media.Options) ([]*types.SignedURL, error)
}

type PayoutExporter interface {
	Export(ctx context.Context, actorID, periodID string) (*export.File, error)
}

// Deps is everything the HTTP layer reads from or writes to.
type Deps struct {
	Auth          auth.Provider
	Profiles      Profiles
	Neighborhoods Neighborhoods
	Pickups       Pickups
	Posts         Posts
	Notifications Notifications
	Periods       PayoutPeriods
	MediaObjects  MediaObjects
	Uploader      Uploader
	MediaURLs     MediaURLs
	Exporter      PayoutExporter
	Wizard        *onboarding.Wizard
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	deps      Deps
	templates *template.Template

	cookie        *securecookie.SecureCookie
	stagingCookie *securecookie.SecureCookie
	apiLimiter    *RateLimiter

	transparency *query.Tracker[*types.TransparencyReport]

	server *http.Server
}

const stagingCookieAge = 8 * time.Hour

func New(config *types.Config, logger *logrus.Logger, deps Deps) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if len(hashKey) == 0 {
		logger.Warn("COOKIE_HASH_KEY not set, sessions will not survive a restart")
		hashKey = securecookie.GenerateRandomKey(32)
	}
	if len(blockKey) == 0 {
		blockKey = securecookie.GenerateRandomKey(32)
	}

	s := &Service{
		logger:        logger,
		config:        config,
		deps:          deps,
		cookie:        securecookie.New(hashKey, blockKey),
		stagingCookie: securecookie.New(hashKey, blockKey).MaxAge(int(stagingCookieAge.Seconds())),
		apiLimiter:    NewRateLimiter(config.APIRatePerSec, config.APIRateBurst),
		transparency:  query.NewTracker[*types.TransparencyReport](deps.Posts.TransparencySummary),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)
	s.server.Handler = s.StagingGate(mux)

	return s, nil
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Stop is called. The transparency summary is refreshed in the
// background for as long as ctx lives.
func (s *Service) Start(ctx context.Context) error {
	go s.refreshTransparency(ctx)
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	s.transparency.Close()
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)
	r.Use(s.LoadSession)

	r.HandleFunc("/robots.txt", s.handleRobots, http.MethodGet)

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.apiLimiter.UserRateLimit)

		r.HandleFunc("/api/notifications/list", s.handleAPINotificationsList, http.MethodGet)
		r.HandleFunc("/api/notifications/mark-read", s.handleAPINotificationsMarkRead, http.MethodPost)
		r.HandleFunc("/api/admin/payouts/export", s.handleAPIPayoutsExport, http.MethodGet)
		r.HandleFunc("/api/media/signed-url", s.handleAPISignedURL, http.MethodGet)
	})

	r.Group(func(r *flow.Mux) {
		r.Use(s.Gate)

		r.HandleFunc("/", s.handleHome, http.MethodGet)
		r.HandleFunc("/entrar", s.handleGetLogin, http.MethodGet)
		r.HandleFunc("/entrar", s.handlePostLogin, http.MethodPost)
		r.HandleFunc("/sair", s.handleLogout, http.MethodGet, http.MethodPost)
		r.HandleFunc("/perfil", s.handleGetProfile, http.MethodGet)

		r.HandleFunc("/mural", s.handleGetMural, http.MethodGet)
		r.HandleFunc("/mural", s.handlePostMural, http.MethodPost)
		r.HandleFunc("/transparencia", s.handleTransparency, http.MethodGet)
		r.HandleFunc("/recibo/:id", s.handleReceipt, http.MethodGet)
		r.HandleFunc("/pontos", s.handleDropPoints, http.MethodGet)

		s.handle(r, onboarding.RouteStart, s.handleGetOnboardingStart, http.MethodGet)
		s.handle(r, onboarding.RouteStart, s.handlePostOnboardingStart, http.MethodPost)
		s.handle(r, onboarding.RouteNeighborhood, s.handleGetOnboardingNeighborhood, http.MethodGet)
		s.handle(r, onboarding.RouteNeighborhood, s.handlePostOnboardingNeighborhood, http.MethodPost)
		s.handle(r, onboarding.RouteMode, s.handleGetOnboardingMode, http.MethodGet)
		s.handle(r, onboarding.RouteMode, s.handlePostOnboardingMode, http.MethodPost)
		s.handle(r, onboarding.RouteAddress, s.handleGetOnboardingAddress, http.MethodGet)
		s.handle(r, onboarding.RouteAddress, s.handlePostOnboardingAddress, http.MethodPost)
		s.handle(r, onboarding.RouteFirstAction, s.handleGetOnboardingFirstAction, http.MethodGet)
		s.handle(r, onboarding.RouteFirstAction, s.handlePostOnboardingFirstAction, http.MethodPost)
		r.HandleFunc("/comecar/...", s.handleLegacyOnboarding, http.MethodGet)
		r.HandleFunc("/comecar", s.handleLegacyOnboarding, http.MethodGet)

		r.HandleFunc("/pedir-coleta", s.handleGetPickupForm, http.MethodGet)
		r.HandleFunc("/pedir-coleta", s.handlePostPickupForm, http.MethodPost)
		r.HandleFunc("/pedidos", s.handleMyPickups, http.MethodGet)
		r.HandleFunc("/recorrencia", s.handleGetRecurrence, http.MethodGet)
		r.HandleFunc("/recorrencia", s.handlePostRecurrence, http.MethodPost)
		r.HandleFunc("/notificacoes", s.handleGetNotifications, http.MethodGet)
		r.HandleFunc("/notificacoes", s.handlePostNotifications, http.MethodPost)

		r.HandleFunc("/cooperado", s.handleCooperado, http.MethodGet)
		r.HandleFunc("/cooperado/pedidos/:id", s.handlePostCooperadoTransition, http.MethodPost)

		r.HandleFunc("/operador", s.handleOperator, http.MethodGet)
		r.HandleFunc("/operador/repasses/:id/exportar", s.handleOperatorExport, http.MethodGet)
		r.HandleFunc("/admin", s.handleOperator, http.MethodGet)

		r.HandleFunc("/piloto", s.handleFeature(featurePilot), http.MethodGet)
		r.HandleFunc("/ancoras", s.handleFeature(featureAnchors), http.MethodGet)
		r.HandleFunc("/galpao", s.handleFeature(featureGalpao), http.MethodGet)
		r.HandleFunc("/gov", s.handleFeature(featureGov), http.MethodGet)
		r.HandleFunc("/aprender", s.handleFeature(featureLearn), http.MethodGet)
	})
}

// handle registers a route under its literal and its percent-encoded form, so paths with
// non ASCII characters match however the client sent them.
func (s *Service) handle(r *flow.Mux, pattern string, h http.HandlerFunc, methods ...string) {
	r.HandleFunc(pattern, h, methods...)
	if escaped := escapePath(pattern); escaped != pattern {
		r.HandleFunc(escaped, h, methods...)
	}
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefOr": func(s *string, defaultVal string) string {
			if s == nil {
				return defaultVal
			}
			return *s
		},
		"kg": func(grams int64) string {
			return fmt.Sprintf("%.1f kg", float64(grams)/1000)
		},
		"date": func(t time.Time) string {
			return t.Format("02/01/2006")
		},
		"path": escapePath,
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}
