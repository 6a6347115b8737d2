package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eco/internal/auth"
	"eco/internal/export"
	"eco/internal/media"
	"eco/internal/onboarding"
	"eco/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testUsers = `
users:
  - token: tok-newbie
    email: novo@example.com
    password: x
    profile:
      id: u-newbie
  - token: tok-resident
    email: morador@example.com
    password: x
    profile:
      id: u-resident
      neighborhood_id: n-centro
  - token: tok-cooperado
    email: coop@example.com
    password: x
    profile:
      id: u-coop
      role: cooperado
      neighborhood_id: n-centro
  - token: tok-operator
    email: op@example.com
    password: x
    profile:
      id: u-op
      role: operator
      neighborhood_id: n-centro
`

const testPeriodID = "8a6e0804-2bd0-4672-b79d-d97027f9071a"

type stubProfiles struct{}

func (stubProfiles) DisplayNames(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = "Nome " + id
	}
	return out, nil
}

type stubNeighborhoods struct{}

func (stubNeighborhoods) Neighborhoods(context.Context) ([]*types.Neighborhood, error) {
	return []*types.Neighborhood{{ID: "n-centro", Name: "Centro"}}, nil
}

func (stubNeighborhoods) DropPoints(context.Context, string) ([]*types.DropPoint, error) {
	return []*types.DropPoint{{ID: "dp-1", NeighborhoodID: "n-centro", Name: "Padaria", Address: "Rua A", IsActive: true}}, nil
}

func (stubNeighborhoods) DropPoint(_ context.Context, id string) (*types.DropPoint, error) {
	if id != "dp-1" {
		return nil, types.ErrNotFound
	}
	return &types.DropPoint{ID: "dp-1", IsActive: true}, nil
}

type stubPickups struct {
	mu      sync.Mutex
	created []*types.PickupRequest
}

func (s *stubPickups) CreatePickup(_ context.Context, req *types.PickupRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, req)
	return nil
}

func (s *stubPickups) PickupsByResident(context.Context, string) ([]*types.PickupRequest, error) {
	return nil, nil
}

func (s *stubPickups) OpenPickupsInNeighborhood(context.Context, string) ([]*types.PickupRequest, error) {
	return []*types.PickupRequest{{ID: "p1", Status: types.PickupStatusOpen, Materials: []string{"papel"}}}, nil
}

func (s *stubPickups) TransitionPickup(context.Context, string, types.PickupStatus) error {
	return nil
}

func (s *stubPickups) Receipt(_ context.Context, id string) (*types.Receipt, error) {
	if id != "r1" {
		return nil, types.ErrReceiptNotFound
	}
	return &types.Receipt{ID: "r1", WeightGrams: 2500}, nil
}

func (s *stubPickups) Recurrence(context.Context, string) (*types.RecurrenceSubscription, error) {
	return nil, nil
}

func (s *stubPickups) SaveRecurrence(context.Context, string, int, bool) error {
	return nil
}

type stubPosts struct {
	createErr error
}

func (stubPosts) RecentPosts(context.Context, string, uint64) ([]*types.Post, error) {
	return []*types.Post{{ID: "post-1", AuthorID: "u-resident", Kind: types.PostKindDica, Body: "Lave os potes"}}, nil
}

func (s stubPosts) CreatePost(context.Context, *types.Post) error { return s.createErr }

func (stubPosts) TransparencySummary(context.Context) (*types.TransparencyReport, error) {
	return &types.TransparencyReport{Items: []*types.TransparencySummary{
		{NeighborhoodID: "n-centro", NeighborhoodName: "Centro", CollectedCount: 12, TotalWeightGrams: 34000},
	}}, nil
}

type stubNotifications struct {
	mu       sync.Mutex
	lastIDs  []string
	lastAll  bool
	lastUser string
}

func (s *stubNotifications) NotificationsByUser(_ context.Context, userID string, _ uint64) ([]*types.Notification, error) {
	return []*types.Notification{{ID: "n1", UserID: userID, Title: "Coleta aceita"}}, nil
}

func (s *stubNotifications) UnreadCount(context.Context, string) (int, error) {
	return 1, nil
}

func (s *stubNotifications) MarkRead(_ context.Context, userID string, ids []string, all bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUser, s.lastIDs, s.lastAll = userID, ids, all
	if all {
		return 3, nil
	}
	return int64(len(ids)), nil
}

type stubPeriods struct{}

func (stubPeriods) RecentPeriods(context.Context, uint64) ([]*types.PayoutPeriod, error) {
	return []*types.PayoutPeriod{{ID: testPeriodID, Status: "open"}}, nil
}

type stubMediaObjects struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (s *stubMediaObjects) CreateMedia(_ context.Context, obj *types.MediaObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, obj.ID)
	return nil
}

func (s *stubMediaObjects) DeleteMedia(_ context.Context, mediaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, mediaID)
	return nil
}

type stubUploader struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (s *stubUploader) UploadFile(_ context.Context, _ string, path string, _ io.Reader, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, path)
	return path, nil
}

func (s *stubUploader) DeleteFile(_ context.Context, _ string, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, path)
	return nil
}

// unreachableAuth fails like a provider whose JWKS or profile lookup is down.
type unreachableAuth struct{}

func (unreachableAuth) Authenticate(context.Context, string) (*types.Session, error) {
	return nil, errors.New("failed to fetch jwks: connection refused")
}

func (unreachableAuth) SignIn(context.Context, string, string) (*auth.Token, error) {
	return nil, errors.New("auth backend unreachable")
}

type stubMediaURLs struct{}

func (stubMediaURLs) URLForMedia(_ context.Context, _ string, mediaID string, opts media.Options) (*types.SignedURL, error) {
	if mediaID == "secret" {
		return nil, types.ErrForbidden
	}
	return &types.SignedURL{MediaID: mediaID, URL: "https://cdn.test/" + mediaID, ExpiresAt: time.Now().Add(media.ClampExpiry(opts.ExpiresIn))}, nil
}

func (stubMediaURLs) URLsForEntity(_ context.Context, _ string, _ string, entityID string, _ media.Options) ([]*types.SignedURL, error) {
	return []*types.SignedURL{{MediaID: entityID + "-a", URL: "https://cdn.test/a"}}, nil
}

type stubExporter struct {
	err error
}

func (s stubExporter) Export(_ context.Context, _ string, periodID string) (*export.File, error) {
	if s.err != nil {
		return nil, s.err
	}
	if periodID != testPeriodID {
		return nil, types.ErrPeriodNotFound
	}
	return &export.File{Name: "repasses_20260901_20260930.csv", Data: []byte("\xEF\xBB\xBFcooperado_id\r\n"), Rows: 0}, nil
}

type stubStates struct {
	mu   sync.Mutex
	rows map[string]*types.OnboardingState
}

func (s *stubStates) State(_ context.Context, userID string) (*types.OnboardingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[userID]
	if !ok {
		return nil, types.ErrOnboardingNotFound
	}
	return row, nil
}

func (s *stubStates) Save(_ context.Context, userID string, u types.OnboardingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[userID]
	if !ok {
		row = &types.OnboardingState{UserID: userID}
		s.rows[userID] = row
	}
	row.Step = u.Step
	if u.ChosenMode != nil {
		row.ChosenMode = u.ChosenMode
	}
	return nil
}

type stubProfileWriter struct{}

func (stubProfileWriter) SetNeighborhood(context.Context, string, string) error { return nil }

func (stubProfileWriter) SetAddress(context.Context, string, types.ProfileAddress) error { return nil }

type testEnv struct {
	service       *Service
	handler       http.Handler
	notifications *stubNotifications
	pickups       *stubPickups
	states        *stubStates
	mediaObjects  *stubMediaObjects
	uploader      *stubUploader
}

func newTestEnv(t *testing.T, mutate func(*types.Config, *Deps)) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	provider, err := auth.NewFixtureProvider(strings.NewReader(testUsers))
	require.NoError(t, err)

	config := &types.Config{
		Environment:   "development",
		StorageBucket: "eco-private",
		APIRatePerSec: 1000,
		APIRateBurst:  1000,
	}

	env := &testEnv{
		notifications: &stubNotifications{},
		pickups:       &stubPickups{},
		states:        &stubStates{rows: map[string]*types.OnboardingState{}},
		mediaObjects:  &stubMediaObjects{},
		uploader:      &stubUploader{},
	}

	deps := Deps{
		Auth:          provider,
		Profiles:      stubProfiles{},
		Neighborhoods: stubNeighborhoods{},
		Pickups:       env.pickups,
		Posts:         stubPosts{},
		Notifications: env.notifications,
		Periods:       stubPeriods{},
		MediaObjects:  env.mediaObjects,
		Uploader:      env.uploader,
		MediaURLs:     stubMediaURLs{},
		Exporter:      stubExporter{},
		Wizard:        onboarding.NewWizard(logger, env.states, stubProfileWriter{}, stubNeighborhoods{}),
	}
	if mutate != nil {
		mutate(config, &deps)
	}

	svc, err := New(config, logger, deps)
	require.NoError(t, err)
	t.Cleanup(svc.transparency.Close)

	env.service = svc
	env.handler = svc.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
