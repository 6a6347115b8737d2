package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"eco/internal"
	"eco/internal/export"
	"eco/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_AnonymousOnProtectedPage(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/pedidos", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Entre na sua conta")
	assert.Contains(t, rec.Body.String(), `href="/entrar"`)

	redirect := findCookie(rec, internal.COOKIE_REDIRECT_NAME)
	require.NotNil(t, redirect)
	assert.Equal(t, "/pedidos", redirect.Value)
}

func TestGate_MissingNeighborhood(t *testing.T) {
	env := newTestEnv(t, nil)

	req := bearer(httptest.NewRequest(http.MethodGet, "/recorrencia", nil), "tok-newbie")
	rec := env.do(t, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Completar perfil")
	assert.Contains(t, rec.Body.String(), "/bairro")
}

func TestGate_ForbiddenRole(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/operador", "/admin", "/cooperado"} {
		req := bearer(httptest.NewRequest(http.MethodGet, path, nil), "tok-resident")
		rec := env.do(t, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Voltar ao perfil", path)
	}
}

func TestGate_AllowedPages(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := []struct {
		path  string
		token string
	}{
		{"/", ""},
		{"/mural", ""},
		{"/transparencia", ""},
		{"/pontos", ""},
		{"/entrar", ""},
		{"/pedidos", "tok-resident"},
		{"/notificacoes", "tok-resident"},
		{"/cooperado", "tok-cooperado"},
		{"/cooperado", "tok-operator"},
		{"/operador", "tok-operator"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.token != "" {
			bearer(req, tc.token)
		}
		rec := env.do(t, req)
		assert.Equal(t, http.StatusOK, rec.Code, tc.path)
	}
}

func TestReceipt_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/recibo/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/recibo/r1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2.5 kg")
}

func TestRobots(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User-agent: *\nDisallow: /\n", rec.Body.String())

	prod := newTestEnv(t, func(c *types.Config, _ *Deps) { c.Environment = types.EnvironmentProduction })
	req := httptest.NewRequest(http.MethodGet, "/robots.txt", nil)
	req.Host = "eco.example.org"
	rec = prod.do(t, req)
	assert.Contains(t, rec.Body.String(), "Allow: /")
	assert.Contains(t, rec.Body.String(), "Sitemap: https://eco.example.org/sitemap.xml")
	assert.NotContains(t, rec.Body.String(), "Disallow")
}

func TestStagingGate(t *testing.T) {
	env := newTestEnv(t, func(c *types.Config, _ *Deps) {
		c.Environment = types.EnvironmentStaging
		c.StagingPassword = "ecologia"
	})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/mural", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ambiente de testes")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /")

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/static/css/eco.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/mural?staging_password=errada", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/mural", nil)
	req.Header.Set(internal.HEADER_STAGING_PASSWORD, "ecologia")
	rec = env.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	granted := findCookie(rec, internal.COOKIE_STAGING_NAME)
	require.NotNil(t, granted)

	req = httptest.NewRequest(http.MethodGet, "/transparencia", nil)
	req.AddCookie(&http.Cookie{Name: granted.Name, Value: granted.Value})
	rec = env.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeatureFlags(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/piloto", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Em breve")

	on := newTestEnv(t, func(c *types.Config, _ *Deps) { c.Features.Pilot = true })
	rec = on.do(t, httptest.NewRequest(http.MethodGet, "/piloto", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Em breve")
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t, nil)

	form := url.Values{"email": {"morador@example.com"}, "password": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/entrar", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: internal.COOKIE_REDIRECT_NAME, Value: "/pedidos"})
	rec := env.do(t, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pedidos", rec.Header().Get("Location"))

	session := findCookie(rec, internal.COOKIE_ACCESS_TOKEN_NAME)
	require.NotNil(t, session)

	req = httptest.NewRequest(http.MethodGet, "/pedidos", nil)
	req.AddCookie(&http.Cookie{Name: session.Name, Value: session.Value})
	rec = env.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginIgnoresExternalRedirect(t *testing.T) {
	env := newTestEnv(t, nil)

	form := url.Values{"email": {"morador@example.com"}, "password": {"x"}}
	req := httptest.NewRequest(http.MethodPost, "/entrar", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: internal.COOKIE_REDIRECT_NAME, Value: "//evil.example.com"})
	rec := env.do(t, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, rec.Header().Get("Location"), "evil")
}

func TestNotificationsAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/notifications/list", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/notifications/list", nil), "tok-resident"))
	require.Equal(t, http.StatusOK, rec.Code)

	var list notificationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Unread)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Coleta aceita", list.Items[0].Title)

	req := bearer(httptest.NewRequest(http.MethodPost, "/api/notifications/mark-read", strings.NewReader(`{}`)), "tok-resident")
	rec = env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = bearer(httptest.NewRequest(http.MethodPost, "/api/notifications/mark-read", strings.NewReader(`{"ids":["a","b"]}`)), "tok-resident")
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())
	assert.Equal(t, "u-resident", env.notifications.lastUser)
	assert.Equal(t, []string{"a", "b"}, env.notifications.lastIDs)

	req = bearer(httptest.NewRequest(http.MethodPost, "/api/notifications/mark-read", strings.NewReader(`{"all":true}`)), "tok-resident")
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":3}`, rec.Body.String())
	assert.True(t, env.notifications.lastAll)
}

func TestPayoutsExportAPI(t *testing.T) {
	env := newTestEnv(t, nil)
	target := "/api/admin/payouts/export?period_id=" + testPeriodID

	rec := env.do(t, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, target, nil), "tok-cooperado"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/admin/payouts/export?period_id=abc", nil), "tok-operator"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/admin/payouts/export?period_id=0b5f5f4e-7a8b-4c1d-9e2f-3a4b5c6d7e8f", nil), "tok-operator"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, target, nil), "tok-operator"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="repasses_20260901_20260930.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBF"))
}

func TestPayoutsExportAPI_Failures(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{export.ErrAudit, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		env := newTestEnv(t, func(_ *types.Config, d *Deps) { d.Exporter = stubExporter{err: tc.err} })
		req := bearer(httptest.NewRequest(http.MethodGet, "/api/admin/payouts/export?period_id="+testPeriodID, nil), "tok-operator")
		rec := env.do(t, req)
		assert.Equal(t, tc.status, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	}
}

func TestOperatorExportFromPage(t *testing.T) {
	env := newTestEnv(t, nil)

	req := bearer(httptest.NewRequest(http.MethodGet, "/operador/repasses/"+testPeriodID+"/exportar", nil), "tok-operator")
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	req = bearer(httptest.NewRequest(http.MethodGet, "/operador/repasses/"+testPeriodID+"/exportar", nil), "tok-cooperado")
	rec = env.do(t, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSignedURLAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/media/signed-url?media_id=m1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/media/signed-url?media_id=m1&expires_in=600", nil), "tok-resident"))
	require.Equal(t, http.StatusOK, rec.Code)
	var single signedURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &single))
	assert.Equal(t, "https://cdn.test/m1", single.URL)
	assert.NotEmpty(t, single.ExpiresAt)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/media/signed-url?media_id=secret", nil), "tok-resident"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/media/signed-url?media_id=m1&expires_in=x", nil), "tok-resident"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/media/signed-url", nil), "tok-resident"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/media/signed-url?entity_type=receipt&entity_id=r1", nil), "tok-resident"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"media_id":"r1-a"`)
}

func TestAPIRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *types.Config, _ *Deps) {
		c.APIRatePerSec = 0.001
		c.APIRateBurst = 2
	})

	for i := 0; i < 2; i++ {
		rec := env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/notifications/list", nil), "tok-resident"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/notifications/list", nil), "tok-resident"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other callers keep their own bucket
	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/notifications/list", nil), "tok-cooperado"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOnboarding_AnonymousGoesToLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/perfil", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/entrar", rec.Header().Get("Location"))
}

func TestOnboarding_Flow(t *testing.T) {
	env := newTestEnv(t, nil)

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return env.do(t, bearer(req, "tok-newbie"))
	}

	rec := post("/perfil", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/comer%C3%A7ar/bairro", rec.Header().Get("Location"))

	rec = post("/comer%C3%A7ar/bairro", url.Values{"neighborhood_id": {"n-centro"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/comer%C3%A7ar/modo", rec.Header().Get("Location"))

	rec = post("/comer%C3%A7ar/modo", url.Values{"mode": {"drop_point"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/comer%C3%A7ar/modo?error=")

	rec = post("/comer%C3%A7ar/modo", url.Values{"mode": {"drop_point"}, "drop_point_id": {"dp-1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/comer%C3%A7ar/acao", rec.Header().Get("Location"))

	rec = post("/comer%C3%A7ar/acao", url.Values{"action": {"pickup"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/pedir-coleta", rec.Header().Get("Location"))
}

func TestOnboarding_DoorstepGoesThroughAddress(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/comer%C3%A7ar/modo", strings.NewReader("mode=doorstep"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, bearer(req, "tok-newbie"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/comer%C3%A7ar/endereco", rec.Header().Get("Location"))

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/comer%C3%A7ar/endereco", nil), "tok-newbie"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOnboarding_LegacyRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/comecar/modo", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/comer%C3%A7ar/modo", rec.Header().Get("Location"))
}

func TestPickupForm_Create(t *testing.T) {
	env := newTestEnv(t, nil)

	form := url.Values{"materials": {"papel", "vidro"}, "notes": {"portão azul"}}
	req := httptest.NewRequest(http.MethodPost, "/pedir-coleta", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, bearer(req, "tok-resident"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, env.pickups.created, 1)
	created := env.pickups.created[0]
	assert.Equal(t, "u-resident", created.ResidentID)
	assert.Equal(t, "n-centro", created.NeighborhoodID)
	assert.Equal(t, []string{"papel", "vidro"}, created.Materials)
}

func TestAuthBackendFailure_IsNotTreatedAsAnonymous(t *testing.T) {
	env := newTestEnv(t, func(_ *types.Config, d *Deps) { d.Auth = unreachableAuth{} })

	rec := env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/api/notifications/list", nil), "tok-resident"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/pedidos", nil), "tok-resident"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Nil(t, findCookie(rec, internal.COOKIE_REDIRECT_NAME))
	assert.Contains(t, rec.Body.String(), "Tentar novamente")
	assert.NotContains(t, rec.Body.String(), "Entre na sua conta")

	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/perfil", nil), "tok-resident"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))

	// public pages still render for the caller
	rec = env.do(t, bearer(httptest.NewRequest(http.MethodGet, "/mural", nil), "tok-resident"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// without a token there is nothing to verify, so the usual 401 applies
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/notifications/list", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func newMuralPhotoRequest(t *testing.T) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("kind", string(types.PostKindDica)))
	require.NoError(t, mw.WriteField("body", "Separe as tampinhas"))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="photo"; filename="tampinhas.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/mural", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return bearer(req, "tok-resident")
}

func TestMuralPost_WithPhoto(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, newMuralPhotoRequest(t))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "notice=")

	require.Len(t, env.uploader.uploaded, 1)
	assert.True(t, strings.HasSuffix(env.uploader.uploaded[0], ".png"))
	assert.Len(t, env.mediaObjects.created, 1)
	assert.Empty(t, env.uploader.deleted)
	assert.Empty(t, env.mediaObjects.deleted)
}

func TestMuralPost_FailedPostRemovesPhoto(t *testing.T) {
	env := newTestEnv(t, func(_ *types.Config, d *Deps) {
		d.Posts = stubPosts{createErr: errors.New("insert failed")}
	})

	rec := env.do(t, newMuralPhotoRequest(t))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=")

	require.Len(t, env.uploader.uploaded, 1)
	assert.Equal(t, env.uploader.uploaded, env.uploader.deleted)
	assert.Equal(t, env.mediaObjects.created, env.mediaObjects.deleted)
}
