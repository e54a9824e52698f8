package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammer-mt/FireFlask/internal/analytics"
	"github.com/hammer-mt/FireFlask/internal/connectors"
	"github.com/hammer-mt/FireFlask/internal/users"
	pkgAuth "github.com/hammer-mt/FireFlask/pkg/auth"
	"github.com/hammer-mt/FireFlask/pkg/auth/cookie"
	"github.com/hammer-mt/FireFlask/pkg/auth/session"
	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubGate struct{ role enums.TeamRole }

func (g stubGate) Authorize(_ context.Context, _, _ uuid.UUID, allowed ...enums.TeamRole) (enums.TeamRole, error) {
	if g.role == "" {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "you are not a member of this team")
	}
	if !g.role.In(allowed...) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "you don't have access")
	}
	return g.role, nil
}

type stubUsers struct{ users.Service }

func (stubUsers) GetProfile(_ context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, Email: "ada@example.com", Name: "Ada"}, nil
}

type stubConnectors struct{ connectors.Service }

func (stubConnectors) List(context.Context, uuid.UUID) ([]connectors.Connector, error) {
	return []connectors.Connector{{Provider: connectors.ProviderFacebook}}, nil
}

func (stubConnectors) AuthorizeURL(_ context.Context, state string) string {
	return "https://www.facebook.com/v19.0/dialog/oauth?state=" + state
}

type stubAnalytics struct{ teamID uuid.UUID }

func (s *stubAnalytics) Dashboard(_ context.Context, teamID uuid.UUID, q analytics.Query) (*analytics.Dashboard, error) {
	s.teamID = teamID
	return &analytics.Dashboard{DateStart: q.DateStart, DateEnd: q.DateEnd}, nil
}

var testConfig = &config.Config{
	App:     config.AppConfig{Env: "test", ConnectorsURL: "http://localhost:3000/connectors"},
	JWT:     config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 15},
	Session: config.SessionConfig{Secret: "session-secret"},
}

type harness struct {
	router    http.Handler
	analytics *stubAnalytics
}

func newHarness(t *testing.T, role enums.TeamRole, dbErr error) harness {
	t.Helper()
	state, err := cookie.NewOAuthStateStore(testConfig.Session)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics.NewUpstreamMetrics(reg).Observe(metrics.UpstreamAnalytics, metrics.OutcomeSuccess, time.Millisecond)

	an := &stubAnalytics{}
	router := NewRouter(Dependencies{
		Config:     testConfig,
		DB:         stubPinger{err: dbErr},
		Redis:      stubPinger{},
		Sessions:   stubSessions{},
		OAuthState: state,
		Gatherer:   reg,
		Gate:       stubGate{role: role},
		Users:      stubUsers{},
		Connectors: stubConnectors{},
		Analytics:  an,
	})
	return harness{router: router, analytics: an}
}

func bearer(t *testing.T, teamID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:       uuid.New(),
		ActiveTeamID: teamID,
		JTI:          session.NewAccessID(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t, "", nil)

	rec := serve(h.router, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-FireFlask-Env"))

	rec = serve(h.router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newHarness(t, "", errors.New("connection refused"))
	rec = serve(down.router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, "", nil)
	rec := serve(h.router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream_calls_total")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newHarness(t, enums.TeamRoleOwner, nil)
	for _, path := range []string{"/api/v1/profile", "/api/v1/teams", "/api/v1/dashboard", "/api/v1/connectors"} {
		rec := serve(h.router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestProfileRoute(t *testing.T) {
	h := newHarness(t, "", nil)
	rec := serve(h.router, http.MethodGet, "/api/v1/profile", bearer(t, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data users.UserDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ada@example.com", body.Data.Email)
}

func TestTeamRoutesNeedActiveTeam(t *testing.T) {
	h := newHarness(t, enums.TeamRoleOwner, nil)
	rec := serve(h.router, http.MethodGet, "/api/v1/dashboard", bearer(t, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "please select a team")
}

func TestDashboardRouteUsesActiveTeam(t *testing.T) {
	h := newHarness(t, enums.TeamRoleRead, nil)
	teamID := uuid.New()

	rec := serve(h.router, http.MethodGet, "/api/v1/dashboard?date_start=2020-01-01&date_end=2020-01-07", bearer(t, &teamID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, teamID, h.analytics.teamID)
	assert.Contains(t, rec.Body.String(), `"date_start":"2020-01-01"`)
}

func TestConnectorManagementNeedsAdmin(t *testing.T) {
	teamID := uuid.New()

	reader := newHarness(t, enums.TeamRoleRead, nil)
	rec := serve(reader.router, http.MethodGet, "/api/v1/connectors", bearer(t, &teamID))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(reader.router, http.MethodGet, "/api/v1/connectors/facebook/connect", bearer(t, &teamID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = serve(reader.router, http.MethodDelete, "/api/v1/connectors/facebook", bearer(t, &teamID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := newHarness(t, enums.TeamRoleAdmin, nil)
	rec = serve(admin.router, http.MethodGet, "/api/v1/connectors/facebook/connect", bearer(t, &teamID))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://www.facebook.com/"))
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, "", nil)
	rec := serve(h.router, http.MethodGet, "/api/v1/nope", bearer(t, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
