package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammer-mt/FireFlask/api/middleware"
	"github.com/hammer-mt/FireFlask/internal/connectors"
	"github.com/hammer-mt/FireFlask/pkg/auth/cookie"
	"github.com/hammer-mt/FireFlask/pkg/config"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

type stubConnectorService struct {
	callbackTeam uuid.UUID
	callbackCode string
	callbackErr  error
	disconnected uuid.UUID
}

func (s *stubConnectorService) AuthorizeURL(_ context.Context, state string) string {
	return "https://www.facebook.com/v19.0/dialog/oauth?" + url.Values{"state": {state}}.Encode()
}

func (s *stubConnectorService) Callback(_ context.Context, teamID uuid.UUID, code string) error {
	s.callbackTeam = teamID
	s.callbackCode = code
	return s.callbackErr
}

func (s *stubConnectorService) Disconnect(_ context.Context, teamID uuid.UUID) error {
	s.disconnected = teamID
	return nil
}

func (s *stubConnectorService) List(context.Context, uuid.UUID) ([]connectors.Connector, error) {
	return []connectors.Connector{{Provider: connectors.ProviderFacebook, Connected: true}}, nil
}

func newConnectorHandlers(t *testing.T, svc connectors.Service) ConnectorHandlers {
	t.Helper()
	state, err := cookie.NewOAuthStateStore(config.SessionConfig{Secret: "session-secret"})
	require.NoError(t, err)
	return ConnectorHandlers{Connectors: svc, State: state, ReturnURL: "http://localhost:3000/connectors"}
}

func withTeam(req *http.Request, teamID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithActiveTeamID(req.Context(), teamID))
}

// startFlow runs Connect and returns the issued state and the state cookie.
func startFlow(t *testing.T, h ConnectorHandlers, teamID uuid.UUID) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Connect().ServeHTTP(rec, withTeam(httptest.NewRequest(http.MethodGet, "/connect", nil), teamID))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	for _, c := range rec.Result().Cookies() {
		if c.Name == cookie.OAuthSessionName {
			return state, c
		}
	}
	t.Fatal("state cookie not set")
	return "", nil
}

func callback(h ConnectorHandlers, teamID uuid.UUID, c *http.Cookie, query url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/callback?"+query.Encode(), nil)
	if c != nil {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.Callback().ServeHTTP(rec, withTeam(req, teamID))
	return rec
}

func redirectQuery(t *testing.T, rec *httptest.ResponseRecorder) url.Values {
	t.Helper()
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/connectors", loc.Path)
	return loc.Query()
}

func TestConnectorCallbackSuccess(t *testing.T) {
	svc := &stubConnectorService{}
	h := newConnectorHandlers(t, svc)
	teamID := uuid.New()

	state, c := startFlow(t, h, teamID)
	rec := callback(h, teamID, c, url.Values{"state": {state}, "code": {"abc"}})

	q := redirectQuery(t, rec)
	assert.Equal(t, "connected", q.Get("status"))
	assert.Equal(t, teamID, svc.callbackTeam)
	assert.Equal(t, "abc", svc.callbackCode)
}

func TestConnectorCallbackStateMismatch(t *testing.T) {
	svc := &stubConnectorService{}
	h := newConnectorHandlers(t, svc)
	teamID := uuid.New()

	_, c := startFlow(t, h, teamID)
	rec := callback(h, teamID, c, url.Values{"state": {"forged"}, "code": {"abc"}})

	q := redirectQuery(t, rec)
	assert.Equal(t, "error", q.Get("status"))
	assert.Equal(t, "oauth state mismatch", q.Get("message"))
	assert.Empty(t, svc.callbackCode, "code must not be exchanged")
}

func TestConnectorCallbackWithoutCookie(t *testing.T) {
	svc := &stubConnectorService{}
	h := newConnectorHandlers(t, svc)

	rec := callback(h, uuid.New(), nil, url.Values{"state": {"whatever"}, "code": {"abc"}})
	q := redirectQuery(t, rec)
	assert.Equal(t, "oauth state mismatch", q.Get("message"))
	assert.Empty(t, svc.callbackCode)
}

func TestConnectorCallbackOtherTeam(t *testing.T) {
	svc := &stubConnectorService{}
	h := newConnectorHandlers(t, svc)

	state, c := startFlow(t, h, uuid.New())
	rec := callback(h, uuid.New(), c, url.Values{"state": {state}, "code": {"abc"}})
	q := redirectQuery(t, rec)
	assert.Equal(t, "oauth state mismatch", q.Get("message"))
	assert.Empty(t, svc.callbackCode)
}

func TestConnectorCallbackUpstreamFailure(t *testing.T) {
	svc := &stubConnectorService{callbackErr: pkgerrors.New(pkgerrors.CodeDependency, connectors.UpstreamFailureMessage)}
	h := newConnectorHandlers(t, svc)
	teamID := uuid.New()

	state, c := startFlow(t, h, teamID)
	rec := callback(h, teamID, c, url.Values{"state": {state}, "code": {"abc"}})
	q := redirectQuery(t, rec)
	assert.Equal(t, "error", q.Get("status"))
	assert.Equal(t, connectors.UpstreamFailureMessage, q.Get("message"))
}

func TestConnectorCallbackProviderDenied(t *testing.T) {
	svc := &stubConnectorService{}
	h := newConnectorHandlers(t, svc)
	teamID := uuid.New()

	state, c := startFlow(t, h, teamID)
	rec := callback(h, teamID, c, url.Values{"state": {state}, "error": {"access_denied"}})
	q := redirectQuery(t, rec)
	assert.Equal(t, "facebook authorization was cancelled", q.Get("message"))
	assert.Empty(t, svc.callbackCode)
}

func TestConnectorDisconnect(t *testing.T) {
	svc := &stubConnectorService{}
	h := newConnectorHandlers(t, svc)
	teamID := uuid.New()

	rec := httptest.NewRecorder()
	h.Disconnect().ServeHTTP(rec, withTeam(httptest.NewRequest(http.MethodDelete, "/facebook", nil), teamID))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, teamID, svc.disconnected)
}
