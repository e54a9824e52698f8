package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammer-mt/FireFlask/internal/teams"
	"github.com/hammer-mt/FireFlask/pkg/config"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

type stubTeams struct {
	team *teams.Team
	err  error
}

func (s stubTeams) Get(context.Context, uuid.UUID) (*teams.Team, error) {
	return s.team, s.err
}

func strPtr(v string) *string { return &v }

func connectedTeam() *teams.Team {
	return &teams.Team{
		ID:              uuid.New(),
		Name:            "Acme",
		AccountID:       strPtr("123456789"),
		ConversionEvent: strPtr("offsite_conversion.fb_pixel_purchase"),
		FacebookToken:   strPtr("Mike"),
	}
}

func fixedNow() time.Time {
	return time.Date(2020, 1, 8, 15, 30, 0, 0, time.UTC)
}

type recordedCall struct {
	query url.Values
}

func newFunctionServer(t *testing.T, status int, body []byte, delay time.Duration) (*httptest.Server, *recordedCall) {
	t.Helper()
	call := &recordedCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call.query = r.URL.Query()
		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, call
}

func newTestService(t *testing.T, srv *httptest.Server, team stubTeams, timeout time.Duration) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Teams:      team,
		Config:     config.AnalyticsConfig{FunctionURL: srv.URL + "/get_facebook_data", Timeout: timeout, MaxRangeDays: 90},
		HTTPClient: srv.Client(),
		Now:        fixedNow,
	})
	require.NoError(t, err)
	return svc
}

func loadFixture(t *testing.T) []byte {
	t.Helper()
	body, err := os.ReadFile("testdata/insights_2020-01-01_2020-01-07.json")
	require.NoError(t, err)
	return body
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Teams: stubTeams{}, Config: config.AnalyticsConfig{FunctionURL: "not a url"}})
	require.Error(t, err)
}

func TestDashboardMapsFixtureAndTotals(t *testing.T) {
	srv, call := newFunctionServer(t, http.StatusOK, loadFixture(t), 0)
	svc := newTestService(t, srv, stubTeams{team: connectedTeam()}, time.Second)

	dash, err := svc.Dashboard(context.Background(), uuid.New(), Query{DateStart: "2020-01-01", DateEnd: "2020-01-07"})
	require.NoError(t, err)

	assert.Equal(t, "Mike", call.query.Get("access_token"))
	assert.Equal(t, "123456789", call.query.Get("account_id"))
	assert.Equal(t, "2020-01-01", call.query.Get("date_start"))
	assert.Equal(t, "2020-01-07", call.query.Get("date_end"))
	assert.Equal(t, "offsite_conversion.fb_pixel_purchase", call.query.Get("conversion_event"))

	require.Len(t, dash.Rows, 7)
	first := dash.Rows[0]
	assert.Equal(t, "2020-01-01", first.Date)
	assert.Equal(t, "5360.61", first.Spend.String())
	assert.Equal(t, "6633.75", first.Clicks.String())
	assert.Equal(t, "2043732.45", first.Impressions.String())
	assert.Equal(t, "804.09", first.Conversions.String())

	assert.Equal(t, "60507.06", dash.Totals.Spend.String())
	assert.Equal(t, "74877.48", dash.Totals.Clicks.String())
	assert.Equal(t, "23068315.13", dash.Totals.Impressions.String())
	assert.Equal(t, "9076.06", dash.Totals.Conversions.String())
	assert.Equal(t, "2020-01-01", dash.DateStart)
	assert.Equal(t, "2020-01-07", dash.DateEnd)
}

func TestDashboardDefaultsToWeekEndingYesterday(t *testing.T) {
	srv, call := newFunctionServer(t, http.StatusOK, []byte(`[]`), 0)
	team := connectedTeam()
	team.ConversionEvent = nil
	svc := newTestService(t, srv, stubTeams{team: team}, time.Second)

	dash, err := svc.Dashboard(context.Background(), uuid.New(), Query{})
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", dash.DateStart)
	assert.Equal(t, "2020-01-07", dash.DateEnd)
	assert.Empty(t, dash.Rows)
	assert.True(t, dash.Totals.Spend.IsZero())
	_, hasConversion := call.query["conversion_event"]
	assert.False(t, hasConversion)
}

func TestDashboardMissingConversionsDefaultsToZero(t *testing.T) {
	body := []byte(`[{"date":"2020-01-01","spend":"10.5","clicks":"3","impressions":"100"}]`)
	srv, _ := newFunctionServer(t, http.StatusOK, body, 0)
	svc := newTestService(t, srv, stubTeams{team: connectedTeam()}, time.Second)

	dash, err := svc.Dashboard(context.Background(), uuid.New(), Query{DateStart: "2020-01-01", DateEnd: "2020-01-01"})
	require.NoError(t, err)
	require.Len(t, dash.Rows, 1)
	assert.True(t, dash.Rows[0].Conversions.IsZero())
}

func TestDashboardValidation(t *testing.T) {
	srv, _ := newFunctionServer(t, http.StatusOK, []byte(`[]`), 0)
	tokenless := connectedTeam()
	tokenless.FacebookToken = nil
	accountless := connectedTeam()
	accountless.AccountID = nil

	tests := []struct {
		name    string
		team    *teams.Team
		teamID  uuid.UUID
		query   Query
		message string
	}{
		{name: "no team", team: connectedTeam(), teamID: uuid.Nil, message: "please select a team"},
		{name: "bad start", team: connectedTeam(), teamID: uuid.New(), query: Query{DateStart: "01/01/2020", DateEnd: "2020-01-07"}, message: "date_start must be YYYY-MM-DD"},
		{name: "bad end", team: connectedTeam(), teamID: uuid.New(), query: Query{DateStart: "2020-01-01", DateEnd: "2020-13-07"}, message: "date_end must be YYYY-MM-DD"},
		{name: "half range", team: connectedTeam(), teamID: uuid.New(), query: Query{DateStart: "2020-01-01"}, message: "date_start and date_end must be provided together"},
		{name: "reversed", team: connectedTeam(), teamID: uuid.New(), query: Query{DateStart: "2020-01-07", DateEnd: "2020-01-01"}, message: "date_start must be on or before date_end"},
		{name: "too long", team: connectedTeam(), teamID: uuid.New(), query: Query{DateStart: "2020-01-01", DateEnd: "2020-03-31"}, message: "date range cannot exceed 90 days"},
		{name: "not connected", team: tokenless, teamID: uuid.New(), message: "connect facebook before viewing the dashboard"},
		{name: "no account", team: accountless, teamID: uuid.New(), message: "ask the account owner to update Account ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, srv, stubTeams{team: tt.team}, time.Second)
			_, err := svc.Dashboard(context.Background(), tt.teamID, tt.query)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			assert.Equal(t, tt.message, pkgerrors.As(err).Message())
		})
	}
}

func TestDashboardAcceptsNinetyDays(t *testing.T) {
	srv, _ := newFunctionServer(t, http.StatusOK, []byte(`[]`), 0)
	svc := newTestService(t, srv, stubTeams{team: connectedTeam()}, time.Second)
	_, err := svc.Dashboard(context.Background(), uuid.New(), Query{DateStart: "2020-01-01", DateEnd: "2020-03-30"})
	require.NoError(t, err)
}

func TestDashboardUpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		delay   time.Duration
		message string
		row     any
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, message: "analytics service not contacted"},
		{name: "timeout", status: http.StatusOK, body: `[]`, delay: 200 * time.Millisecond, message: "analytics service not contacted"},
		{name: "not json", status: http.StatusOK, body: `<html>`, message: "analytics service returned malformed data"},
		{name: "bad spend", status: http.StatusOK, body: `[{"date":"2020-01-01","spend":"1","clicks":"1","impressions":"1"},{"date":"2020-01-02","spend":"abc","clicks":"1","impressions":"1"}]`, message: "analytics service returned malformed data", row: 1},
		{name: "missing clicks", status: http.StatusOK, body: `[{"date":"2020-01-01","spend":"1","impressions":"1"}]`, message: "analytics service returned malformed data", row: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newFunctionServer(t, tt.status, []byte(tt.body), tt.delay)
			svc := newTestService(t, srv, stubTeams{team: connectedTeam()}, 50*time.Millisecond)

			_, err := svc.Dashboard(context.Background(), uuid.New(), Query{DateStart: "2020-01-01", DateEnd: "2020-01-02"})
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
			assert.Equal(t, tt.message, typed.Message())
			if tt.row != nil {
				details, ok := typed.Details().(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tt.row, details["row"])
			}
		})
	}
}

func TestDashboardTeamLookupFailure(t *testing.T) {
	srv, _ := newFunctionServer(t, http.StatusOK, []byte(`[]`), 0)
	svc := newTestService(t, srv, stubTeams{err: pkgerrors.New(pkgerrors.CodeNotFound, "team not found")}, time.Second)
	_, err := svc.Dashboard(context.Background(), uuid.New(), Query{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
