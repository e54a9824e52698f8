// Package analytics proxies dashboard requests to the ad insights function.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/internal/teams"
	"github.com/hammer-mt/FireFlask/pkg/config"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/metrics"
)

const (
	dateLayout          = "2006-01-02"
	defaultWindowDays   = 7
	defaultMaxRangeDays = 90
	defaultTimeout      = 15 * time.Second
	maxPayloadBytes     = 4 << 20
)

type teamLoader interface {
	Get(ctx context.Context, teamID uuid.UUID) (*teams.Team, error)
}

// Service builds dashboards for the active team.
type Service interface {
	Dashboard(ctx context.Context, teamID uuid.UUID, q Query) (*Dashboard, error)
}

// ServiceParams packages the proxy dependencies. HTTPClient, Metrics and Now
// are optional.
type ServiceParams struct {
	Teams      teamLoader
	Config     config.AnalyticsConfig
	HTTPClient *http.Client
	Metrics    *metrics.UpstreamMetrics
	Now        func() time.Time
}

type service struct {
	teams      teamLoader
	endpoint   string
	timeout    time.Duration
	maxRange   int
	httpClient *http.Client
	metrics    *metrics.UpstreamMetrics
	now        func() time.Time
}

// NewService builds the analytics proxy.
func NewService(params ServiceParams) (Service, error) {
	if params.Teams == nil {
		return nil, fmt.Errorf("team loader required")
	}
	endpoint := strings.TrimSpace(params.Config.FunctionURL)
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("analytics function url invalid: %w", err)
	}
	timeout := params.Config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRange := params.Config.MaxRangeDays
	if maxRange <= 0 {
		maxRange = defaultMaxRangeDays
	}
	client := params.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		teams:      params.Teams,
		endpoint:   endpoint,
		timeout:    timeout,
		maxRange:   maxRange,
		httpClient: client,
		metrics:    params.Metrics,
		now:        now,
	}, nil
}

func (s *service) Dashboard(ctx context.Context, teamID uuid.UUID, q Query) (*Dashboard, error) {
	if teamID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please select a team")
	}
	start, end, err := s.window(q)
	if err != nil {
		return nil, err
	}

	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load team")
	}
	if team.FacebookToken == nil || *team.FacebookToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connect facebook before viewing the dashboard")
	}
	if team.AccountID == nil || *team.AccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ask the account owner to update Account ID")
	}

	params := url.Values{}
	params.Set("access_token", *team.FacebookToken)
	params.Set("account_id", *team.AccountID)
	params.Set("date_start", start)
	params.Set("date_end", end)
	if team.ConversionEvent != nil && *team.ConversionEvent != "" {
		params.Set("conversion_event", *team.ConversionEvent)
	}

	body, err := s.fetch(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "analytics service not contacted")
	}
	rows, err := rowsFromPayload(body)
	if err != nil {
		typed := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "analytics service returned malformed data")
		var rerr *rowError
		if errors.As(err, &rerr) {
			typed.WithDetails(map[string]any{"row": rerr.Index, "field": rerr.Field})
		}
		return nil, typed
	}

	return &Dashboard{
		DateStart: start,
		DateEnd:   end,
		Rows:      rows,
		Totals:    totalsOf(rows),
	}, nil
}

// window resolves the requested range, defaulting to the week ending yesterday.
func (s *service) window(q Query) (string, string, error) {
	startRaw, endRaw := strings.TrimSpace(q.DateStart), strings.TrimSpace(q.DateEnd)
	if startRaw == "" && endRaw == "" {
		yesterday := s.now().UTC().AddDate(0, 0, -1)
		first := yesterday.AddDate(0, 0, -(defaultWindowDays - 1))
		return first.Format(dateLayout), yesterday.Format(dateLayout), nil
	}
	if startRaw == "" || endRaw == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "date_start and date_end must be provided together")
	}

	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "date_start must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "date_end must be YYYY-MM-DD")
	}
	if start.After(end) {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "date_start must be on or before date_end")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.maxRange {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("date range cannot exceed %d days", s.maxRange))
	}
	return start.Format(dateLayout), end.Format(dateLayout), nil
}

func (s *service) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	body, err := s.do(req)
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeTimeout
	case err != nil:
		outcome = metrics.OutcomeFailure
	}
	s.metrics.Observe(metrics.UpstreamAnalytics, outcome, time.Since(start))
	return body, err
}

func (s *service) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		return nil, fmt.Errorf("analytics function status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
