// Package connectors links teams to their Facebook ad account through OAuth.
package connectors

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/internal/teams"
	"github.com/hammer-mt/FireFlask/pkg/config"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
	"github.com/hammer-mt/FireFlask/pkg/metrics"
)

// ProviderFacebook is the only connector in the catalog.
const ProviderFacebook = "facebook"

const defaultHTTPTimeout = 10 * time.Second

// UpstreamFailureMessage is shown to users when Facebook does not hand back a token.
const UpstreamFailureMessage = "facebook did not send tokens; please try connecting again"

type teamStore interface {
	Get(ctx context.Context, teamID uuid.UUID) (*teams.Team, error)
	ConnectExternalAccount(ctx context.Context, teamID uuid.UUID, token *string) error
}

// Connector is one catalog entry.
type Connector struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
}

// Service drives the connect and disconnect flows.
type Service interface {
	AuthorizeURL(ctx context.Context, state string) string
	Callback(ctx context.Context, teamID uuid.UUID, code string) error
	Disconnect(ctx context.Context, teamID uuid.UUID) error
	List(ctx context.Context, teamID uuid.UUID) ([]Connector, error)
}

// ServiceParams packages the connector dependencies. HTTPClient, Metrics and
// Logger are optional.
type ServiceParams struct {
	Teams      teamStore
	Config     config.FacebookConfig
	HTTPClient *http.Client
	Metrics    *metrics.UpstreamMetrics
	Logger     *logger.Logger
}

type service struct {
	teams    teamStore
	facebook *facebookClient
	logg     *logger.Logger
}

// NewService builds the connector service.
func NewService(params ServiceParams) (Service, error) {
	if params.Teams == nil {
		return nil, fmt.Errorf("team store required")
	}
	cfg := params.Config
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, fmt.Errorf("facebook client id, secret and redirect url are required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		teams:    params.Teams,
		facebook: newFacebookClient(cfg, params.HTTPClient, params.Metrics),
		logg:     logg,
	}, nil
}

// AuthorizeURL returns the provider consent URL carrying state.
func (s *service) AuthorizeURL(_ context.Context, state string) string {
	return s.facebook.authorizeURL(state)
}

// Callback completes the flow for a verified state: the code becomes a
// short-lived token, which becomes a long-lived token stored on the team.
func (s *service) Callback(ctx context.Context, teamID uuid.UUID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing authorization code")
	}

	shortLived, err := s.facebook.exchangeCode(ctx, code)
	if err != nil {
		return upstreamFailure(err)
	}
	longLived, err := s.facebook.exchangeLongLived(ctx, shortLived)
	if err != nil {
		return upstreamFailure(err)
	}

	if err := s.teams.ConnectExternalAccount(ctx, teamID, &longLived.AccessToken); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "store facebook token")
	}

	logCtx := s.logg.WithTeamID(ctx, teamID)
	logCtx = s.logg.WithField(logCtx, "expires_in_seconds", int64(longLived.ExpiresIn/time.Second))
	s.logg.Info(logCtx, "connectors.facebook.connected")
	return nil
}

func (s *service) Disconnect(ctx context.Context, teamID uuid.UUID) error {
	if err := s.teams.ConnectExternalAccount(ctx, teamID, nil); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "disconnect facebook")
	}
	return nil
}

func (s *service) List(ctx context.Context, teamID uuid.UUID) ([]Connector, error) {
	if teamID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please select a team")
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load team")
	}
	return []Connector{{Provider: ProviderFacebook, Connected: team.FacebookConnected}}, nil
}

func upstreamFailure(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, UpstreamFailureMessage)
}
