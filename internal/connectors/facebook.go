package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/metrics"
)

const maxTokenResponseBytes = 1 << 16

var errEmptyToken = errors.New("empty access token")

// longLivedTokenResponse is the Graph API reply to a fb_exchange_token grant.
type longLivedTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LongLivedToken is the credential persisted on a team.
type LongLivedToken struct {
	AccessToken string
	ExpiresIn   time.Duration
}

func toLongLivedToken(resp longLivedTokenResponse) (LongLivedToken, error) {
	token := strings.TrimSpace(resp.AccessToken)
	if token == "" {
		return LongLivedToken{}, errEmptyToken
	}
	return LongLivedToken{
		AccessToken: token,
		ExpiresIn:   time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// facebookClient performs the two token calls of the Facebook login flow.
type facebookClient struct {
	oauth      *oauth2.Config
	cfg        config.FacebookConfig
	httpClient *http.Client
	metrics    *metrics.UpstreamMetrics
}

func newFacebookClient(cfg config.FacebookConfig, httpClient *http.Client, m *metrics.UpstreamMetrics) *facebookClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &facebookClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpointFor(cfg),
		},
		cfg:        cfg,
		httpClient: httpClient,
		metrics:    m,
	}
}

// endpointFor pins the stock Facebook endpoint to the configured Graph version.
func endpointFor(cfg config.FacebookConfig) oauth2.Endpoint {
	ep := facebook.Endpoint
	if cfg.DialogBaseURL != "" && cfg.GraphVersion != "" {
		ep.AuthURL = fmt.Sprintf("%s/%s/dialog/oauth", strings.TrimRight(cfg.DialogBaseURL, "/"), cfg.GraphVersion)
	}
	if cfg.GraphBaseURL != "" && cfg.GraphVersion != "" {
		ep.TokenURL = exchangeURL(cfg)
	}
	ep.AuthStyle = oauth2.AuthStyleInParams
	return ep
}

func exchangeURL(cfg config.FacebookConfig) string {
	return fmt.Sprintf("%s/%s/oauth/access_token", strings.TrimRight(cfg.GraphBaseURL, "/"), cfg.GraphVersion)
}

func (c *facebookClient) authorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// exchangeCode trades the callback code for a short-lived user token.
func (c *facebookClient) exchangeCode(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := c.oauth.Exchange(ctx, code)
	c.observe(metrics.UpstreamFacebookToken, start, err)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return "", errEmptyToken
	}
	return tok.AccessToken, nil
}

// exchangeLongLived upgrades a short-lived token with the fb_exchange_token grant.
func (c *facebookClient) exchangeLongLived(ctx context.Context, shortLived string) (LongLivedToken, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("client_secret", c.cfg.ClientSecret)
	q.Set("fb_exchange_token", shortLived)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exchangeURL(c.cfg)+"?"+q.Encode(), nil)
	if err != nil {
		return LongLivedToken{}, fmt.Errorf("build exchange request: %w", err)
	}

	start := time.Now()
	token, err := c.doLongLived(req)
	c.observe(metrics.UpstreamFacebookExchange, start, err)
	return token, err
}

func (c *facebookClient) doLongLived(req *http.Request) (LongLivedToken, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LongLivedToken{}, fmt.Errorf("long-lived exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return LongLivedToken{}, fmt.Errorf("read exchange response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LongLivedToken{}, fmt.Errorf("long-lived exchange: status %d", resp.StatusCode)
	}

	var decoded longLivedTokenResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return LongLivedToken{}, fmt.Errorf("decode exchange response: %w", err)
	}
	return toLongLivedToken(decoded)
}

func (c *facebookClient) observe(upstream string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeTimeout
	case err != nil:
		outcome = metrics.OutcomeFailure
	}
	c.metrics.Observe(upstream, outcome, time.Since(start))
}
