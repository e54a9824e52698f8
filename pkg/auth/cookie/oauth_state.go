package cookie

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/security"
)

// OAuthSessionName is the cookie holding the in-flight OAuth state.
const OAuthSessionName = "fireflask_oauth"

const (
	sessionKeyState  = "state"
	sessionKeyTeamID = "team_id"

	stateBytes     = 32
	stateMaxAgeSec = 600
)

// ErrStateMismatch means the callback state is missing or differs from the
// value issued at authorize time.
var ErrStateMismatch = errors.New("oauth state mismatch")

// OAuthStateStore keeps the CSRF state for the connector redirect dance in a
// signed cookie.
type OAuthStateStore struct {
	store *sessions.CookieStore
}

// NewOAuthStateStore derives the signing key from the configured secret.
// SameSite is Lax because the provider redirects back with a top-level GET.
func NewOAuthStateStore(cfg config.SessionConfig) (*OAuthStateStore, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	key := sha256.Sum256([]byte(cfg.Secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   stateMaxAgeSec,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return &OAuthStateStore{store: store}, nil
}

// Begin issues a fresh state bound to teamID and writes it to the response.
func (s *OAuthStateStore) Begin(w http.ResponseWriter, r *http.Request, teamID uuid.UUID) (string, error) {
	// a cookie signed with an old secret still yields a fresh session
	sess, err := s.store.Get(r, OAuthSessionName)
	if sess == nil {
		return "", fmt.Errorf("open oauth session: %w", err)
	}

	state, err := security.RandomToken(stateBytes)
	if err != nil {
		return "", err
	}
	sess.Values[sessionKeyState] = state
	sess.Values[sessionKeyTeamID] = teamID.String()
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("save oauth session: %w", err)
	}
	return state, nil
}

// Verify checks the callback state against the cookie and returns the team
// the flow was started for. The stored state is cleared on every call so a
// state value can only be used once.
func (s *OAuthStateStore) Verify(w http.ResponseWriter, r *http.Request, provided string) (uuid.UUID, error) {
	sess, err := s.store.Get(r, OAuthSessionName)
	if err != nil || sess.IsNew {
		return uuid.Nil, ErrStateMismatch
	}

	stored, _ := sess.Values[sessionKeyState].(string)
	rawTeam, _ := sess.Values[sessionKeyTeamID].(string)

	delete(sess.Values, sessionKeyState)
	delete(sess.Values, sessionKeyTeamID)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return uuid.Nil, fmt.Errorf("clear oauth session: %w", err)
	}

	if !security.EqualTokens(stored, provided) {
		return uuid.Nil, ErrStateMismatch
	}
	teamID, err := uuid.Parse(rawTeam)
	if err != nil {
		return uuid.Nil, ErrStateMismatch
	}
	return teamID, nil
}
