package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammer-mt/FireFlask/internal/memberships"
	"github.com/hammer-mt/FireFlask/internal/users"
	pkgAuth "github.com/hammer-mt/FireFlask/pkg/auth"
	"github.com/hammer-mt/FireFlask/pkg/auth/session"
	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

var testJWT = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "fireflask-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

type stubIdentity struct {
	user     *users.UserDTO
	password string
	logins   int
	created  []string
}

func (s *stubIdentity) Authenticate(_ context.Context, email, password string) (*users.UserDTO, error) {
	if s.user == nil || users.NormalizeEmail(email) != s.user.Email || password != s.password {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return s.user, nil
}

func (s *stubIdentity) CreateWithPassword(_ context.Context, email, name, _ string) (*users.UserDTO, error) {
	if s.user != nil && s.user.Email == users.NormalizeEmail(email) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}
	s.created = append(s.created, email)
	s.user = &users.UserDTO{ID: uuid.New(), Email: users.NormalizeEmail(email), Name: name}
	return s.user, nil
}

func (s *stubIdentity) RecordLogin(context.Context, uuid.UUID) error {
	s.logins++
	return nil
}

type stubTeams struct {
	teams []memberships.UserTeamDTO
	err   error
}

func (s stubTeams) ListUserTeams(context.Context, uuid.UUID) ([]memberships.UserTeamDTO, error) {
	return s.teams, s.err
}

type stubGate struct {
	role enums.TeamRole
	err  error
}

func (s stubGate) Authorize(context.Context, uuid.UUID, uuid.UUID, ...enums.TeamRole) (enums.TeamRole, error) {
	return s.role, s.err
}

// memorySessions mirrors the redis-backed manager: one refresh token per jti.
type memorySessions struct {
	tokens map[string]string
	next   int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{tokens: map[string]string{}}
}

func (m *memorySessions) token() string {
	m.next++
	return fmt.Sprintf("refresh-%d", m.next)
}

func (m *memorySessions) Generate(_ context.Context, accessID string) (string, error) {
	tok := m.token()
	m.tokens[accessID] = tok
	return tok, nil
}

func (m *memorySessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if stored, ok := m.tokens[oldAccessID]; !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	return m.Reissue(ctx, oldAccessID)
}

func (m *memorySessions) Reissue(ctx context.Context, oldAccessID string) (string, string, error) {
	if _, ok := m.tokens[oldAccessID]; !ok {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.tokens, oldAccessID)
	newID := session.NewAccessID()
	tok, err := m.Generate(ctx, newID)
	return newID, tok, err
}

func (m *memorySessions) Revoke(_ context.Context, accessID string) error {
	delete(m.tokens, accessID)
	return nil
}

type fixture struct {
	svc      Service
	identity *stubIdentity
	sessions *memorySessions
}

func buildTestService(t *testing.T, teams stubTeams, gate stubGate) fixture {
	t.Helper()
	identity := &stubIdentity{
		user:     &users.UserDTO{ID: uuid.New(), Email: "ada@example.com", Name: "Ada"},
		password: "secret-pass",
	}
	sessions := newMemorySessions()
	svc, err := NewService(ServiceParams{
		Users:          identity,
		Teams:          teams,
		Gate:           gate,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Now:            func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	return fixture{svc: svc, identity: identity, sessions: sessions}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestLoginPreselectsOnlyTeam(t *testing.T) {
	teamID := uuid.New()
	f := buildTestService(t, stubTeams{teams: []memberships.UserTeamDTO{{TeamID: teamID, TeamName: "Acme", Role: enums.TeamRoleOwner}}}, stubGate{})

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "ADA@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	require.NotNil(t, resp.ActiveTeamID)
	assert.Equal(t, teamID, *resp.ActiveTeamID)
	assert.Len(t, resp.Teams, 1)
	assert.Equal(t, 1, f.identity.logins)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.identity.user.ID, claims.UserID)
	require.NotNil(t, claims.ActiveTeamID)
	assert.Equal(t, teamID, *claims.ActiveTeamID)
	assert.Equal(t, resp.RefreshToken, f.sessions.tokens[claims.ID])
}

func TestLoginLeavesTeamUnsetWithSeveralTeams(t *testing.T) {
	f := buildTestService(t, stubTeams{teams: []memberships.UserTeamDTO{{TeamID: uuid.New()}, {TeamID: uuid.New()}}}, stubGate{})

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Nil(t, resp.ActiveTeamID)
	assert.Len(t, resp.Teams, 2)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := buildTestService(t, stubTeams{}, stubGate{})

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(context.Background(), LoginRequest{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Empty(t, f.sessions.tokens)
}

func TestLoginSurfacesTeamLookupFailure(t *testing.T) {
	f := buildTestService(t, stubTeams{err: errors.New("db down")}, stubGate{})

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret-pass"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSignUpCreatesAndSignsIn(t *testing.T) {
	f := buildTestService(t, stubTeams{}, stubGate{})
	f.identity.user = nil

	resp, err := f.svc.SignUp(context.Background(), SignUpRequest{Name: "Grace", Email: "grace@example.com", Password: "hopper1"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", resp.User.Email)
	assert.Empty(t, resp.Teams)
	assert.Nil(t, resp.ActiveTeamID)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = f.svc.SignUp(context.Background(), SignUpRequest{Name: "Grace", Email: "grace@example.com", Password: "hopper1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRefreshRotatesAndKeepsActiveTeam(t *testing.T) {
	teamID := uuid.New()
	f := buildTestService(t, stubTeams{teams: []memberships.UserTeamDTO{{TeamID: teamID}}}, stubGate{})
	ctx := context.Background()

	login, err := f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	pair, err := f.svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, pair.ActiveTeamID)
	assert.Equal(t, teamID, *pair.ActiveTeamID)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	_, err = f.svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old refresh token must not be reusable")
}

func TestRefreshRejectsForeignToken(t *testing.T) {
	f := buildTestService(t, stubTeams{}, stubGate{})

	other := testJWT
	other.Secret = "someone-else"
	forged, err := pkgAuth.MintAccessToken(other, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), forged, "whatever")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutRevokesSession(t *testing.T) {
	f := buildTestService(t, stubTeams{}, stubGate{})
	ctx := context.Background()

	login, err := f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims.ID))
	assert.Empty(t, f.sessions.tokens)
	require.NoError(t, f.svc.Logout(ctx, ""))
}

func TestSelectTeamReissuesSession(t *testing.T) {
	f := buildTestService(t, stubTeams{}, stubGate{role: enums.TeamRoleEdit})
	ctx := context.Background()

	login, err := f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	require.NoError(t, err)

	teamID := uuid.New()
	res, err := f.svc.SelectTeam(ctx, SelectTeamInput{UserID: claims.UserID, TeamID: teamID, AccessTokenID: claims.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.TeamRoleEdit, res.Role)

	next, err := pkgAuth.ParseAccessToken(testJWT, res.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, next.ActiveTeamID)
	assert.Equal(t, teamID, *next.ActiveTeamID)
	assert.NotEqual(t, claims.ID, next.ID)
	_, stillThere := f.sessions.tokens[claims.ID]
	assert.False(t, stillThere)
}

func TestSelectTeamRejectsNonMember(t *testing.T) {
	forbidden := pkgerrors.New(pkgerrors.CodeForbidden, "you are not a member of this team")
	f := buildTestService(t, stubTeams{}, stubGate{err: forbidden})

	_, err := f.svc.SelectTeam(context.Background(), SelectTeamInput{UserID: uuid.New(), TeamID: uuid.New(), AccessTokenID: "jti"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Empty(t, f.sessions.tokens)
}
