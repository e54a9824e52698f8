package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/internal/authz"
	"github.com/hammer-mt/FireFlask/internal/memberships"
	"github.com/hammer-mt/FireFlask/internal/users"
	pkgAuth "github.com/hammer-mt/FireFlask/pkg/auth"
	"github.com/hammer-mt/FireFlask/pkg/auth/session"
	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	SignUp(ctx context.Context, req SignUpRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessTokenID string) error
	SelectTeam(ctx context.Context, input SelectTeamInput) (*SelectTeamResult, error)
}

type identityStore interface {
	Authenticate(ctx context.Context, email, password string) (*users.UserDTO, error)
	CreateWithPassword(ctx context.Context, email, name, password string) (*users.UserDTO, error)
	RecordLogin(ctx context.Context, userID uuid.UUID) error
}

type teamLister interface {
	ListUserTeams(ctx context.Context, userID uuid.UUID) ([]memberships.UserTeamDTO, error)
}

type roleGate interface {
	Authorize(ctx context.Context, userID, teamID uuid.UUID, allowed ...enums.TeamRole) (enums.TeamRole, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Reissue(ctx context.Context, oldAccessID string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          identityStore
	Teams          teamLister
	Gate           roleGate
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	users   identityStore
	teams   teamLister
	gate    roleGate
	session sessionManager
	jwtCfg  config.JWTConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if params.Teams == nil {
		return nil, fmt.Errorf("team lister is required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("authorization gate is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:   params.Users,
		teams:   params.Teams,
		gate:    params.Gate,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
		logg:    logg,
		now:     now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	user, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// SignUp creates the account and signs it in. Verification mail is sent by
// an external collaborator, so only the request is logged here.
func (s *service) SignUp(ctx context.Context, req SignUpRequest) (*LoginResponse, error) {
	user, err := s.users.CreateWithPassword(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithUserID(ctx, user.ID)
	s.logg.Info(logCtx, "email verification requested")
	return s.startSession(ctx, user)
}

func (s *service) startSession(ctx context.Context, user *users.UserDTO) (*LoginResponse, error) {
	teams, err := s.teams.ListUserTeams(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list teams")
	}
	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		return nil, err
	}

	var activeTeamID *uuid.UUID
	if len(teams) == 1 {
		id := teams[0].TeamID
		activeTeamID = &id
	}

	pair, err := s.mint(ctx, user.ID, activeTeamID, "")
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ActiveTeamID: activeTeamID,
		Teams:        teams,
		User:         user,
	}, nil
}

// Refresh rotates the refresh token and re-mints the access token carrying
// the same active team. The access token may be expired but must be signed.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	newAccessID, newRefresh, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		return nil, sessionError(err, "rotate session")
	}
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:       claims.UserID,
		ActiveTeamID: claims.ActiveTeamID,
		JTI:          newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: token, RefreshToken: newRefresh, ActiveTeamID: claims.ActiveTeamID}, nil
}

func (s *service) Logout(ctx context.Context, accessTokenID string) error {
	if strings.TrimSpace(accessTokenID) == "" {
		return nil
	}
	if err := s.session.Revoke(ctx, accessTokenID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// SelectTeam makes teamID the active team. The session moves to a new access
// id so the previous token stops working.
func (s *service) SelectTeam(ctx context.Context, input SelectTeamInput) (*SelectTeamResult, error) {
	role, err := s.gate.Authorize(ctx, input.UserID, input.TeamID, authz.AnyRole...)
	if err != nil {
		return nil, err
	}
	teamID := input.TeamID
	pair, err := s.mint(ctx, input.UserID, &teamID, input.AccessTokenID)
	if err != nil {
		return nil, err
	}
	return &SelectTeamResult{TokenPair: *pair, Role: role}, nil
}

// mint issues an access token and its refresh session. A non-empty
// previousAccessID moves that session instead of starting a new one.
func (s *service) mint(ctx context.Context, userID uuid.UUID, activeTeamID *uuid.UUID, previousAccessID string) (*TokenPair, error) {
	var (
		accessID string
		refresh  string
		err      error
	)
	if previousAccessID == "" {
		accessID = session.NewAccessID()
		refresh, err = s.session.Generate(ctx, accessID)
	} else {
		accessID, refresh, err = s.session.Reissue(ctx, previousAccessID)
	}
	if err != nil {
		return nil, sessionError(err, "store refresh token")
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:       userID,
		ActiveTeamID: activeTeamID,
		JTI:          accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: token, RefreshToken: refresh, ActiveTeamID: activeTeamID}, nil
}

func sessionError(err error, msg string) error {
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
