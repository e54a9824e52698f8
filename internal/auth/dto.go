package auth

import (
	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/internal/memberships"
	"github.com/hammer-mt/FireFlask/internal/users"
	"github.com/hammer-mt/FireFlask/pkg/enums"
)

// LoginRequest captures the user credentials sent to the sign-in endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest captures the fields of a new account.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=255"`
}

// LoginResponse contains the tokens, user, and team list produced by a successful login.
type LoginResponse struct {
	AccessToken  string                    `json:"access_token"`
	RefreshToken string                    `json:"refresh_token"`
	ActiveTeamID *uuid.UUID                `json:"active_team_id,omitempty"`
	Teams        []memberships.UserTeamDTO `json:"teams"`
	User         *users.UserDTO            `json:"user"`
}

// TokenPair is a freshly minted access token with its refresh token.
type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ActiveTeamID *uuid.UUID `json:"active_team_id,omitempty"`
}

// SelectTeamInput captures the data required to switch the active team.
type SelectTeamInput struct {
	UserID        uuid.UUID
	TeamID        uuid.UUID
	AccessTokenID string
}

// SelectTeamResult returns the tokens issued after switching teams.
type SelectTeamResult struct {
	TokenPair
	Role enums.TeamRole `json:"role"`
}
