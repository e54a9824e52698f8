package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT. Team
// roles are not carried; they are looked up on every request.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	ActiveTeamID *uuid.UUID
	JTI          string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID       uuid.UUID  `json:"user_id"`
	ActiveTeamID *uuid.UUID `json:"active_team_id,omitempty"`
	jwt.RegisteredClaims
}
