package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxTeamID   contextKey = "active_team_id"
	ctxAccessID contextKey = "access_id"
	ctxTeamRole contextKey = "team_role"
)

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// ActiveTeamIDFromContext returns the team selected in the access token, or uuid.Nil.
func ActiveTeamIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxTeamID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// AccessIDFromContext returns the jti of the access token on the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// TeamRoleFromContext returns the role resolved by RequireTeamRoles.
func TeamRoleFromContext(ctx context.Context) enums.TeamRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTeamRole).(enums.TeamRole); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithActiveTeamID injects the active team identifier for downstream handlers.
func WithActiveTeamID(ctx context.Context, teamID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTeamID, teamID)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}

func withTeamRole(ctx context.Context, role enums.TeamRole) context.Context {
	return context.WithValue(ctx, ctxTeamRole, role)
}
