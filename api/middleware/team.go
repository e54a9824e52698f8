package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/api/responses"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

// RoleAuthorizer resolves the caller's role on a team, failing when the role
// is not in allowed.
type RoleAuthorizer interface {
	Authorize(ctx context.Context, userID, teamID uuid.UUID, allowed ...enums.TeamRole) (enums.TeamRole, error)
}

// TeamContext rejects requests whose token has no active team.
func TeamContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ActiveTeamIDFromContext(r.Context()) == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "please select a team"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTeamRoles checks the caller's current role on the active team. The
// role is read from storage on every request, never from the token.
func RequireTeamRoles(gate RoleAuthorizer, logg *logger.Logger, allowed ...enums.TeamRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if gate == nil || len(allowed) == 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team authorization misconfigured"))
				return
			}

			userID := UserIDFromContext(ctx)
			if userID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			teamID := ActiveTeamIDFromContext(ctx)
			if teamID == uuid.Nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "please select a team"))
				return
			}

			role, err := gate.Authorize(ctx, userID, teamID, allowed...)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = withTeamRole(ctx, role)
			if logg != nil {
				ctx = logg.WithRole(ctx, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
