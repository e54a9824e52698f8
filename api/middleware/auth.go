package middleware

import (
	"net/http"
	"strings"

	"github.com/hammer-mt/FireFlask/api/responses"
	pkgAuth "github.com/hammer-mt/FireFlask/pkg/auth"
	"github.com/hammer-mt/FireFlask/pkg/auth/cookie"
	"github.com/hammer-mt/FireFlask/pkg/auth/session"
	"github.com/hammer-mt/FireFlask/pkg/config"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

// Auth validates the access token and seeds the request context with the
// claims. The Authorization header wins; browser navigations fall back to
// the session cookie.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = cookie.AccessTokenFromRequest(r)
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = WithAccessID(ctx, claims.ID)
			if claims.ActiveTeamID != nil {
				ctx = WithActiveTeamID(ctx, *claims.ActiveTeamID)
			}

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
				if claims.ActiveTeamID != nil {
					ctx = logg.WithTeamID(ctx, *claims.ActiveTeamID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
