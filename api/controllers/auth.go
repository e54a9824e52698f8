package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hammer-mt/FireFlask/api/middleware"
	"github.com/hammer-mt/FireFlask/api/responses"
	"github.com/hammer-mt/FireFlask/api/validators"
	"github.com/hammer-mt/FireFlask/internal/auth"
	pkgAuth "github.com/hammer-mt/FireFlask/pkg/auth"
	"github.com/hammer-mt/FireFlask/pkg/auth/cookie"
	"github.com/hammer-mt/FireFlask/pkg/config"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

type passwordResetter interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=255"`
}

// AuthHandlers groups the sign-in surface. Session tokens are returned in
// the body and mirrored into the httpOnly cookie.
type AuthHandlers struct {
	Auth    auth.Service
	Resets  passwordResetter
	JWT     config.JWTConfig
	Session config.SessionConfig
	Logger  *logger.Logger
}

func (h AuthHandlers) accessTTL() time.Duration {
	return h.JWT.AccessTokenTTL()
}

func (h AuthHandlers) SignUp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.SignUpRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		body.Name = validators.CleanText(body.Name, validators.MaxTextLen)

		result, err := h.Auth.SignUp(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}

		cookie.SetAccessToken(w, h.Session, result.AccessToken, h.accessTTL())
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func (h AuthHandlers) SignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}

		result, err := h.Auth.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}

		cookie.SetAccessToken(w, h.Session, result.AccessToken, h.accessTTL())
		responses.WriteSuccess(w, result)
	}
}

// SignOut revokes the session behind the presented token. An expired token
// still signs out; a missing one only clears the cookie.
func (h AuthHandlers) SignOut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := presentedToken(r); token != "" {
			claims, err := pkgAuth.ParseAccessTokenAllowExpired(h.JWT, token)
			if err != nil {
				responses.WriteError(r.Context(), h.Logger, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if err := h.Auth.Logout(r.Context(), claims.ID); err != nil {
				responses.WriteError(r.Context(), h.Logger, w, err)
				return
			}
		}

		cookie.ClearAccessToken(w, h.Session)
		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}

func (h AuthHandlers) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}

		token := presentedToken(r)
		if token == "" {
			responses.WriteError(r.Context(), h.Logger, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in"))
			return
		}

		pair, err := h.Auth.Refresh(r.Context(), token, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}

		cookie.SetAccessToken(w, h.Session, pair.AccessToken, h.accessTTL())
		responses.WriteSuccess(w, pair)
	}
}

// PasswordReset always answers 202 so the endpoint cannot probe for accounts.
func (h AuthHandlers) PasswordReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body passwordResetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		if err := h.Resets.RequestPasswordReset(r.Context(), body.Email); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "reset_requested"})
	}
}

func (h AuthHandlers) PasswordResetConfirm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body passwordResetConfirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		if err := h.Resets.ResetPassword(r.Context(), body.Token, body.Password); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}

// SelectTeam switches the active team and reissues the session.
func (h AuthHandlers) SelectTeam() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := uuidParam(r, "teamId")
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}

		result, err := h.Auth.SelectTeam(r.Context(), auth.SelectTeamInput{
			UserID:        middleware.UserIDFromContext(r.Context()),
			TeamID:        teamID,
			AccessTokenID: middleware.AccessIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}

		cookie.SetAccessToken(w, h.Session, result.AccessToken, h.accessTTL())
		responses.WriteSuccess(w, result)
	}
}

func presentedToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return cookie.AccessTokenFromRequest(r)
}
