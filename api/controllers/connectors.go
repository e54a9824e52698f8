package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/api/middleware"
	"github.com/hammer-mt/FireFlask/api/responses"
	"github.com/hammer-mt/FireFlask/internal/connectors"
	"github.com/hammer-mt/FireFlask/pkg/auth/cookie"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

const (
	callbackStatusConnected = "connected"
	callbackStatusError     = "error"

	msgStateMismatch   = "oauth state mismatch"
	msgProviderDenied  = "facebook authorization was cancelled"
	msgCallbackGeneric = "could not connect facebook; please try again"
)

type oauthStateStore interface {
	Begin(w http.ResponseWriter, r *http.Request, teamID uuid.UUID) (string, error)
	Verify(w http.ResponseWriter, r *http.Request, provided string) (uuid.UUID, error)
}

// ConnectorHandlers drives the Facebook redirect dance. ReturnURL is where
// the browser lands once the callback finishes.
type ConnectorHandlers struct {
	Connectors connectors.Service
	State      oauthStateStore
	ReturnURL  string
	Logger     *logger.Logger
}

func (h ConnectorHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.Connectors.List(r.Context(), middleware.ActiveTeamIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Connect binds a fresh state to the active team and sends the browser to
// the provider consent page.
func (h ConnectorHandlers) Connect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := middleware.ActiveTeamIDFromContext(r.Context())
		state, err := h.State.Begin(w, r, teamID)
		if err != nil {
			responses.WriteError(r.Context(), h.Logger, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "begin oauth"))
			return
		}
		http.Redirect(w, r, h.Connectors.AuthorizeURL(r.Context(), state), http.StatusFound)
	}
}

// Callback always answers with a redirect back to the app; failures are
// carried in the query string.
func (h ConnectorHandlers) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		teamID, err := h.State.Verify(w, r, query.Get("state"))
		if err != nil || teamID != middleware.ActiveTeamIDFromContext(ctx) {
			if err == nil {
				err = cookie.ErrStateMismatch
			}
			h.fail(ctx, w, r, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, msgStateMismatch))
			return
		}

		if providerErr := strings.TrimSpace(query.Get("error")); providerErr != "" {
			h.fail(ctx, w, r, pkgerrors.New(pkgerrors.CodeValidation, msgProviderDenied).WithDetails(map[string]any{"provider_error": providerErr}))
			return
		}

		if err := h.Connectors.Callback(ctx, teamID, query.Get("code")); err != nil {
			h.fail(ctx, w, r, err)
			return
		}

		if h.Logger != nil {
			h.Logger.Info(h.Logger.WithField(ctx, "provider", connectors.ProviderFacebook), "connector.connected")
		}
		h.redirect(w, r, url.Values{"status": {callbackStatusConnected}})
	}
}

func (h ConnectorHandlers) Disconnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Connectors.Disconnect(r.Context(), middleware.ActiveTeamIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), h.Logger, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func (h ConnectorHandlers) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	if h.Logger != nil {
		logCtx := h.Logger.WithFields(ctx, pkgerrors.Dump(err).Fields())
		h.Logger.Warn(logCtx, "connector.callback_failed")
	}
	h.redirect(w, r, url.Values{
		"status":  {callbackStatusError},
		"message": {callbackMessage(err)},
	})
}

func (h ConnectorHandlers) redirect(w http.ResponseWriter, r *http.Request, params url.Values) {
	target, err := url.Parse(h.ReturnURL)
	if err != nil {
		responses.WriteError(r.Context(), h.Logger, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid connectors url"))
		return
	}
	q := target.Query()
	for key, values := range params {
		q[key] = values
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func callbackMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal && typed.Message() != "" {
		return typed.Message()
	}
	return msgCallbackGeneric
}
