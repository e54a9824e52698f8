package controllers

import (
	"net/http"

	"github.com/hammer-mt/FireFlask/api/middleware"
	"github.com/hammer-mt/FireFlask/api/responses"
	"github.com/hammer-mt/FireFlask/api/validators"
	"github.com/hammer-mt/FireFlask/internal/users"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

type profileRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	JobTitle string `json:"job_title" validate:"max=255"`
}

type photoRequest struct {
	PhotoURL string `json:"photo_url" validate:"required,url"`
}

func ProfileGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.GetProfile(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func ProfileUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body profileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), users.ProfileUpdate{
			Name:     validators.CleanText(body.Name, validators.MaxTextLen),
			Email:    body.Email,
			JobTitle: validators.CleanText(body.JobTitle, validators.MaxTextLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func ProfilePhoto(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body photoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := svc.UpdatePhoto(r.Context(), middleware.UserIDFromContext(r.Context()), body.PhotoURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
