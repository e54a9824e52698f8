package controllers

import (
	"net/http"
	"strings"

	"github.com/hammer-mt/FireFlask/api/middleware"
	"github.com/hammer-mt/FireFlask/api/responses"
	"github.com/hammer-mt/FireFlask/internal/analytics"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

func Dashboard(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		result, err := svc.Dashboard(r.Context(), middleware.ActiveTeamIDFromContext(r.Context()), analytics.Query{
			DateStart: strings.TrimSpace(query.Get("date_start")),
			DateEnd:   strings.TrimSpace(query.Get("date_end")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
