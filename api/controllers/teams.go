package controllers

import (
	"net/http"
	"strings"

	"github.com/hammer-mt/FireFlask/api/middleware"
	"github.com/hammer-mt/FireFlask/api/responses"
	"github.com/hammer-mt/FireFlask/api/validators"
	"github.com/hammer-mt/FireFlask/internal/teams"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/logger"
)

type createTeamRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type updateTeamRequest struct {
	Name            string `json:"name" validate:"required,max=255"`
	AccountID       string `json:"account_id" validate:"max=255"`
	ConversionEvent string `json:"conversion_event" validate:"max=255"`
}

type inviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=255"`
	Role  string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func TeamsList(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListTeams(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func TeamsCreate(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createTeamRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.CreateTeam(r.Context(), middleware.UserIDFromContext(r.Context()), teams.CreateTeamInput{
			Name: validators.CleanText(body.Name, validators.MaxTextLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func TeamsGet(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := uuidParam(r, "teamId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ViewTeam(r.Context(), middleware.UserIDFromContext(r.Context()), teamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func TeamsUpdate(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := uuidParam(r, "teamId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateTeamRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		team, err := svc.UpdateTeam(r.Context(), middleware.UserIDFromContext(r.Context()), teamID, teams.UpdateTeamInput{
			Name:            validators.CleanText(body.Name, validators.MaxTextLen),
			AccountID:       validators.CleanText(body.AccountID, validators.MaxTextLen),
			ConversionEvent: validators.CleanText(body.ConversionEvent, validators.MaxTextLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, team)
	}
}

func TeamsInviteMember(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := uuidParam(r, "teamId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body inviteMemberRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var role enums.TeamRole
		if strings.TrimSpace(body.Role) != "" {
			role, err = parseRole(body.Role)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.InviteMember(r.Context(), middleware.UserIDFromContext(r.Context()), teamID, teams.InviteMemberInput{
			Email: body.Email,
			Name:  validators.CleanText(body.Name, validators.MaxTextLen),
			Role:  role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func MembershipUpdateRole(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		membershipID, err := uuidParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := parseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		membership, err := svc.UpdateMemberRole(r.Context(), middleware.UserIDFromContext(r.Context()), membershipID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, membership)
	}
}

func MembershipRemove(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		membershipID, err := uuidParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveMember(r.Context(), middleware.UserIDFromContext(r.Context()), membershipID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func parseRole(raw string) (enums.TeamRole, error) {
	role, err := enums.ParseTeamRole(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "role must be READ, EDIT or ADMIN").WithDetails(map[string]any{"field": "role"})
	}
	return role, nil
}
