package teams

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hammer-mt/FireFlask/internal/authz"
	"github.com/hammer-mt/FireFlask/internal/memberships"
	"github.com/hammer-mt/FireFlask/internal/users"
	"github.com/hammer-mt/FireFlask/pkg/db"
	"github.com/hammer-mt/FireFlask/pkg/db/models"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

type teamRepository interface {
	Get(ctx context.Context, teamID uuid.UUID) (*Team, error)
	Update(ctx context.Context, teamID uuid.UUID, name, accountID, conversionEvent string) error
}

type membershipRepository interface {
	Create(ctx context.Context, userID, teamID uuid.UUID, role enums.TeamRole) (*models.TeamMembership, error)
	Get(ctx context.Context, membershipID uuid.UUID) (*models.TeamMembership, error)
	UpdateRole(ctx context.Context, membershipID uuid.UUID, role enums.TeamRole) error
	Remove(ctx context.Context, membershipID uuid.UUID) error
	ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]memberships.TeamMemberDTO, error)
	ListUserTeams(ctx context.Context, userID uuid.UUID) ([]memberships.UserTeamDTO, error)
}

type accessGate interface {
	Authorize(ctx context.Context, userID, teamID uuid.UUID, allowed ...enums.TeamRole) (enums.TeamRole, error)
	AuthorizeRemoval(ctx context.Context, actorID uuid.UUID, membership *models.TeamMembership) error
}

type userDirectory interface {
	FindByEmail(ctx context.Context, email string) (*users.UserDTO, error)
	Invite(ctx context.Context, email, name string) (*users.UserDTO, string, error)
}

// Service exposes role-gated team operations.
type Service interface {
	CreateTeam(ctx context.Context, userID uuid.UUID, input CreateTeamInput) (*TeamView, error)
	ListTeams(ctx context.Context, userID uuid.UUID) ([]memberships.UserTeamDTO, error)
	ViewTeam(ctx context.Context, userID, teamID uuid.UUID) (*TeamView, error)
	UpdateTeam(ctx context.Context, userID, teamID uuid.UUID, input UpdateTeamInput) (*Team, error)
	InviteMember(ctx context.Context, userID, teamID uuid.UUID, input InviteMemberInput) (*InviteResult, error)
	UpdateMemberRole(ctx context.Context, userID, membershipID uuid.UUID, role enums.TeamRole) (*memberships.MembershipDTO, error)
	RemoveMember(ctx context.Context, userID, membershipID uuid.UUID) error
}

// ServiceParams packages the team service dependencies.
type ServiceParams struct {
	DB          *db.Client
	Teams       teamRepository
	Memberships membershipRepository
	Gate        accessGate
	Users       userDirectory
}

type service struct {
	db          *db.Client
	teams       teamRepository
	memberships membershipRepository
	gate        accessGate
	users       userDirectory
}

// NewService builds a team service with the provided repositories.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Teams == nil {
		return nil, fmt.Errorf("team repository required")
	}
	if params.Memberships == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("authorization gate required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	return &service{
		db:          params.DB,
		teams:       params.Teams,
		memberships: params.Memberships,
		gate:        params.Gate,
		users:       params.Users,
	}, nil
}

// CreateTeam stores the team and the creator's OWNER edge in one transaction.
func (s *service) CreateTeam(ctx context.Context, userID uuid.UUID, input CreateTeamInput) (*TeamView, error) {
	var created *Team
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		team, err := NewRepository(tx).Create(ctx, input.Name)
		if err != nil {
			return err
		}
		if _, err := memberships.NewRepository(tx).Create(ctx, userID, team.ID, enums.TeamRoleOwner); err != nil {
			return err
		}
		created = team
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "create team")
	}
	return s.view(ctx, created, enums.TeamRoleOwner)
}

func (s *service) ListTeams(ctx context.Context, userID uuid.UUID) ([]memberships.UserTeamDTO, error) {
	list, err := s.memberships.ListUserTeams(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list teams")
	}
	return list, nil
}

func (s *service) ViewTeam(ctx context.Context, userID, teamID uuid.UUID) (*TeamView, error) {
	role, err := s.gate.Authorize(ctx, userID, teamID, authz.AnyRole...)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load team")
	}
	return s.view(ctx, team, role)
}

func (s *service) view(ctx context.Context, team *Team, role enums.TeamRole) (*TeamView, error) {
	members, err := s.memberships.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list team members")
	}
	return &TeamView{Team: *team, Role: role, Members: members}, nil
}

func (s *service) UpdateTeam(ctx context.Context, userID, teamID uuid.UUID, input UpdateTeamInput) (*Team, error) {
	if _, err := s.gate.Authorize(ctx, userID, teamID, authz.ManageRoles...); err != nil {
		return nil, err
	}
	if err := s.teams.Update(ctx, teamID, input.Name, input.AccountID, input.ConversionEvent); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "update team")
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load team")
	}
	return team, nil
}

func (s *service) InviteMember(ctx context.Context, userID, teamID uuid.UUID, input InviteMemberInput) (*InviteResult, error) {
	if _, err := s.gate.Authorize(ctx, userID, teamID, authz.ManageRoles...); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = enums.TeamRoleRead
	}
	if !role.In(enums.TeamRoleRead, enums.TeamRoleEdit, enums.TeamRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be READ, EDIT or ADMIN")
	}
	email := users.NormalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	result := &InviteResult{}
	invitee, err := s.users.FindByEmail(ctx, email)
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		invitee, result.TempPassword, err = s.users.Invite(ctx, email, strings.TrimSpace(input.Name))
		if err != nil {
			return nil, err
		}
		result.UserCreated = true
	case err != nil:
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "look up invitee")
	}

	membership, err := s.memberships.Create(ctx, invitee.ID, teamID, role)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "create membership")
	}
	result.Membership = *memberships.ToDTO(membership)
	return result, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, userID, membershipID uuid.UUID, role enums.TeamRole) (*memberships.MembershipDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid team role")
	}
	if role == enums.TeamRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ownership cannot be granted")
	}

	membership, err := s.loadMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.Authorize(ctx, userID, membership.TeamID, authz.ManageRoles...); err != nil {
		return nil, err
	}
	if membership.Role == enums.TeamRoleOwner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot change the owner's role")
	}

	if err := s.memberships.UpdateRole(ctx, membershipID, role); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "update role")
	}
	membership.Role = role
	return memberships.ToDTO(membership), nil
}

func (s *service) RemoveMember(ctx context.Context, userID, membershipID uuid.UUID) error {
	membership, err := s.loadMembership(ctx, membershipID)
	if err != nil {
		return err
	}
	if err := s.gate.AuthorizeRemoval(ctx, userID, membership); err != nil {
		return err
	}
	if err := s.memberships.Remove(ctx, membershipID); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "remove membership")
	}
	return nil
}

// loadMembership reports a missing edge the same way the gate reports a
// caller outside the team, so membership ids cannot be probed.
func (s *service) loadMembership(ctx context.Context, membershipID uuid.UUID) (*models.TeamMembership, error) {
	membership, err := s.memberships.Get(ctx, membershipID)
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you are not a member of this team")
	case err != nil:
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load membership")
	}
	return membership, nil
}
