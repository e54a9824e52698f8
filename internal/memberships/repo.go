package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hammer-mt/FireFlask/internal/repo"
	"github.com/hammer-mt/FireFlask/pkg/db"
	"github.com/hammer-mt/FireFlask/pkg/db/models"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

const uniqueMembershipConstraint = "team_memberships_user_team_key"

// DuplicateMembership reports an attempt to add a second edge for the same
// (user, team) pair.
func DuplicateMembership(cause error) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, "user already has access")
}

func membershipNotFound() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
}

// Repository exposes membership persistence operations.
type Repository struct {
	base repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(conn)}
}

// WithTx returns a repository that runs inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// Create inserts a membership edge. The composite unique index decides
// duplicates; a violation surfaces as DuplicateMembership.
func (r *Repository) Create(ctx context.Context, userID, teamID uuid.UUID, role enums.TeamRole) (*models.TeamMembership, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid team role %q", role))
	}

	membership := &models.TeamMembership{
		ID:     uuid.New(),
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}
	if err := r.base.DB(ctx).Create(membership).Error; err != nil {
		if db.IsUniqueViolation(err, uniqueMembershipConstraint) {
			return nil, DuplicateMembership(err)
		}
		return nil, err
	}
	return membership, nil
}

// Get loads a membership by id.
func (r *Repository) Get(ctx context.Context, membershipID uuid.UUID) (*models.TeamMembership, error) {
	var membership models.TeamMembership
	if err := r.base.FindOne(ctx, &membership, membershipNotFound(), "id = ?", membershipID); err != nil {
		return nil, err
	}
	return &membership, nil
}

// UpdateRole overwrites the role on the edge. Authority checks belong to the caller.
func (r *Repository) UpdateRole(ctx context.Context, membershipID uuid.UUID, role enums.TeamRole) error {
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid team role %q", role))
	}
	return r.base.UpdateByID(ctx, &models.TeamMembership{}, membershipID, map[string]any{"role": role}, membershipNotFound())
}

// Remove deletes the edge unconditionally.
func (r *Repository) Remove(ctx context.Context, membershipID uuid.UUID) error {
	return r.base.DeleteByID(ctx, &models.TeamMembership{}, membershipID, membershipNotFound())
}

// RemoveAllForUser deletes every edge held by the user.
func (r *Repository) RemoveAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.base.DB(ctx).Where("user_id = ?", userID).Delete(&models.TeamMembership{}).Error
}

// MembersOfTeam returns the team's edges in no particular order.
func (r *Repository) MembersOfTeam(ctx context.Context, teamID uuid.UUID) ([]models.TeamMembership, error) {
	var rows []models.TeamMembership
	if err := r.base.DB(ctx).Where("team_id = ?", teamID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TeamsOfUser returns the user's edges in no particular order.
func (r *Repository) TeamsOfUser(ctx context.Context, userID uuid.UUID) ([]models.TeamMembership, error) {
	var rows []models.TeamMembership
	if err := r.base.DB(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RoleOf scans the team's members for userID.
func (r *Repository) RoleOf(ctx context.Context, userID, teamID uuid.UUID) (enums.TeamRole, bool, error) {
	members, err := r.MembersOfTeam(ctx, teamID)
	if err != nil {
		return "", false, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return m.Role, true, nil
		}
	}
	return "", false, nil
}

// RoleLookup resolves the same answer as RoleOf through the unique index.
func (r *Repository) RoleLookup(ctx context.Context, userID, teamID uuid.UUID) (enums.TeamRole, bool, error) {
	var membership models.TeamMembership
	err := r.base.DB(ctx).
		Select("role").
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Take(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return membership.Role, true, nil
}

// ListTeamMembers returns the team's memberships joined with member profiles.
func (r *Repository) ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]TeamMemberDTO, error) {
	var rows []teamMemberRow
	err := r.base.DB(ctx).
		Model(&models.TeamMembership{}).
		Select("team_memberships.*, users.name AS member_name, users.email AS member_email").
		Joins("JOIN users ON users.id = team_memberships.user_id").
		Where("team_memberships.team_id = ?", teamID).
		Order("team_memberships.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return teamMembersFromRows(rows), nil
}

// ListUserTeams returns the teams a user belongs to with the user's role.
func (r *Repository) ListUserTeams(ctx context.Context, userID uuid.UUID) ([]UserTeamDTO, error) {
	var rows []userTeamRow
	err := r.base.DB(ctx).
		Model(&models.TeamMembership{}).
		Select("team_memberships.*, teams.name AS team_name, teams.facebook_token AS team_facebook_token").
		Joins("JOIN teams ON teams.id = team_memberships.team_id").
		Where("team_memberships.user_id = ?", userID).
		Order("teams.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return userTeamsFromRows(rows), nil
}
