// Package authz decides whether a user may act on a team.
package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/pkg/db/models"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

var (
	// AnyRole admits every team member.
	AnyRole = []enums.TeamRole{enums.TeamRoleRead, enums.TeamRoleEdit, enums.TeamRoleAdmin, enums.TeamRoleOwner}
	// ManageRoles admits the members allowed to change the team and its roster.
	ManageRoles = []enums.TeamRole{enums.TeamRoleAdmin, enums.TeamRoleOwner}
)

type roleLookup interface {
	RoleLookup(ctx context.Context, userID, teamID uuid.UUID) (enums.TeamRole, bool, error)
}

// Gate resolves the caller's role fresh on every check.
type Gate struct {
	roles roleLookup
}

// NewGate builds a gate over the membership graph.
func NewGate(roles roleLookup) (*Gate, error) {
	if roles == nil {
		return nil, fmt.Errorf("role lookup required")
	}
	return &Gate{roles: roles}, nil
}

// Authorize returns the caller's role on teamID when it is one of allowed.
func (g *Gate) Authorize(ctx context.Context, userID, teamID uuid.UUID, allowed ...enums.TeamRole) (enums.TeamRole, error) {
	role, ok, err := g.roles.RoleLookup(ctx, userID, teamID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve team role")
	}
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "you are not a member of this team")
	}
	if !role.In(allowed...) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "you don't have access")
	}
	return role, nil
}

// AuthorizeRemoval checks that actorID may delete membership. Owners can never
// be removed.
func (g *Gate) AuthorizeRemoval(ctx context.Context, actorID uuid.UUID, membership *models.TeamMembership) error {
	if membership == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
	}
	if membership.Role == enums.TeamRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete the owner of the team")
	}
	_, err := g.Authorize(ctx, actorID, membership.TeamID, ManageRoles...)
	return err
}
