package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammer-mt/FireFlask/pkg/db/models"
	"github.com/hammer-mt/FireFlask/pkg/enums"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

type edge struct {
	user uuid.UUID
	team uuid.UUID
}

type stubRoles struct {
	roles map[edge]enums.TeamRole
	err   error
	calls int
}

func (s *stubRoles) RoleLookup(_ context.Context, userID, teamID uuid.UUID) (enums.TeamRole, bool, error) {
	s.calls++
	if s.err != nil {
		return "", false, s.err
	}
	role, ok := s.roles[edge{userID, teamID}]
	return role, ok, nil
}

func TestNewGateRequiresLookup(t *testing.T) {
	_, err := NewGate(nil)
	require.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	team := uuid.New()
	reader, editor, admin, owner, outsider := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	roles := &stubRoles{roles: map[edge]enums.TeamRole{
		{reader, team}: enums.TeamRoleRead,
		{editor, team}: enums.TeamRoleEdit,
		{admin, team}:  enums.TeamRoleAdmin,
		{owner, team}:  enums.TeamRoleOwner,
	}}
	gate, err := NewGate(roles)
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    uuid.UUID
		allowed []enums.TeamRole
		wantErr pkgerrors.Code
	}{
		{name: "reader any role", user: reader, allowed: AnyRole},
		{name: "reader manage", user: reader, allowed: ManageRoles, wantErr: pkgerrors.CodeForbidden},
		{name: "editor manage", user: editor, allowed: ManageRoles, wantErr: pkgerrors.CodeForbidden},
		{name: "admin manage", user: admin, allowed: ManageRoles},
		{name: "owner manage", user: owner, allowed: ManageRoles},
		{name: "outsider any role", user: outsider, allowed: AnyRole, wantErr: pkgerrors.CodeForbidden},
		{name: "empty allow list", user: owner, wantErr: pkgerrors.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := gate.Authorize(ctx, tt.user, team, tt.allowed...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.True(t, role.IsValid())
				return
			}
			assert.True(t, pkgerrors.IsCode(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestAuthorizeRefetchesEveryCall(t *testing.T) {
	team, user := uuid.New(), uuid.New()
	roles := &stubRoles{roles: map[edge]enums.TeamRole{{user, team}: enums.TeamRoleAdmin}}
	gate, err := NewGate(roles)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = gate.Authorize(ctx, user, team, ManageRoles...)
	require.NoError(t, err)

	roles.roles[edge{user, team}] = enums.TeamRoleRead
	_, err = gate.Authorize(ctx, user, team, ManageRoles...)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Equal(t, 2, roles.calls)
}

func TestAuthorizeLookupFailure(t *testing.T) {
	gate, err := NewGate(&stubRoles{err: errors.New("db down")})
	require.NoError(t, err)
	_, err = gate.Authorize(context.Background(), uuid.New(), uuid.New(), AnyRole...)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestAuthorizeRemoval(t *testing.T) {
	team := uuid.New()
	admin, owner, editor := uuid.New(), uuid.New(), uuid.New()
	gate, err := NewGate(&stubRoles{roles: map[edge]enums.TeamRole{
		{admin, team}:  enums.TeamRoleAdmin,
		{owner, team}:  enums.TeamRoleOwner,
		{editor, team}: enums.TeamRoleEdit,
	}})
	require.NoError(t, err)
	ctx := context.Background()

	ownerEdge := &models.TeamMembership{ID: uuid.New(), TeamID: team, UserID: owner, Role: enums.TeamRoleOwner}
	readerEdge := &models.TeamMembership{ID: uuid.New(), TeamID: team, UserID: uuid.New(), Role: enums.TeamRoleRead}

	for _, actor := range []uuid.UUID{admin, owner} {
		assert.True(t, pkgerrors.IsCode(gate.AuthorizeRemoval(ctx, actor, ownerEdge), pkgerrors.CodeForbidden))
		assert.NoError(t, gate.AuthorizeRemoval(ctx, actor, readerEdge))
	}
	assert.True(t, pkgerrors.IsCode(gate.AuthorizeRemoval(ctx, editor, readerEdge), pkgerrors.CodeForbidden))
	assert.True(t, pkgerrors.IsCode(gate.AuthorizeRemoval(ctx, admin, nil), pkgerrors.CodeNotFound))
}
