package teams

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/internal/memberships"
	"github.com/hammer-mt/FireFlask/pkg/db/models"
	"github.com/hammer-mt/FireFlask/pkg/enums"
)

// Team is the registry's view of a tenant. The token never leaves the server.
type Team struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	AccountID         *string   `json:"account_id"`
	ConversionEvent   *string   `json:"conversion_event"`
	FacebookConnected bool      `json:"facebook_connected"`
	FacebookToken     *string   `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TeamView is a team together with its roster and the caller's role.
type TeamView struct {
	Team
	Role    enums.TeamRole              `json:"role"`
	Members []memberships.TeamMemberDTO `json:"members"`
}

// CreateTeamInput captures the fields accepted when creating a team.
type CreateTeamInput struct {
	Name string
}

// UpdateTeamInput is a full overwrite; empty strings clear the field.
type UpdateTeamInput struct {
	Name            string
	AccountID       string
	ConversionEvent string
}

// InviteMemberInput identifies the invitee and the role they receive.
type InviteMemberInput struct {
	Email string
	Name  string
	Role  enums.TeamRole
}

// InviteResult reports the new edge. TempPassword is set only when the
// invitee's account was created by this invite.
type InviteResult struct {
	Membership   memberships.MembershipDTO `json:"membership"`
	UserCreated  bool                      `json:"user_created"`
	TempPassword string                    `json:"temp_password,omitempty"`
}

// FromModel maps a stored row into a Team.
func FromModel(m *models.Team) *Team {
	if m == nil {
		return nil
	}
	return &Team{
		ID:                m.ID,
		Name:              m.Name,
		AccountID:         copyString(m.AccountID),
		ConversionEvent:   copyString(m.ConversionEvent),
		FacebookConnected: m.FacebookToken != nil && *m.FacebookToken != "",
		FacebookToken:     copyString(m.FacebookToken),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func copyString(src *string) *string {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}

func nullable(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
