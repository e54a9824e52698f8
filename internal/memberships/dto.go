package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/pkg/db/models"
	"github.com/hammer-mt/FireFlask/pkg/enums"
)

// MembershipDTO is the transport shape for a raw membership edge.
type MembershipDTO struct {
	ID        uuid.UUID      `json:"id"`
	TeamID    uuid.UUID      `json:"team_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.TeamRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TeamMemberDTO mixes membership metadata with the member's profile for team views.
type TeamMemberDTO struct {
	MembershipID uuid.UUID      `json:"membership_id"`
	TeamID       uuid.UUID      `json:"team_id"`
	UserID       uuid.UUID      `json:"user_id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Role         enums.TeamRole `json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
}

// UserTeamDTO is one entry of a user's team list.
type UserTeamDTO struct {
	MembershipID      uuid.UUID      `json:"membership_id"`
	TeamID            uuid.UUID      `json:"team_id"`
	TeamName          string         `json:"team_name"`
	Role              enums.TeamRole `json:"role"`
	FacebookConnected bool           `json:"facebook_connected"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.TeamMembership) *MembershipDTO {
	if m == nil {
		return nil
	}
	return &MembershipDTO{
		ID:        m.ID,
		TeamID:    m.TeamID,
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
