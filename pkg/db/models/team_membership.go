package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/pkg/enums"
)

// TeamMembership is the role-tagged edge between a user and a team. The pair
// (user_id, team_id) is unique.
type TeamMembership struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TeamID    uuid.UUID      `gorm:"column:team_id;type:uuid;not null"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null"`
	Role      enums.TeamRole `gorm:"column:role;type:team_role;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
