package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a tenant sharing one ad-account linkage. A nil FacebookToken means
// the team is not connected.
type Team struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	AccountID       *string   `gorm:"column:account_id"`
	ConversionEvent *string   `gorm:"column:conversion_event"`
	FacebookToken   *string   `gorm:"column:facebook_token"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
