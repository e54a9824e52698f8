package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/pkg/types"
)

// User is the identity record behind every session.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string         `gorm:"type:text;not null;uniqueIndex"`
	Name          string         `gorm:"column:name;not null"`
	PasswordHash  string         `gorm:"column:password_hash;not null"`
	EmailVerified bool           `gorm:"column:email_verified;not null;default:false"`
	PhotoURL      *string        `gorm:"column:photo_url"`
	Metadata      types.Metadata `gorm:"column:metadata;type:jsonb"`
	LastLoginAt   *time.Time     `gorm:"column:last_login_at"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
