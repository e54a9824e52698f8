package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammer-mt/FireFlask/pkg/db/models"
	"github.com/hammer-mt/FireFlask/pkg/types"
)

// MetadataJobTitle is the metadata key holding the user's job title.
const MetadataJobTitle = "job_title"

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	JobTitle      string     `json:"job_title"`
	EmailVerified bool       `json:"email_verified"`
	PhotoURL      *string    `json:"photo_url,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	Name         string
	PasswordHash string
	JobTitle     string
}

// ProfileUpdate is the full set of mutable profile fields.
type ProfileUpdate struct {
	Name     string
	Email    string
	JobTitle string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		JobTitle:      u.Metadata.Get(MetadataJobTitle),
		EmailVerified: u.EmailVerified,
		PhotoURL:      u.PhotoURL,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	meta := types.Metadata{}
	if c.JobTitle != "" {
		meta[MetadataJobTitle] = c.JobTitle
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(c.Email),
		Name:         strings.TrimSpace(c.Name),
		PasswordHash: c.PasswordHash,
		Metadata:     meta,
	}
}

// NormalizeEmail lower-cases and trims an address so lookups ignore case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
