package users

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hammer-mt/FireFlask/internal/repo"
	"github.com/hammer-mt/FireFlask/pkg/db"
	"github.com/hammer-mt/FireFlask/pkg/db/models"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/types"
)

const uniqueEmailConstraint = "users_email_key"

func userNotFound() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func emailTaken(cause error) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, "email already registered")
}

// Repository exposes user-related persistence operations.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(conn)}
}

// WithTx returns a repository that runs inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.base.DB(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err, uniqueEmailConstraint) {
			return nil, emailTaken(err)
		}
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves the user matching the provided email, ignoring case.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.base.FindOne(ctx, &user, userNotFound(), "lower(email) = ?", NormalizeEmail(email)); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID loads a user by their UUID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.base.FindOne(ctx, &user, userNotFound(), "id = ?", id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile overwrites name, email and metadata.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, metadata types.Metadata) error {
	err := r.updateColumns(ctx, id, map[string]any{
		"name":     name,
		"email":    NormalizeEmail(email),
		"metadata": metadata,
	})
	if db.IsUniqueViolation(err, uniqueEmailConstraint) {
		return emailTaken(err)
	}
	return err
}

// UpdatePhoto stores the profile photo location.
func (r *Repository) UpdatePhoto(ctx context.Context, id uuid.UUID, photo *url.URL) error {
	return r.updateColumns(ctx, id, map[string]any{"photo_url": photo.String()})
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.base.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash replaces the stored credential.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.updateColumns(ctx, id, map[string]any{"password_hash": hash})
}

// Delete removes the user row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.base.DeleteByID(ctx, &models.User{}, id, userNotFound())
}

func (r *Repository) updateColumns(ctx context.Context, id uuid.UUID, values map[string]any) error {
	return r.base.UpdateByID(ctx, &models.User{}, id, values, userNotFound())
}
