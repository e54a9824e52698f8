package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx returns a Base bound to tx. A nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// FindOne loads the single row matching query into dest. A missing row is
// reported as notFound.
func (b Base) FindOne(ctx context.Context, dest any, notFound error, query any, args ...any) error {
	err := b.DB(ctx).Where(query, args...).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// UpdateByID applies values to the row of model with the given id and stamps
// updated_at. Zero affected rows is reported as notFound.
func (b Base) UpdateByID(ctx context.Context, model any, id uuid.UUID, values map[string]any, notFound error) error {
	values["updated_at"] = time.Now().UTC()
	res := b.DB(ctx).Model(model).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}

// DeleteByID removes the row of model with the given id. Zero affected rows is
// reported as notFound.
func (b Base) DeleteByID(ctx context.Context, model any, id uuid.UUID, notFound error) error {
	res := b.DB(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}
