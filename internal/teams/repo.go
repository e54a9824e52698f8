package teams

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hammer-mt/FireFlask/internal/repo"
	"github.com/hammer-mt/FireFlask/pkg/db/models"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

func teamNotFound() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "team not found")
}

// Repository exposes team persistence operations.
type Repository struct {
	base repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(conn)}
}

// WithTx returns a repository that runs inside tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// Create allocates a team with only a name.
func (r *Repository) Create(ctx context.Context, name string) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "team name is required")
	}
	team := &models.Team{ID: uuid.New(), Name: name}
	if err := r.base.DB(ctx).Create(team).Error; err != nil {
		return nil, err
	}
	return FromModel(team), nil
}

// Get loads a team by id.
func (r *Repository) Get(ctx context.Context, teamID uuid.UUID) (*Team, error) {
	var team models.Team
	if err := r.base.FindOne(ctx, &team, teamNotFound(), "id = ?", teamID); err != nil {
		return nil, err
	}
	return FromModel(&team), nil
}

// Update overwrites name, account id and conversion event. Concurrent writers
// race; the last one wins.
func (r *Repository) Update(ctx context.Context, teamID uuid.UUID, name, accountID, conversionEvent string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "team name is required")
	}
	return r.updateColumns(ctx, teamID, map[string]any{
		"name":             name,
		"account_id":       nullable(accountID),
		"conversion_event": nullable(conversionEvent),
	})
}

// ConnectExternalAccount stores the Facebook token. A nil token disconnects.
func (r *Repository) ConnectExternalAccount(ctx context.Context, teamID uuid.UUID, token *string) error {
	return r.updateColumns(ctx, teamID, map[string]any{"facebook_token": token})
}

func (r *Repository) updateColumns(ctx context.Context, teamID uuid.UUID, values map[string]any) error {
	return r.base.UpdateByID(ctx, &models.Team{}, teamID, values, teamNotFound())
}
