package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/hammer-mt/FireFlask/internal/memberships"
	"github.com/hammer-mt/FireFlask/pkg/config"
	"github.com/hammer-mt/FireFlask/pkg/db"
	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
	"github.com/hammer-mt/FireFlask/pkg/security"
	"github.com/hammer-mt/FireFlask/pkg/types"
)

const (
	minPasswordLength  = 6
	maxPasswordLength  = 255
	tempPasswordLength = 16
	resetTokenBytes    = 32
)

// emails checks addresses with the same rule as request bodies.
var emails = validator.New()

type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	ResetTokenKey(token string) string
}

// Service exposes identity operations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	FindByEmail(ctx context.Context, email string) (*UserDTO, error)
	CreateWithPassword(ctx context.Context, email, name, password string) (*UserDTO, error)
	Authenticate(ctx context.Context, email, password string) (*UserDTO, error)
	RecordLogin(ctx context.Context, userID uuid.UUID) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdate) (*UserDTO, error)
	UpdatePhoto(ctx context.Context, userID uuid.UUID, photoURL string) (*UserDTO, error)
	Invite(ctx context.Context, email, name string) (*UserDTO, string, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// ServiceParams packages the dependencies for the identity store.
type ServiceParams struct {
	DB             *db.Client
	Resets         resetStore
	Notifier       ResetNotifier
	PasswordConfig config.PasswordConfig
	ResetTTL       time.Duration
	Now            func() time.Time
}

type service struct {
	db          *db.Client
	repo        *Repository
	resets      resetStore
	notifier    ResetNotifier
	passwordCfg config.PasswordConfig
	resetTTL    time.Duration
	now         func() time.Time
}

// NewService builds the identity service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Resets == nil {
		return nil, fmt.Errorf("reset token store required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("reset notifier required")
	}
	if params.ResetTTL <= 0 {
		return nil, fmt.Errorf("reset ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		repo:        NewRepository(params.DB.DB()),
		resets:      params.Resets,
		notifier:    params.Notifier,
		passwordCfg: params.PasswordConfig,
		resetTTL:    params.ResetTTL,
		now:         now,
	}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) FindByEmail(ctx context.Context, email string) (*UserDTO, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) CreateWithPassword(ctx context.Context, email, name, password string) (*UserDTO, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	return s.create(ctx, email, name, password)
}

func (s *service) create(ctx context.Context, email, name, password string) (*UserDTO, error) {
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.repo.Create(ctx, CreateUserDTO{Email: email, Name: name, PasswordHash: hash})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "create user")
	}
	return FromModel(user), nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*UserDTO, error) {
	invalid := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, invalid
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, invalid
	}
	return FromModel(user), nil
}

func (s *service) RecordLogin(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.UpdateLastLogin(ctx, userID, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login")
	}
	return nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileUpdate) (*UserDTO, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load user")
	}
	meta := types.Metadata{}
	for k, v := range current.Metadata {
		meta[k] = v
	}
	if title := strings.TrimSpace(input.JobTitle); title != "" {
		meta[MetadataJobTitle] = title
	} else {
		delete(meta, MetadataJobTitle)
	}

	if err := s.repo.UpdateProfile(ctx, userID, strings.TrimSpace(input.Name), input.Email, meta); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.GetProfile(ctx, userID)
}

func (s *service) UpdatePhoto(ctx context.Context, userID uuid.UUID, photoURL string) (*UserDTO, error) {
	parsed, err := url.Parse(strings.TrimSpace(photoURL))
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo_url must be an absolute http(s) url")
	}
	if err := s.repo.UpdatePhoto(ctx, userID, parsed); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "update photo")
	}
	return s.GetProfile(ctx, userID)
}

// Invite creates an account with a generated password. The caller hands the
// password to the invitee.
func (s *service) Invite(ctx context.Context, email, name string) (*UserDTO, string, error) {
	if err := validateEmail(email); err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(NormalizeEmail(email), "@", 2)[0]
	}
	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	user, err := s.create(ctx, email, name, tempPassword)
	if err != nil {
		return nil, "", err
	}
	return user, tempPassword, nil
}

// Delete removes the user and every membership edge they hold.
func (s *service) Delete(ctx context.Context, userID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := memberships.NewRepository(tx).RemoveAllForUser(ctx, userID); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Delete(ctx, userID)
	})
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "delete user")
}

// RequestPasswordReset issues a single-use token. Unknown emails succeed
// silently so callers cannot probe for accounts.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	token, err := security.RandomToken(resetTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.resets.Set(ctx, s.resets.ResetTokenKey(token), user.ID.String(), s.resetTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}
	if err := s.notifier.NotifyPasswordReset(ctx, user.Email, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver reset token")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	invalid := pkgerrors.New(pkgerrors.CodeValidation, "reset link invalid or expired")
	token = strings.TrimSpace(token)
	if token == "" {
		return invalid
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	raw, err := s.resets.GetDel(ctx, s.resets.ResetTokenKey(token))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return invalid
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return invalid
	}

	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return invalid
		}
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func validateEmail(email string) error {
	if err := emails.Var(NormalizeEmail(email), "required,email"); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	}
	return nil
}
