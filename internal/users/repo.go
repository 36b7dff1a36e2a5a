package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

// Repository is the users table. Payments only ever read payers from it;
// Create and SetActive exist for seeding and support tooling.
type Repository struct {
	repo.Base
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create inserts an active payer. Emails are unique after normalising.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	err := r.DB(ctx).Create(user).Error
	switch {
	case db.IsUniqueViolation(err, ""):
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create user")
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", normalizeEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where(cond, arg).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActivePayer rejects unknown and deactivated accounts with the same
// validation code, so callers cannot probe which ids exist.
func (r *Repository) FindActivePayer(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.FindByID(ctx, id)
	switch {
	case repo.IsNotFound(err):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer not found")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load payer")
	case !user.IsActive:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer is not active")
	}
	return user, nil
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("is_active", active)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, res.Error, "update payer")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payer not found")
	}
	return nil
}
