package rates

import (
	"context"

	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
)

// Repository manages the append-only rate profile history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, profile *models.RateProfile) error
	FindActive(ctx context.Context) (*models.RateProfile, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a rates repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, profile *models.RateProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// FindActive returns the newest profile row; older rows stay for audit.
func (r *repository) FindActive(ctx context.Context) (*models.RateProfile, error) {
	var profile models.RateProfile
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
