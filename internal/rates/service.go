package rates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/currency"
	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
)

// UpdateInput replaces the active rate profile with a new snapshot.
type UpdateInput struct {
	RateSecondary   decimal.Decimal
	RateTertiary    decimal.Decimal
	CrossRate       *decimal.Decimal
	DisplayCurrency enums.Currency
	UpdatedBy       uuid.UUID
}

// ClientView is the subset of the profile exposed to payment forms.
type ClientView struct {
	RateSecondary   decimal.Decimal  `json:"rate_secondary"`
	RateTertiary    decimal.Decimal  `json:"rate_tertiary"`
	CrossRate       *decimal.Decimal `json:"cross_rate,omitempty"`
	DisplayCurrency enums.Currency   `json:"display_currency"`
}

// Service exposes the exchange rate profile operations.
type Service interface {
	Get(ctx context.Context) (*models.RateProfile, error)
	GetForClient(ctx context.Context) (*ClientView, error)
	Update(ctx context.Context, input UpdateInput) (*models.RateProfile, error)
	ActiveRates(ctx context.Context) (currency.Rates, error)
}

type service struct {
	repo Repository
}

// NewService wires a rates service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rates repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context) (*models.RateProfile, error) {
	profile, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rate profile not configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rate profile")
	}
	return profile, nil
}

func (s *service) GetForClient(ctx context.Context) (*ClientView, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &ClientView{
		RateSecondary:   profile.RateSecondary,
		RateTertiary:    profile.RateTertiary,
		CrossRate:       profile.CrossRate,
		DisplayCurrency: profile.DisplayCurrency,
	}, nil
}

// Update appends a new profile row; the previous snapshot stays for audit.
func (s *service) Update(ctx context.Context, input UpdateInput) (*models.RateProfile, error) {
	if input.UpdatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.DisplayCurrency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid display currency %q", input.DisplayCurrency))
	}
	snapshot := currency.Rates{
		Secondary: input.RateSecondary,
		Tertiary:  input.RateTertiary,
	}
	if input.CrossRate != nil {
		snapshot.Cross = *input.CrossRate
	}
	if err := snapshot.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rates")
	}

	updatedBy := input.UpdatedBy
	profile := &models.RateProfile{
		RateSecondary:   input.RateSecondary,
		RateTertiary:    input.RateTertiary,
		CrossRate:       input.CrossRate,
		DisplayCurrency: input.DisplayCurrency,
		UpdatedBy:       &updatedBy,
	}
	if err := s.repo.Insert(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store rate profile")
	}
	return profile, nil
}

// ActiveRates adapts the stored profile to the converter's snapshot type.
func (s *service) ActiveRates(ctx context.Context) (currency.Rates, error) {
	profile, err := s.Get(ctx)
	if err != nil {
		return currency.Rates{}, err
	}
	snapshot := currency.Rates{
		Secondary: profile.RateSecondary,
		Tertiary:  profile.RateTertiary,
	}
	if profile.CrossRate != nil {
		snapshot.Cross = *profile.CrossRate
	}
	return snapshot, nil
}
