package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/api/responses"
	"github.com/jpcontreras/vendia-backend/api/validators"
	"github.com/jpcontreras/vendia-backend/internal/rates"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

type updateRatesBody struct {
	RateSecondary   decimal.Decimal  `json:"rate_secondary" validate:"required"`
	RateTertiary    decimal.Decimal  `json:"rate_tertiary" validate:"required"`
	CrossRate       *decimal.Decimal `json:"cross_rate,omitempty"`
	DisplayCurrency string           `json:"display_currency" validate:"required"`
}

// ClientRates exposes the subset of the active profile payment forms need.
func ClientRates(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rates service unavailable"))
			return
		}

		view, err := svc.GetForClient(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AdminRates returns the full active rate profile including audit fields.
func AdminRates(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rates service unavailable"))
			return
		}

		profile, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AdminUpdateRates replaces the active rate snapshot. Existing payments keep
// the rates frozen at their submission time.
func AdminUpdateRates(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rates service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateRatesBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		displayCurrency, err := enums.ParseCurrency(body.DisplayCurrency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid display currency"))
			return
		}

		profile, err := svc.Update(r.Context(), rates.UpdateInput{
			RateSecondary:   body.RateSecondary,
			RateTertiary:    body.RateTertiary,
			CrossRate:       body.CrossRate,
			DisplayCurrency: displayCurrency,
			UpdatedBy:       actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
