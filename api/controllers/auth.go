package controllers

import (
	"net/http"

	"github.com/jpcontreras/vendia-backend/api/responses"
	"github.com/jpcontreras/vendia-backend/api/validators"
	"github.com/jpcontreras/vendia-backend/internal/auth"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Login(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
