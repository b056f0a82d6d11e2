package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jpcontreras/vendia-backend/api/middleware"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
)

type requestActor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func actorFromRequest(r *http.Request) (requestActor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return requestActor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return requestActor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return requestActor{UserID: userID, Role: role}, nil
}
