package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ActorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor id")
	}
	return id, nil
}
