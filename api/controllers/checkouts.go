package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	"github.com/angelmondragon/tradeflow-backend/api/validators"
	"github.com/angelmondragon/tradeflow-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

type startCheckoutRequest struct {
	Currency string                   `json:"currency" validate:"omitempty,len=3"`
	Groups   []payments.SupplierGroup `json:"groups" validate:"required,min=1,dive"`
}

type checkoutResponse struct {
	SessionID uuid.UUID                `json:"session_id"`
	Payments  []startedPaymentResponse `json:"payments"`
	Failed    []payments.GroupFailure  `json:"failed,omitempty"`
}

// StartCheckout opens a checkout session with one payment per supplier group.
// Groups that fail to initiate are reported alongside the ones that started.
func StartCheckout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		payerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload startCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartCheckout(r.Context(), payments.CheckoutInput{
			PayerID:  payerID,
			Currency: strings.ToUpper(strings.TrimSpace(payload.Currency)),
			Groups:   payload.Groups,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := checkoutResponse{
			SessionID: result.SessionID,
			Payments:  make([]startedPaymentResponse, 0, len(result.Started)),
			Failed:    result.Failed,
		}
		for _, started := range result.Started {
			resp.Payments = append(resp.Payments, newStartedPaymentResponse(started))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// GetCheckout derives the session's aggregate status from its attempts.
func GetCheckout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.CheckoutSummary(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
