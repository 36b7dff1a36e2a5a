package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	"github.com/angelmondragon/tradeflow-backend/api/validators"
	"github.com/angelmondragon/tradeflow-backend/internal/payments"
	"github.com/angelmondragon/tradeflow-backend/internal/reconciler"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	SupplierID uuid.UUID                `json:"supplier_id" validate:"required"`
	Amount     decimal.Decimal          `json:"amount" validate:"positive_amount"`
	Currency   string                   `json:"currency" validate:"omitempty,len=3"`
	LineItems  []payments.LineItemInput `json:"line_items" validate:"required,min=1,dive"`
}

type startedPaymentResponse struct {
	Payment     payments.AttemptDTO `json:"payment"`
	CheckoutURL string              `json:"checkout_url"`
	Attempts    int                 `json:"attempts"`
}

// InitiatePayment starts a hosted checkout for the calling payer.
func InitiatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), payments.InitiateInput{
			PayerID:    payerID,
			SupplierID: payload.SupplierID,
			Amount:     payload.Amount,
			Currency:   strings.ToUpper(strings.TrimSpace(payload.Currency)),
			LineItems:  payload.LineItems,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newStartedPaymentResponse(*result))
	}
}

func newStartedPaymentResponse(result payments.InitiateResult) startedPaymentResponse {
	return startedPaymentResponse{
		Payment:     payments.FromModel(result.Attempt),
		CheckoutURL: result.CheckoutURL,
		Attempts:    result.Attempts,
	}
}

// GetPayment returns one attempt by its reference.
func GetPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		attempt, err := svc.GetByReference(r.Context(), referenceParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.FromModel(attempt))
	}
}

type ledgerEventResponse struct {
	ID        uuid.UUID               `json:"id"`
	Type      enums.LedgerEventType   `json:"type"`
	FromState *enums.PaymentState     `json:"from_state,omitempty"`
	ToState   *enums.PaymentState     `json:"to_state,omitempty"`
	Channel   *enums.ReconcileChannel `json:"channel,omitempty"`
	Amount    decimal.Decimal         `json:"amount"`
	Currency  enums.Currency          `json:"currency"`
	Metadata  json.RawMessage         `json:"metadata,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// PaymentHistory lists the ledger entries recorded for an attempt.
func PaymentHistory(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		events, err := svc.History(r.Context(), referenceParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLedgerResponse(events))
	}
}

func newLedgerResponse(events []models.LedgerEvent) []ledgerEventResponse {
	out := make([]ledgerEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, ledgerEventResponse{
			ID:        event.ID,
			Type:      event.Type,
			FromState: event.FromState,
			ToState:   event.ToState,
			Channel:   event.Channel,
			Amount:    event.Amount,
			Currency:  event.Currency,
			Metadata:  event.Metadata,
			CreatedAt: event.CreatedAt,
		})
	}
	return out
}

// VerifyPayment asks the gateway for the attempt's current state and reconciles it.
func VerifyPayment(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}

		reference := referenceParam(r)
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		result, err := svc.Reconcile(r.Context(), reconciler.Input{
			Channel:   enums.ChannelPoll,
			Reference: reference,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func referenceParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "reference"))
}
