package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

// LineItemInput is one product the payer is buying from the supplier.
type LineItemInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// InitiateInput starts one hosted checkout for a single supplier.
type InitiateInput struct {
	PayerID           uuid.UUID
	SupplierID        uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	LineItems         []LineItemInput
	CheckoutSessionID *uuid.UUID
}

// InitiateResult is returned once the attempt row exists.
type InitiateResult struct {
	Attempt     *models.PaymentAttempt
	CheckoutURL string
	Attempts    int
}

// SupplierGroup is the slice of a multi-supplier checkout paid to one supplier.
type SupplierGroup struct {
	SupplierID uuid.UUID       `json:"supplier_id" validate:"required"`
	LineItems  []LineItemInput `json:"line_items" validate:"required,min=1,dive"`
}

// CheckoutInput starts one attempt per supplier group under a single session.
type CheckoutInput struct {
	PayerID  uuid.UUID
	Currency string
	Groups   []SupplierGroup
}

// GroupFailure reports a supplier group whose initiation failed.
type GroupFailure struct {
	SupplierID uuid.UUID `json:"supplier_id"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
}

// CheckoutResult lists the attempts created for a session.
type CheckoutResult struct {
	SessionID uuid.UUID
	Started   []InitiateResult
	Failed    []GroupFailure
}

// CheckoutStatus is derived on demand from a session's attempts.
type CheckoutStatus string

const (
	CheckoutPending       CheckoutStatus = "pending"
	CheckoutCompleted     CheckoutStatus = "completed"
	CheckoutPartiallyPaid CheckoutStatus = "partially_paid"
	CheckoutFailed        CheckoutStatus = "failed"
)

// CheckoutSummary aggregates a session's attempts.
type CheckoutSummary struct {
	SessionID   uuid.UUID       `json:"session_id"`
	PayerID     uuid.UUID       `json:"payer_id"`
	Status      CheckoutStatus  `json:"status"`
	Currency    enums.Currency  `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Attempts    []AttemptDTO    `json:"attempts"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AttemptDTO is the public view of a payment attempt.
type AttemptDTO struct {
	ID                uuid.UUID               `json:"id"`
	Reference         string                  `json:"reference"`
	CheckoutSessionID *uuid.UUID              `json:"checkout_session_id,omitempty"`
	PayerID           uuid.UUID               `json:"payer_id"`
	SupplierID        uuid.UUID               `json:"supplier_id"`
	Amount            decimal.Decimal         `json:"amount"`
	Currency          enums.Currency          `json:"currency"`
	State             enums.PaymentState      `json:"state"`
	LineItems         types.LineItemSnapshots `json:"line_items"`
	CheckoutURL       string                  `json:"checkout_url,omitempty"`
	FailureReason     *string                 `json:"failure_reason,omitempty"`
	SettledVia        *enums.ReconcileChannel `json:"settled_via,omitempty"`
	SettledAt         *time.Time              `json:"settled_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

// FromModel maps an attempt into its DTO; the checkout URL is only shown while pending.
func FromModel(a *models.PaymentAttempt) AttemptDTO {
	dto := AttemptDTO{
		ID:                a.ID,
		Reference:         a.Reference,
		CheckoutSessionID: a.CheckoutSessionID,
		PayerID:           a.PayerID,
		SupplierID:        a.SupplierID,
		Amount:            a.Amount,
		Currency:          a.Currency,
		State:             a.State,
		LineItems:         a.LineItems,
		FailureReason:     a.FailureReason,
		SettledVia:        a.SettledVia,
		SettledAt:         a.SettledAt,
		CreatedAt:         a.CreatedAt,
	}
	if a.State == enums.PaymentStatePending {
		dto.CheckoutURL = a.CheckoutURL
	}
	return dto
}
