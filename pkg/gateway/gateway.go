package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
)

// ErrDuplicateReference is returned when the provider rejects a reference it has seen before.
var ErrDuplicateReference = errors.New("gateway: transaction reference already used")

// Customer identifies the payer to the hosted checkout page.
type Customer struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// CreateRequest opens a hosted checkout for a single reference.
type CreateRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    enums.Currency
	Customer    Customer
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
	Meta        map[string]string
}

type CreateResponse struct {
	Reference   string
	CheckoutURL string
	Raw         json.RawMessage
}

// VerifyResponse is the provider's authoritative view of a transaction.
type VerifyResponse struct {
	Reference      string
	ReportedStatus string
	State          enums.PaymentState
	Amount         decimal.Decimal
	Currency       enums.Currency
	Raw            json.RawMessage
}

// Gateway is the hosted-checkout provider surface used by payments and reconciliation.
type Gateway interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResponse, error)
}

// Observer receives the latency of every gateway call.
type Observer interface {
	ObserveGateway(operation string, duration time.Duration, err error)
}

type instrumented struct {
	next     Gateway
	observer Observer
	now      func() time.Time
}

// WithObserver decorates g so each call is reported to observer.
func WithObserver(g Gateway, observer Observer) Gateway {
	if observer == nil {
		return g
	}
	return &instrumented{next: g, observer: observer, now: time.Now}
}

func (i *instrumented) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	start := i.now()
	resp, err := i.next.Create(ctx, req)
	i.observer.ObserveGateway("create", i.now().Sub(start), err)
	return resp, err
}

func (i *instrumented) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	start := i.now()
	resp, err := i.next.Verify(ctx, reference)
	i.observer.ObserveGateway("verify", i.now().Sub(start), err)
	return resp, err
}
