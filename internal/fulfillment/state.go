package fulfillment

import (
	"slices"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

// transitions lists the legal next states for every non-terminal status.
var transitions = map[enums.FulfillmentStatus][]enums.FulfillmentStatus{
	enums.FulfillmentAwaitingPayment: {
		enums.FulfillmentPaymentConfirmed,
		enums.FulfillmentCancelled,
	},
	enums.FulfillmentPaymentConfirmed: {
		enums.FulfillmentInTransit,
		enums.FulfillmentDelivered,
		enums.FulfillmentIssueReported,
		enums.FulfillmentCancelled,
	},
	enums.FulfillmentInTransit: {
		enums.FulfillmentDelivered,
		enums.FulfillmentIssueReported,
		enums.FulfillmentCancelled,
	},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.FulfillmentStatus) bool {
	return slices.Contains(transitions[from], to)
}

func invalidTransition(from, to enums.FulfillmentStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot move from "+string(from)+" to "+string(to)).
		WithDetails(map[string]any{"from": from, "to": to})
}
