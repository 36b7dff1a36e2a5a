package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/api/middleware"
	"github.com/angelmondragon/tradeflow-backend/api/responses"
	"github.com/angelmondragon/tradeflow-backend/api/validators"
	"github.com/angelmondragon/tradeflow-backend/internal/fulfillment"
	"github.com/angelmondragon/tradeflow-backend/internal/inventory"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

const (
	maxNotesLen       = 2000
	maxTitleLen       = 200
	maxReasonLen      = 500
	maxTrackingLength = 120
)

type listResponse struct {
	Orders     []fulfillment.OrderDTO `json:"orders"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// List returns a cursor page of orders filtered by status, supplier or payer.
func List(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		params, err := buildListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := listResponse{
			Orders:     make([]fulfillment.OrderDTO, 0, len(result.Orders)),
			NextCursor: result.NextCursor,
		}
		for i := range result.Orders {
			resp.Orders = append(resp.Orders, fulfillment.FromModel(&result.Orders[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

func buildListParams(r *http.Request) (fulfillment.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return fulfillment.ListParams{}, err
	}
	params := fulfillment.ListParams{
		Page: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseFulfillmentStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	if params.SupplierID, err = validators.ParseQueryUUID(r, "supplier_id"); err != nil {
		return params, err
	}
	if params.PayerID, err = validators.ParseQueryUUID(r, "payer_id"); err != nil {
		return params, err
	}
	return params, nil
}

// Detail returns one order with its line items.
func Detail(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fulfillment.FromModel(order))
	}
}

// History lists the order's status transitions oldest first.
func History(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.History(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fulfillment.HistoryFromModels(rows))
	}
}

type shipRequest struct {
	TrackingNumber      string `json:"tracking_number" validate:"max=120"`
	NoTrackingAvailable bool   `json:"no_tracking_available"`
}

// Ship moves a paid order in transit. Repeating it returns the current order.
func Ship(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shipRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Ship(r.Context(), fulfillment.ShipInput{
			OrderID:             orderID,
			TrackingNumber:      validators.SanitizeString(payload.TrackingNumber, maxTrackingLength),
			NoTrackingAvailable: payload.NoTrackingAvailable,
			Actor:               optionalActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fulfillment.FromModel(order))
	}
}

type confirmDeliveryRequest struct {
	ReceivedLineItemIDs []uuid.UUID `json:"received_line_item_ids"`
	AllItemsReceived    bool        `json:"all_items_received"`
	Condition           string      `json:"condition" validate:"required,oneof=excellent good fair poor damaged"`
	Notes               string      `json:"notes" validate:"max=2000"`
}

type deliveryResponse struct {
	Order        fulfillment.OrderDTO    `json:"order"`
	Outcome      enums.DeliveryOutcome   `json:"outcome"`
	StockApplied bool                    `json:"stock_applied"`
	Movements    []inventory.MovementDTO `json:"movements"`
}

// ConfirmDelivery records received line items. Stock is applied only when
// every item has arrived; a partial receipt answers 200 with outcome=partial.
func ConfirmDelivery(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.AllItemsReceived && len(payload.ReceivedLineItemIDs) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "received_line_item_ids required unless all_items_received"))
			return
		}

		result, err := svc.ConfirmDelivery(r.Context(), fulfillment.ConfirmDeliveryInput{
			OrderID:             orderID,
			ReceivedLineItemIDs: payload.ReceivedLineItemIDs,
			AllItemsReceived:    payload.AllItemsReceived,
			Condition:           enums.DeliveryCondition(payload.Condition),
			Notes:               validators.SanitizeString(payload.Notes, maxNotesLen),
			Actor:               optionalActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, deliveryResponse{
			Order:        fulfillment.FromModel(result.Order),
			Outcome:      result.Outcome,
			StockApplied: result.StockApplied,
			Movements:    inventory.MovementsFromModels(result.Movements),
		})
	}
}

type reportIssueRequest struct {
	IssueType           string      `json:"issue_type" validate:"required,oneof=damaged missing_items wrong_items quality late_delivery other"`
	Severity            string      `json:"severity" validate:"required,oneof=low medium high critical"`
	Title               string      `json:"title" validate:"required,max=200"`
	Description         string      `json:"description" validate:"required,max=2000"`
	AffectedLineItemIDs []uuid.UUID `json:"affected_line_item_ids"`
}

type issueResponse struct {
	Order fulfillment.OrderDTO `json:"order"`
	Issue issueReportResponse  `json:"issue"`
}

type issueReportResponse struct {
	ID          uuid.UUID           `json:"id"`
	IssueType   enums.IssueType     `json:"issue_type"`
	Severity    enums.IssueSeverity `json:"severity"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	ReportedBy  *uuid.UUID          `json:"reported_by,omitempty"`
}

// ReportIssue parks the order in issue_reported and stores the report.
func ReportIssue(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reportIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReportIssue(r.Context(), fulfillment.ReportIssueInput{
			OrderID:             orderID,
			IssueType:           enums.IssueType(payload.IssueType),
			Severity:            enums.IssueSeverity(payload.Severity),
			Title:               validators.SanitizeString(payload.Title, maxTitleLen),
			Description:         validators.SanitizeString(payload.Description, maxNotesLen),
			AffectedLineItemIDs: payload.AffectedLineItemIDs,
			Actor:               optionalActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, issueResponse{
			Order: fulfillment.FromModel(result.Order),
			Issue: newIssueReportResponse(result.Issue),
		})
	}
}

func newIssueReportResponse(issue *models.IssueReport) issueReportResponse {
	if issue == nil {
		return issueReportResponse{}
	}
	return issueReportResponse{
		ID:          issue.ID,
		IssueType:   issue.IssueType,
		Severity:    issue.Severity,
		Title:       issue.Title,
		Description: issue.Description,
		ReportedBy:  issue.ReportedBy,
	}
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Cancel is the operator cancellation path.
func Cancel(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), fulfillment.CancelInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(payload.Reason, maxReasonLen),
			Actor:   optionalActor(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fulfillment.FromModel(order))
	}
}

// optionalActor is nil for anonymous calls; Actor middleware has already validated the header.
func optionalActor(r *http.Request) *uuid.UUID {
	raw := middleware.ActorIDFromContext(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
