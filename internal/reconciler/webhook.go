package reconciler

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

// WebhookNotification is the subset of a gateway callback the reconciler acts on.
type WebhookNotification struct {
	Reference string
	Status    string
	Amount    *decimal.Decimal
	Currency  enums.Currency
}

type webhookBody struct {
	TxRef    string          `json:"tx_ref"`
	TrxRef   string          `json:"trx_ref"`
	Ref      string          `json:"reference"`
	Status   string          `json:"status"`
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
	Data     *webhookBody    `json:"data"`
}

// ParseWebhook extracts the reference, status and optional amount from a POST body.
// Some gateways nest the transaction under "data"; the nested values win.
func ParseWebhook(payload []byte) (*WebhookNotification, error) {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook body is not valid json")
	}
	if body.Data != nil {
		merge(&body, body.Data)
	}
	note := &WebhookNotification{
		Reference: firstNonEmpty(body.TxRef, body.TrxRef, body.Ref),
		Status:    strings.TrimSpace(body.Status),
		Currency:  enums.Currency(strings.ToUpper(strings.TrimSpace(body.Currency))),
	}
	if note.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook is missing tx_ref")
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook amount is invalid")
	}
	note.Amount = amount
	return note, nil
}

// ParseWebhookQuery handles the GET form some gateways use for callbacks (trx_ref, status).
func ParseWebhookQuery(values url.Values) (*WebhookNotification, error) {
	ref := firstNonEmpty(values.Get("trx_ref"), values.Get("tx_ref"), values.Get("reference"))
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook is missing trx_ref")
	}
	return &WebhookNotification{
		Reference: ref,
		Status:    strings.TrimSpace(values.Get("status")),
	}, nil
}

// QueryPayload renders GET callback parameters as a JSON document for the webhook log.
func QueryPayload(values url.Values) json.RawMessage {
	flat := make(map[string]string, len(values))
	for key := range values {
		flat[key] = values.Get(key)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return nil
	}
	return raw
}

func merge(dst, src *webhookBody) {
	if src.TxRef != "" {
		dst.TxRef = src.TxRef
	}
	if src.TrxRef != "" {
		dst.TrxRef = src.TrxRef
	}
	if src.Ref != "" {
		dst.Ref = src.Ref
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if len(src.Amount) > 0 {
		dst.Amount = src.Amount
	}
	if src.Currency != "" {
		dst.Currency = src.Currency
	}
}

// parseAmount accepts both "1000.00" and 1000.
func parseAmount(raw json.RawMessage) (*decimal.Decimal, error) {
	trimmed := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
