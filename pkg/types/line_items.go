package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemSnapshot freezes what was purchased when a payment attempt was created.
type LineItemSnapshot struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns quantity * unit price.
func (l LineItemSnapshot) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineItemSnapshots is stored as a jsonb array.
type LineItemSnapshots []LineItemSnapshot

// Total sums every line subtotal.
func (s LineItemSnapshots) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Value implements driver.Valuer.
func (s LineItemSnapshots) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for both bytea/jsonb and text drivers.
func (s *LineItemSnapshots) Scan(value any) error {
	if value == nil {
		*s = LineItemSnapshots{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("line item snapshots: unsupported scan type %T", value)
	}
	if len(raw) == 0 {
		*s = LineItemSnapshots{}
		return nil
	}
	var out LineItemSnapshots
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("line item snapshots: %w", err)
	}
	*s = out
	return nil
}
