package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestLineItemSnapshotsTotal(t *testing.T) {
	items := LineItemSnapshots{
		{ProductID: uuid.New(), Name: "Cement 50kg", Quantity: 3, UnitPrice: decimal.RequireFromString("450.50")},
		{ProductID: uuid.New(), Name: "Rebar 12mm", Quantity: 2, UnitPrice: decimal.RequireFromString("99.25")},
	}
	if got := items.Total(); !got.Equal(decimal.RequireFromString("1550.00")) {
		t.Fatalf("expected 1550.00 got %s", got)
	}
}

func TestLineItemSnapshotsScanFromText(t *testing.T) {
	var items LineItemSnapshots
	raw := `[{"product_id":"9b2f7c4e-0d5e-4b7a-9a55-5c1f5e0b2a11","name":"Nails","quantity":10,"unit_price":"1.5"}]`
	if err := items.Scan(raw); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 10 || !items[0].UnitPrice.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("unexpected scan result %#v", items)
	}
	if err := items.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestLineItemSnapshotsNilValue(t *testing.T) {
	var items LineItemSnapshots
	v, err := items.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if string(v.([]byte)) != "[]" {
		t.Fatalf("expected empty array, got %s", v)
	}
}
