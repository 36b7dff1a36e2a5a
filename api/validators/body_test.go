package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

type amountRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"positive_amount"`
	Currency string          `json:"currency" validate:"required,len=3"`
}

func decode(t *testing.T, body string) error {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest amountRequest
	return DecodeJSONBody(req, &dest)
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	if err := decode(t, `{"amount":"12.50","currency":"ETB"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodeJSONBodyRejectsNonPositiveAmount(t *testing.T) {
	err := decode(t, `{"amount":"0","currency":"ETB"}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if details["amount"] != "must be a positive amount" {
		t.Fatalf("unexpected amount detail %q", details["amount"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	err := decode(t, `{"amount":"1","currency":"ETB","tip":"5"}`)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsLength(t *testing.T) {
	err := decode(t, `{"amount":"1","currency":"BIRR"}`)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details := typed.Details().(map[string]string)
	if details["currency"] != "must have length 3" {
		t.Fatalf("unexpected currency detail %q", details["currency"])
	}
}

type basketRequest struct {
	Items []basketItem `json:"line_items" validate:"required,min=1,dive"`
}

type basketItem struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

func TestDecodeJSONBodyNamesNestedField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"line_items":[{"quantity":2},{"quantity":-1}]}`))
	var dest basketRequest
	typed := pkgerrors.As(DecodeJSONBody(req, &dest))
	if typed == nil {
		t.Fatal("expected validation error")
	}
	details := typed.Details().(map[string]string)
	if details["line_items[1].quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	err := decode(t, `{"amount":"1","currency":"ETB"} {"amount":"2"}`)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	padding := strings.Repeat(" ", MaxBodyBytes)
	err := decode(t, padding+`{"amount":"1","currency":"ETB"}`)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
