package reconciler

import (
	"net/url"
	"testing"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

func TestParseWebhookFlatBody(t *testing.T) {
	note, err := ParseWebhook([]byte(`{"tx_ref":" EZM-01HX ","status":"success","amount":"1500.50","currency":"etb"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if note.Reference != "EZM-01HX" {
		t.Fatalf("expected trimmed reference, got %q", note.Reference)
	}
	if note.Status != "success" {
		t.Fatalf("unexpected status %q", note.Status)
	}
	if note.Amount == nil || note.Amount.StringFixed(2) != "1500.50" {
		t.Fatalf("unexpected amount %v", note.Amount)
	}
	if note.Currency != enums.CurrencyETB {
		t.Fatalf("unexpected currency %q", note.Currency)
	}
}

func TestParseWebhookNestedDataAndNumericAmount(t *testing.T) {
	note, err := ParseWebhook([]byte(`{"event":"charge.success","data":{"trx_ref":"EZM-02","status":"failed","amount":200}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if note.Reference != "EZM-02" || note.Status != "failed" {
		t.Fatalf("unexpected notification %+v", note)
	}
	if note.Amount == nil || note.Amount.IntPart() != 200 {
		t.Fatalf("unexpected amount %v", note.Amount)
	}
}

func TestParseWebhookErrors(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing ref":    `{"status":"success"}`,
		"invalid amount": `{"tx_ref":"EZM-03","amount":"ten"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWebhook([]byte(body))
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseWebhookQuery(t *testing.T) {
	values := url.Values{"trx_ref": {"EZM-04"}, "status": {"success"}}
	note, err := ParseWebhookQuery(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if note.Reference != "EZM-04" || note.Status != "success" || note.Amount != nil {
		t.Fatalf("unexpected notification %+v", note)
	}
	if string(QueryPayload(values)) != `{"status":"success","trx_ref":"EZM-04"}` {
		t.Fatalf("unexpected payload %s", QueryPayload(values))
	}
	if _, err := ParseWebhookQuery(url.Values{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
