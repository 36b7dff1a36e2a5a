package webhooks

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	"github.com/angelmondragon/tradeflow-backend/internal/reconciler"
	"github.com/angelmondragon/tradeflow-backend/pkg/auth"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const (
	maxWebhookBody       = 1 << 20
	defaultSignatureName = "Chapa-Signature"
	returnTokenParam     = "rt"
)

type returnTokenParser interface {
	Parse(token string) (*auth.ReturnTokenClaims, error)
}

// GatewayWebhook handles the authoritative server-to-server notification. The
// raw body and signature header are handed to the reconciler, which verifies
// the signature and logs the delivery whatever the outcome.
func GatewayWebhook(svc reconciler.Service, cfg config.GatewayConfig, logg *logger.Logger) http.HandlerFunc {
	header := strings.TrimSpace(cfg.SignatureHeader)
	if header == "" {
		header = defaultSignatureName
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		input := reconciler.Input{
			Channel:   enums.ChannelWebhook,
			Payload:   payload,
			Signature: strings.TrimSpace(r.Header.Get(header)),
		}
		// A body we cannot parse is still logged; the reconciler rejects the empty reference.
		if note, parseErr := reconciler.ParseWebhook(payload); parseErr == nil {
			input.Reference = note.Reference
			input.ReportedState = note.Status
			input.Amount = note.Amount
			input.Currency = note.Currency
		} else if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", parseErr.Error()), "webhook.unparseable")
		}

		result, err := svc.Reconcile(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GatewayCallback accepts the GET form of the gateway callback. It carries no
// signature, so it is treated like the return redirect and re-verified.
func GatewayCallback(svc reconciler.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}

		values := r.URL.Query()
		input := reconciler.Input{
			Channel: enums.ChannelReturn,
			Payload: reconciler.QueryPayload(values),
		}
		if note, err := reconciler.ParseWebhookQuery(values); err == nil {
			input.Reference = note.Reference
			input.ReportedState = note.Status
		}

		result, err := svc.Reconcile(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentReturn handles the browser redirect back from hosted checkout. The
// signed rt token identifies the payer when the gateway drops the reference.
func PaymentReturn(svc reconciler.Service, tokens returnTokenParser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}

		values := r.URL.Query()
		input := reconciler.Input{
			Channel:       enums.ChannelReturn,
			Reference:     returnReference(values),
			ReportedState: strings.TrimSpace(values.Get("status")),
		}

		if raw := strings.TrimSpace(values.Get(returnTokenParam)); raw != "" && tokens != nil {
			claims, err := tokens.Parse(raw)
			switch {
			case err != nil:
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "payment_return.invalid_token")
				}
			default:
				payerID := claims.PayerID
				if payerID != uuid.Nil {
					input.PayerID = &payerID
				}
				if input.Reference == "" {
					input.Reference = claims.Reference
				}
			}
		}

		logged := url.Values{}
		for key, vals := range values {
			if key != returnTokenParam {
				logged[key] = vals
			}
		}
		input.Payload = reconciler.QueryPayload(logged)

		result, err := svc.Reconcile(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func returnReference(values url.Values) string {
	for _, key := range []string{"tx_ref", "trx_ref", "transaction_id", "reference"} {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			return v
		}
	}
	return ""
}
