package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tradeflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/tradeflow-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed handler can block its key.
	inFlightTTL = 2 * time.Minute
)

// idempotentRoutes are POST endpoints that require an Idempotency-Key.
// Money-moving and terminal transitions keep their replay for a week.
var idempotentRoutes = []struct {
	pattern string
	ttl     time.Duration
}{
	{"/api/v1/payments", criticalIdempotencyTTL},
	{"/api/v1/checkouts", criticalIdempotencyTTL},
	{"/api/v1/orders/*/confirm-delivery", criticalIdempotencyTTL},
	{"/api/v1/orders/*/cancel", criticalIdempotencyTTL},
	{"/api/v1/payments/*/verify", defaultIdempotencyTTL},
	{"/api/v1/orders/*/ship", defaultIdempotencyTTL},
	{"/api/v1/orders/*/issues", defaultIdempotencyTTL},
	{"/api/v1/notifications/*/read", defaultIdempotencyTTL},
	{"/api/v1/notifications/read-all", defaultIdempotencyTTL},
	{"/api/v1/admin/webhooks/*/replay", defaultIdempotencyTTL},
}

// idempotencyRecord is either an in-flight marker (Status 0) or a finished
// response ready for replay.
type idempotencyRecord struct {
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

func (r idempotencyRecord) inFlight() bool { return r.Status == 0 }

// Idempotency replays the stored response for a repeated key and rejects a
// concurrent duplicate while the first request is still running. 5xx
// outcomes release the key so the caller can retry; any other outcome
// replaces the in-flight marker in place, so the key is never free while
// the first request owns it.
func Idempotency(store pkgredis.ResponseCache, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, requestPath(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			id := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if id == "" {
				fail(pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := store.IdempotencyKey(requestScope(r), id)

			marker, claimed, err := claim(ctx, store, key, hash)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if !claimed {
				prior, err := load(ctx, store, key)
				switch {
				case err != nil:
					fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
				case prior == nil:
					// released between the claim and the read
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency record changed, retry the request"))
				case prior.RequestHash != hash:
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
				case prior.inFlight():
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress"))
				default:
					replay(w, prior)
				}
				return
			}

			var captured bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logFailure(ctx, logg, "release idempotency marker", err)
				}
				return
			}
			done := idempotencyRecord{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(captured.Bytes()),
				RequestHash: hash,
			}
			switch saved, err := save(ctx, store, key, marker, done, ttl); {
			case err != nil:
				logFailure(ctx, logg, "persist idempotency record", err)
			case !saved && logg != nil:
				logg.Warn(logg.WithField(ctx, "idempotency_key", id), "idempotency marker expired before the response was stored")
			}
		})
	}
}

// claim reserves key with an in-flight marker and returns it. False means
// someone already holds the key.
func claim(ctx context.Context, store pkgredis.IdempotencyStore, key, hash string) (string, bool, error) {
	raw, err := json.Marshal(idempotencyRecord{RequestHash: hash})
	if err != nil {
		return "", false, err
	}
	marker := string(raw)
	claimed, err := store.SetNX(ctx, key, marker, inFlightTTL)
	return marker, claimed, err
}

// save swaps our marker for the finished record. False means the marker
// expired and the key was no longer ours.
func save(ctx context.Context, store pkgredis.ResponseCache, key, marker string, record idempotencyRecord, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	return store.ReplaceIfValue(ctx, key, marker, string(payload), ttl)
}

func load(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*idempotencyRecord, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func replay(w http.ResponseWriter, record *idempotencyRecord) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// requestScope keeps keys from colliding across callers and endpoints.
func requestScope(r *http.Request) string {
	return strings.Join([]string{ActorIDFromContext(r.Context()), r.Method, requestPath(r)}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// requestPath is matched instead of the chi pattern, which is still the
// mount wildcard while sub-router middleware runs.
func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	p := r.URL.Path
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func routeTTL(method, requestPath string) (time.Duration, bool) {
	if method != http.MethodPost || requestPath == "" {
		return 0, false
	}
	for _, route := range idempotentRoutes {
		if ok, _ := path.Match(route.pattern, requestPath); ok {
			return route.ttl, true
		}
	}
	return 0, false
}

func logFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
