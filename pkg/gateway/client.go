package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.chapa.co/v1"
	defaultTimeout              = 30 * time.Second
	maxTitleLength              = 16
	maxDescriptionLength        = 50
	responseBodyReadLimit int64 = 1 << 20
)

var errSecretKeyRequired = errors.New("gateway secret key is required")

var duplicateReferenceMarkers = []string{
	"reference has been used",
	"transaction reference has been used",
	"duplicate transaction reference",
	"tx_ref already exists",
}

// Client talks to a Chapa-compatible hosted checkout API over JSON/HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every request issued by the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a gateway client authenticated with secretKey.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(secretKey)
	if trimmed == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) message() string {
	if len(e.Message) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(e.Message, &text); err == nil {
		return text
	}
	return string(e.Message)
}

type initializePayload struct {
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	PhoneNumber   string            `json:"phone_number,omitempty"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url,omitempty"`
	ReturnURL     string            `json:"return_url,omitempty"`
	Customization map[string]string `json:"customization,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Create initializes a hosted checkout. A rejected duplicate reference yields an
// error wrapping ErrDuplicateReference so callers can retry with a fresh one.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway client not configured")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	payload := initializePayload{
		Amount:      req.Amount.StringFixed(2),
		Currency:    string(req.Currency),
		Email:       req.Customer.Email,
		FirstName:   req.Customer.FirstName,
		LastName:    req.Customer.LastName,
		PhoneNumber: req.Customer.Phone,
		TxRef:       req.Reference,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Meta:        req.Meta,
		Customization: map[string]string{
			"title":       truncate(req.Title, maxTitleLength),
			"description": truncate(req.Description, maxDescriptionLength),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "marshal initialize request")
	}

	status, env, raw, err := c.do(ctx, http.MethodPost, c.buildURL("transaction/initialize"), body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !strings.EqualFold(env.Status, "success") {
		msg := env.message()
		if isDuplicateReference(msg) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateReference, ErrDuplicateReference, msg)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("status %d: %s", status, msg), "initialize transaction rejected").
			WithDetails(map[string]any{"status": status, "message": msg})
	}

	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "initialize response missing checkout url")
	}

	return &CreateResponse{
		Reference:   req.Reference,
		CheckoutURL: data.CheckoutURL,
		Raw:         raw,
	}, nil
}

// Verify fetches the provider's current view of reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	endpoint := c.buildURL("transaction/verify/" + url.PathEscape(trimmed))
	status, env, raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !strings.EqualFold(env.Status, "success") {
		msg := env.message()
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("status %d: %s", status, msg), "verify transaction failed").
			WithDetails(map[string]any{"status": status, "message": msg})
	}

	var data struct {
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		TxRef    string          `json:"tx_ref"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode verify response")
	}
	if data.TxRef == "" {
		data.TxRef = trimmed
	}

	return &VerifyResponse{
		Reference:      data.TxRef,
		ReportedStatus: data.Status,
		State:          enums.PaymentStateFromReported(data.Status),
		Amount:         data.Amount,
		Currency:       enums.Currency(strings.ToUpper(data.Currency)),
		Raw:            raw,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (int, envelope, json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, envelope{}, nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, envelope{}, nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return 0, envelope{}, nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read gateway response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, envelope{}, nil, pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("status %d: %w", resp.StatusCode, err), "decode gateway response")
	}
	return resp.StatusCode, env, json.RawMessage(raw), nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func isDuplicateReference(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range duplicateReferenceMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.Contains(lower, "tx_ref") && strings.Contains(lower, "used")
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
