package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tradeflow-backend/internal/ledger"
	"github.com/angelmondragon/tradeflow-backend/internal/repo"
	"github.com/angelmondragon/tradeflow-backend/pkg/config"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/gateway"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
	"github.com/angelmondragon/tradeflow-backend/pkg/types"
)

const (
	// ReturnPath is where the hosted checkout sends the browser back to.
	ReturnPath = "/api/v1/payments/return"
	// CallbackPath receives server-to-server notifications.
	CallbackPath = "/api/v1/webhooks/gateway"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type referenceGenerator interface {
	Generate() (string, error)
}

type payerLookup interface {
	FindActivePayer(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type supplierLookup interface {
	FindActive(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	FindProducts(ctx context.Context, supplierID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.SupplierProduct, error)
}

type returnTokenMinter interface {
	Mint(now time.Time, payerID uuid.UUID, reference string) (string, error)
}

// Service initiates payments and reads their state.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	StartCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	CheckoutSummary(ctx context.Context, sessionID uuid.UUID) (*CheckoutSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error)
	GetByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error)
	History(ctx context.Context, reference string) ([]models.LedgerEvent, error)
}

// ServiceParams groups the collaborators required by NewService.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Gateway    gateway.Gateway
	References referenceGenerator
	Ledger     ledger.Service
	Payers     payerLookup
	Suppliers  supplierLookup
	Tokens     returnTokenMinter
	Payments   config.PaymentsConfig
	GatewayCfg config.GatewayConfig
	PublicURL  string
	Logger     *logger.Logger
}

type service struct {
	repo        Repository
	tx          txRunner
	gw          gateway.Gateway
	refs        referenceGenerator
	ledger      ledger.Service
	payers      payerLookup
	suppliers   supplierLookup
	tokens      returnTokenMinter
	currency    enums.Currency
	maxAttempts int
	timeout     time.Duration
	title       string
	publicURL   string
	logg        *logger.Logger
	now         func() time.Time
}

// NewService validates dependencies and configuration.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case p.References == nil:
		return nil, fmt.Errorf("reference generator required")
	case p.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case p.Payers == nil:
		return nil, fmt.Errorf("payer lookup required")
	case p.Suppliers == nil:
		return nil, fmt.Errorf("supplier lookup required")
	case p.Tokens == nil:
		return nil, fmt.Errorf("return token minter required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	currency, err := enums.ParseCurrency(p.Payments.SystemCurrency)
	if err != nil {
		return nil, fmt.Errorf("system currency: %w", err)
	}
	maxAttempts := p.Payments.MaxInitiationAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	timeout := p.GatewayCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &service{
		repo:        p.Repo,
		tx:          p.Tx,
		gw:          p.Gateway,
		refs:        p.References,
		ledger:      p.Ledger,
		payers:      p.Payers,
		suppliers:   p.Suppliers,
		tokens:      p.Tokens,
		currency:    currency,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		title:       p.GatewayCfg.CheckoutTitle,
		publicURL:   strings.TrimRight(p.PublicURL, "/"),
		logg:        p.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	currency, err := s.validateInitiate(input)
	if err != nil {
		return nil, err
	}

	payer, err := s.payers.FindActivePayer(ctx, input.PayerID)
	if err != nil {
		return nil, err
	}
	supplier, err := s.suppliers.FindActive(ctx, input.SupplierID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.snapshotLineItems(ctx, supplier.ID, input.LineItems)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"payer_id":    payer.ID.String(),
		"supplier_id": supplier.ID.String(),
		"amount":      input.Amount.StringFixed(2),
	})

	var (
		reference string
		created   *gateway.CreateResponse
		attempts  int
		lastErr   error
	)
	for attempts = 1; attempts <= s.maxAttempts; attempts++ {
		reference, err = s.refs.Generate()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate payment reference")
		}
		created, lastErr = s.createCheckout(ctx, reference, input.Amount, currency, payer, supplier)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, gateway.ErrDuplicateReference) {
			s.logg.Error(s.logg.WithReference(ctx, reference), "gateway rejected payment initiation", lastErr)
			return nil, asGatewayError(lastErr)
		}
		s.logg.Warn(s.logg.WithField(s.logg.WithReference(ctx, reference), "attempt", attempts), "payment reference already used, regenerating")
	}
	if lastErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateReference, lastErr, "could not obtain a unique payment reference").
			WithDetails(map[string]any{"attempts": s.maxAttempts})
	}

	attempt := &models.PaymentAttempt{
		Reference:         reference,
		CheckoutSessionID: input.CheckoutSessionID,
		PayerID:           payer.ID,
		SupplierID:        supplier.ID,
		Amount:            input.Amount,
		Currency:          currency,
		State:             enums.PaymentStatePending,
		LineItems:         snapshot,
		CheckoutURL:       created.CheckoutURL,
		GatewayResponse:   created.Raw,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateAttempt(ctx, attempt); err != nil {
			return err
		}
		to := enums.PaymentStatePending
		_, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
			Attempt:  attempt,
			Type:     enums.LedgerEventInitiated,
			ToState:  &to,
			Metadata: map[string]any{"gateway_attempts": attempts},
		})
		return err
	})
	if err != nil {
		// the hosted checkout exists but we hold no record of it; surface loudly
		s.logg.Error(s.logg.WithReference(ctx, reference), "persist payment attempt failed", err)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment reference already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist payment attempt")
	}

	s.logg.Info(s.logg.WithReference(ctx, reference), "payment initiated")
	return &InitiateResult{Attempt: attempt, CheckoutURL: created.CheckoutURL, Attempts: attempts}, nil
}

func (s *service) createCheckout(ctx context.Context, reference string, amount decimal.Decimal, currency enums.Currency, payer *models.User, supplier *models.Supplier) (*gateway.CreateResponse, error) {
	token, err := s.tokens.Mint(s.now(), payer.ID, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint return token")
	}
	returnURL := s.publicURL + ReturnPath + "?" + url.Values{
		"reference": []string{reference},
		"rt":        []string{token},
	}.Encode()

	phone := ""
	if payer.Phone != nil {
		phone = *payer.Phone
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gw.Create(callCtx, gateway.CreateRequest{
		Reference: reference,
		Amount:    amount,
		Currency:  currency,
		Customer: gateway.Customer{
			Email:     payer.Email,
			FirstName: payer.FirstName,
			LastName:  payer.LastName,
			Phone:     phone,
		},
		CallbackURL: s.publicURL + CallbackPath,
		ReturnURL:   returnURL,
		Title:       s.title,
		Description: "Payment to " + supplier.Name,
		Meta: map[string]string{
			"payer_id":    payer.ID.String(),
			"supplier_id": supplier.ID.String(),
		},
	})
}

func (s *service) validateInitiate(input InitiateInput) (enums.Currency, error) {
	if input.PayerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payer id required")
	}
	if input.SupplierID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if !input.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !input.Amount.Round(2).Equal(input.Amount) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "amount supports at most two decimal places")
	}
	currency := s.currency
	if strings.TrimSpace(input.Currency) != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		currency = parsed
	}
	if currency != s.currency {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "currency does not match system currency").
			WithDetails(map[string]any{"expected": s.currency, "got": currency})
	}
	if len(input.LineItems) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	total := decimal.Zero
	for i, item := range input.LineItems {
		if item.ProductID == uuid.Nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item %d: product id required", i))
		}
		if item.Quantity <= 0 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item %d: quantity must be positive", i))
		}
		if item.UnitPrice.IsNegative() {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line item %d: unit price cannot be negative", i))
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !total.Equal(input.Amount) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "line items do not add up to amount").
			WithDetails(map[string]any{"amount": input.Amount.StringFixed(2), "line_items_total": total.StringFixed(2)})
	}
	return currency, nil
}

// snapshotLineItems checks every product belongs to the supplier and freezes names.
func (s *service) snapshotLineItems(ctx context.Context, supplierID uuid.UUID, items []LineItemInput) (types.LineItemSnapshots, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.suppliers.FindProducts(ctx, supplierID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load supplier products")
	}
	snapshot := make(types.LineItemSnapshots, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available from supplier").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		snapshot = append(snapshot, types.LineItemSnapshot{
			ProductID: item.ProductID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return snapshot, nil
}

func (s *service) StartCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.PayerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer id required")
	}
	if len(input.Groups) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one supplier group is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Groups))
	for _, group := range input.Groups {
		if _, dup := seen[group.SupplierID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "each supplier may appear once per checkout")
		}
		seen[group.SupplierID] = struct{}{}
	}
	if _, err := s.payers.FindActivePayer(ctx, input.PayerID); err != nil {
		return nil, err
	}

	session := &models.CheckoutSession{PayerID: input.PayerID, Currency: s.currency}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create checkout session")
	}

	result := &CheckoutResult{SessionID: session.ID}
	var lastErr error
	for _, group := range input.Groups {
		amount := decimal.Zero
		for _, item := range group.LineItems {
			amount = amount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		started, err := s.Initiate(ctx, InitiateInput{
			PayerID:           input.PayerID,
			SupplierID:        group.SupplierID,
			Amount:            amount,
			Currency:          input.Currency,
			LineItems:         group.LineItems,
			CheckoutSessionID: &session.ID,
		})
		if err != nil {
			lastErr = err
			failure := GroupFailure{SupplierID: group.SupplierID, Code: string(pkgerrors.CodeInternal), Message: err.Error()}
			if typed := pkgerrors.As(err); typed != nil {
				failure.Code = string(typed.Code())
				failure.Message = typed.Message()
			}
			result.Failed = append(result.Failed, failure)
			continue
		}
		result.Started = append(result.Started, *started)
	}
	if len(result.Started) == 0 {
		// no group reached the gateway, so the session would stay empty forever
		if err := s.repo.DeleteSession(ctx, session.ID); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "checkout_session_id", session.ID.String()), "discard empty checkout session", err)
		}
		return nil, lastErr
	}
	return result, nil
}

func (s *service) CheckoutSummary(ctx context.Context, sessionID uuid.UUID) (*CheckoutSummary, error) {
	session, err := s.repo.FindSession(ctx, sessionID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load checkout session")
	}
	return summarize(session), nil
}

func summarize(session *models.CheckoutSession) *CheckoutSummary {
	summary := &CheckoutSummary{
		SessionID:   session.ID,
		PayerID:     session.PayerID,
		Currency:    session.Currency,
		TotalAmount: decimal.Zero,
		PaidAmount:  decimal.Zero,
		CreatedAt:   session.CreatedAt,
		Attempts:    make([]AttemptDTO, 0, len(session.Attempts)),
	}
	var paid, pending int
	for i := range session.Attempts {
		attempt := &session.Attempts[i]
		summary.Attempts = append(summary.Attempts, FromModel(attempt))
		summary.TotalAmount = summary.TotalAmount.Add(attempt.Amount)
		switch attempt.State {
		case enums.PaymentStateSuccess:
			paid++
			summary.PaidAmount = summary.PaidAmount.Add(attempt.Amount)
		case enums.PaymentStatePending:
			pending++
		}
	}
	switch {
	case len(session.Attempts) > 0 && paid == len(session.Attempts):
		summary.Status = CheckoutCompleted
	case paid > 0:
		summary.Status = CheckoutPartiallyPaid
	case pending > 0 || len(session.Attempts) == 0:
		summary.Status = CheckoutPending
	default:
		summary.Status = CheckoutFailed
	}
	return summary
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.PaymentAttempt, error) {
	attempt, err := s.repo.FindByID(ctx, id)
	return attempt, mapLookupError(err)
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	attempt, err := s.repo.FindByReference(ctx, reference)
	return attempt, mapLookupError(err)
}

func (s *service) History(ctx context.Context, reference string) ([]models.LedgerEvent, error) {
	attempt, err := s.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	events, err := s.ledger.History(ctx, attempt.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load payment history")
	}
	return events, nil
}

func mapLookupError(err error) error {
	if err == nil {
		return nil
	}
	if repo.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load payment attempt")
}

func asGatewayError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway unavailable")
}
