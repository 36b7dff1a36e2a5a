package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records and reads the append-only history of payment attempts.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEvent, error)
	History(ctx context.Context, attemptID uuid.UUID) ([]models.LedgerEvent, error)
	HistoryByReference(ctx context.Context, reference string) ([]models.LedgerEvent, error)
	HasEvent(ctx context.Context, attemptID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
}

// entryStore is implemented by Repository.
type entryStore interface {
	Append(ctx context.Context, tx *gorm.DB, entry *models.LedgerEvent) error
	Trail(ctx context.Context, t trail) ([]models.LedgerEvent, error)
	Exists(ctx context.Context, attemptID uuid.UUID, typ enums.LedgerEventType) (bool, error)
}

type service struct {
	store entryStore
}

// RecordInput captures one ledger step. Attempt supplies the reference, amount and currency.
type RecordInput struct {
	Attempt   *models.PaymentAttempt
	Type      enums.LedgerEventType
	FromState *enums.PaymentState
	ToState   *enums.PaymentState
	Channel   *enums.ReconcileChannel
	Metadata  map[string]any
}

func NewService(store entryStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{store: store}, nil
}

// Record appends an entry; pass the surrounding transaction so the entry commits with the state change.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEvent, error) {
	if input.Attempt == nil || input.Attempt.ID == uuid.Nil {
		return nil, fmt.Errorf("payment attempt is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}

	var metadata json.RawMessage
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode ledger metadata: %w", err)
		}
		metadata = raw
	}

	event := &models.LedgerEvent{
		PaymentAttemptID: input.Attempt.ID,
		Reference:        input.Attempt.Reference,
		Type:             input.Type,
		FromState:        input.FromState,
		ToState:          input.ToState,
		Channel:          input.Channel,
		Amount:           input.Attempt.Amount,
		Currency:         input.Attempt.Currency,
		Metadata:         metadata,
	}
	if err := s.store.Append(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("append ledger %s: %w", input.Type, err)
	}
	return event, nil
}

func (s *service) History(ctx context.Context, attemptID uuid.UUID) ([]models.LedgerEvent, error) {
	if attemptID == uuid.Nil {
		return nil, fmt.Errorf("payment attempt id is required")
	}
	return s.store.Trail(ctx, byAttempt(attemptID))
}

func (s *service) HistoryByReference(ctx context.Context, reference string) ([]models.LedgerEvent, error) {
	if reference == "" {
		return nil, fmt.Errorf("reference is required")
	}
	return s.store.Trail(ctx, byReference(reference))
}

func (s *service) HasEvent(ctx context.Context, attemptID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}
	if attemptID == uuid.Nil {
		return false, fmt.Errorf("payment attempt id is required")
	}
	return s.store.Exists(ctx, attemptID, eventType)
}
