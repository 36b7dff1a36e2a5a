package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	"github.com/angelmondragon/tradeflow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn func(ctx context.Context, event *models.LedgerEvent) error
	events   []models.LedgerEvent
	trails   []trail
}

func (f *fakeRepository) Append(ctx context.Context, _ *gorm.DB, event *models.LedgerEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) Trail(_ context.Context, t trail) ([]models.LedgerEvent, error) {
	f.trails = append(f.trails, t)
	return f.events, nil
}

func (f *fakeRepository) Exists(_ context.Context, _ uuid.UUID, typ enums.LedgerEventType) (bool, error) {
	for _, event := range f.events {
		if event.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

func testAttempt() *models.PaymentAttempt {
	return &models.PaymentAttempt{
		ID:        uuid.New(),
		Reference: "EZM-01JABCDEF0123456789ABCDEFG",
		Amount:    decimal.RequireFromString("1000.00"),
		Currency:  enums.CurrencyETB,
		State:     enums.PaymentStatePending,
	}
}

func TestService_Record(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	attempt := testAttempt()
	from := enums.PaymentStatePending
	to := enums.PaymentStateSuccess
	channel := enums.ChannelWebhook

	got, err := svc.Record(context.Background(), nil, RecordInput{
		Attempt:   attempt,
		Type:      enums.LedgerEventSettledSuccess,
		FromState: &from,
		ToState:   &to,
		Channel:   &channel,
		Metadata:  map[string]any{"gateway_status": "success"},
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if got.PaymentAttemptID != attempt.ID || got.Reference != attempt.Reference {
		t.Fatalf("unexpected attempt linkage: %+v", got)
	}
	if !got.Amount.Equal(attempt.Amount) || got.Currency != enums.CurrencyETB {
		t.Fatalf("amount not copied from attempt: %+v", got)
	}
	if string(got.Metadata) != `{"gateway_status":"success"}` {
		t.Fatalf("metadata mismatch: %s", got.Metadata)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	if _, err := svc.Record(context.Background(), nil, RecordInput{Type: enums.LedgerEventInitiated}); err == nil {
		t.Fatal("expected error without attempt")
	}
	if _, err := svc.Record(context.Background(), nil, RecordInput{Attempt: testAttempt(), Type: "bogus"}); err == nil {
		t.Fatal("expected error for invalid type")
	}
}

func TestService_RecordRepositoryError(t *testing.T) {
	repo := &fakeRepository{createFn: func(context.Context, *models.LedgerEvent) error {
		return errors.New("db down")
	}}
	svc, _ := NewService(repo)
	if _, err := svc.Record(context.Background(), nil, RecordInput{Attempt: testAttempt(), Type: enums.LedgerEventInitiated}); err == nil {
		t.Fatal("expected repository error")
	}
}

func TestService_HistoryPicksTrail(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)
	id := uuid.New()

	if _, err := svc.History(context.Background(), id); err != nil {
		t.Fatalf("history: %v", err)
	}
	if _, err := svc.HistoryByReference(context.Background(), "EZM-1"); err != nil {
		t.Fatalf("history by reference: %v", err)
	}
	want := []trail{byAttempt(id), byReference("EZM-1")}
	if len(repo.trails) != 2 || repo.trails[0] != want[0] || repo.trails[1] != want[1] {
		t.Fatalf("unexpected trails %+v", repo.trails)
	}
	if _, err := svc.History(context.Background(), uuid.Nil); err == nil {
		t.Fatal("expected nil attempt id rejected")
	}
}

func TestService_HasEvent(t *testing.T) {
	repo := &fakeRepository{events: []models.LedgerEvent{{Type: enums.LedgerEventInitiated}, {Type: enums.LedgerEventSettledSuccess}}}
	svc, _ := NewService(repo)

	ok, err := svc.HasEvent(context.Background(), uuid.New(), enums.LedgerEventSettledSuccess)
	if err != nil || !ok {
		t.Fatalf("expected settled event, got %v %v", ok, err)
	}
	ok, err = svc.HasEvent(context.Background(), uuid.New(), enums.LedgerEventAmountMismatch)
	if err != nil || ok {
		t.Fatalf("expected no mismatch event, got %v %v", ok, err)
	}
}

func TestRepository_OrderedHistory(t *testing.T) {
	conn := dbtest.Open(t)
	svc, _ := NewService(NewRepository(conn))

	attempt := testAttempt()
	for _, typ := range []enums.LedgerEventType{enums.LedgerEventInitiated, enums.LedgerEventSettledSuccess} {
		if _, err := svc.Record(context.Background(), conn, RecordInput{Attempt: attempt, Type: typ}); err != nil {
			t.Fatalf("record %s: %v", typ, err)
		}
	}

	events, err := svc.HistoryByReference(context.Background(), attempt.Reference)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	byID, err := svc.History(context.Background(), attempt.ID)
	if err != nil || len(byID) != 2 {
		t.Fatalf("expected 2 events by id, got %d (%v)", len(byID), err)
	}

	ok, err := svc.HasEvent(context.Background(), attempt.ID, enums.LedgerEventSettledSuccess)
	if err != nil || !ok {
		t.Fatalf("expected settled entry, got %v %v", ok, err)
	}
	ok, err = svc.HasEvent(context.Background(), attempt.ID, enums.LedgerEventAmountMismatch)
	if err != nil || ok {
		t.Fatalf("expected no mismatch entry, got %v %v", ok, err)
	}
}
