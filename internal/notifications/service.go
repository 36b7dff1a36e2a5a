package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/pagination"
)

// Service is the read side of a payer's or supplier's inbox.
type Service interface {
	Inbox(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page pagination.Params) (*InboxPage, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type InboxPage struct {
	Items      []models.Notification `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

type inboxStore interface {
	Page(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID, at time.Time) (readOutcome, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
}

type service struct {
	store inboxStore
	now   func() time.Time
}

func NewService(store inboxStore) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{store: store, now: time.Now}, nil
}

func requireRecipient(id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	return nil
}

func (s *service) Inbox(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page pagination.Params) (*InboxPage, error) {
	if err := requireRecipient(recipientID); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, next, err := s.store.Page(ctx, recipientID, unreadOnly, cursor, page.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inbox")
	}
	out := &InboxPage{Items: items}
	if out.Items == nil {
		out.Items = []models.Notification{}
	}
	if next != nil {
		out.NextCursor = pagination.EncodeCursor(*next)
	}
	return out, nil
}

// MarkRead is idempotent for a row the recipient owns; rows owned by
// someone else look missing.
func (s *service) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if err := requireRecipient(recipientID); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	outcome, err := s.store.MarkRead(ctx, recipientID, notificationID, s.now().UTC())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	case outcome == readMissing:
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if err := requireRecipient(recipientID); err != nil {
		return 0, err
	}
	n, err := s.store.MarkAllRead(ctx, recipientID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark inbox read")
	}
	return n, nil
}
