package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a random UUID when the caller did not provide one.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (p *PaymentAttempt) BeforeCreate(*gorm.DB) error      { ensureID(&p.ID); return nil }
func (c *CheckoutSession) BeforeCreate(*gorm.DB) error     { ensureID(&c.ID); return nil }
func (o *FulfillmentOrder) BeforeCreate(*gorm.DB) error    { ensureID(&o.ID); return nil }
func (l *FulfillmentLineItem) BeforeCreate(*gorm.DB) error { ensureID(&l.ID); return nil }
func (h *OrderStatusHistory) BeforeCreate(*gorm.DB) error  { ensureID(&h.ID); return nil }
func (r *IssueReport) BeforeCreate(*gorm.DB) error         { ensureID(&r.ID); return nil }
func (m *InventoryMovement) BeforeCreate(*gorm.DB) error   { ensureID(&m.ID); return nil }
func (w *WarehouseProduct) BeforeCreate(*gorm.DB) error    { ensureID(&w.ID); return nil }
func (s *Supplier) BeforeCreate(*gorm.DB) error            { ensureID(&s.ID); return nil }
func (s *SupplierProduct) BeforeCreate(*gorm.DB) error     { ensureID(&s.ID); return nil }
func (u *User) BeforeCreate(*gorm.DB) error                { ensureID(&u.ID); return nil }
func (w *WebhookLog) BeforeCreate(*gorm.DB) error          { ensureID(&w.ID); return nil }
func (e *LedgerEvent) BeforeCreate(*gorm.DB) error         { ensureID(&e.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error         { ensureID(&e.ID); return nil }
func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error           { ensureID(&d.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error        { ensureID(&n.ID); return nil }

// All lists every persisted model; used by dev auto-migration and sqlite tests.
func All() []any {
	return []any{
		&User{},
		&Supplier{},
		&SupplierProduct{},
		&CheckoutSession{},
		&PaymentAttempt{},
		&LedgerEvent{},
		&FulfillmentOrder{},
		&FulfillmentLineItem{},
		&OrderStatusHistory{},
		&IssueReport{},
		&WarehouseProduct{},
		&InventoryMovement{},
		&WebhookLog{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&Notification{},
	}
}
