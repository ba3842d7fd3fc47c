package store

import (
	"context"
	"errors"

	"recoup/backend/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEvent = errors.New("duplicate timeline event")
	ErrInvalidInvoice = errors.New("invalid invoice")
	ErrNoRecipient    = errors.New("no recipient for channel")
)

// InvoiceStore is the read-mostly view the collections core has of the
// invoicing subsystem.
type InvoiceStore interface {
	FindOverdueInvoices(ctx context.Context) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	SetStatus(ctx context.Context, invoiceID string, status string) error
}

// EscalationStore persists per-invoice escalation state and the append-only
// timeline.
type EscalationStore interface {
	GetState(ctx context.Context, invoiceID string) (*domain.EscalationState, error)
	PutState(ctx context.Context, state domain.EscalationState) error
	AppendTimelineEvent(ctx context.Context, event domain.TimelineEvent) error
	// ListTimeline returns events newest-first.
	ListTimeline(ctx context.Context, invoiceID string) ([]domain.TimelineEvent, error)
}

// ConfigProvider serves per-user collections automation settings.
type ConfigProvider interface {
	GetConfig(ctx context.Context, userID string) (domain.AutomationConfig, error)
}

// ReminderDispatcher delivers reminders over external transports. Each call
// returns a provider message or call identifier. Transport failures are
// logged and recorded by the worker, never fatal to a run; ErrNoRecipient
// marks a channel the invoice has no contact details for.
type ReminderDispatcher interface {
	SendEmail(ctx context.Context, invoice domain.Invoice, subject string, body string) (string, error)
	SendSMS(ctx context.Context, invoice domain.Invoice, body string) (string, error)
	SendVoiceCallRequest(ctx context.Context, invoice domain.Invoice) (string, error)
	SendAgencyHandoffRequest(ctx context.Context, invoice domain.Invoice) (string, error)
}
