package domain

import "time"

// Invoice status values. The collections core only moves invoices between
// overdue and in_collections; everything else belongs to the invoicing side.
const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusSent          = "sent"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusOverdue       = "overdue"
	InvoiceStatusInCollections = "in_collections"
	InvoiceStatusDisputed      = "disputed"
	InvoiceStatusCancelled     = "cancelled"
)

type Invoice struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ClientName    string    `json:"client_name"`
	ClientEmail   string    `json:"client_email"`
	ClientPhone   string    `json:"client_phone,omitempty"`
	InvoiceNumber string    `json:"invoice_number"`
	AmountPence   int64     `json:"amount_pence"`
	Currency      string    `json:"currency"`
	IssueDate     time.Time `json:"issue_date"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
}

// EscalationLevel is one of five ordered collections stages. The ordering is
// the ordinal below; levels never move backward automatically.
type EscalationLevel string

const (
	LevelPending EscalationLevel = "pending"
	LevelGentle  EscalationLevel = "gentle"
	LevelFirm    EscalationLevel = "firm"
	LevelFinal   EscalationLevel = "final"
	LevelAgency  EscalationLevel = "agency"
)

// Ordinal returns the position of the level in the escalation ladder.
// Unknown levels sort before pending so a corrupt value can only escalate.
func (l EscalationLevel) Ordinal() int {
	switch l {
	case LevelPending:
		return 0
	case LevelGentle:
		return 1
	case LevelFirm:
		return 2
	case LevelFinal:
		return 3
	case LevelAgency:
		return 4
	default:
		return -1
	}
}

// After reports whether l is strictly later in the ladder than other.
func (l EscalationLevel) After(other EscalationLevel) bool {
	return l.Ordinal() > other.Ordinal()
}

type PauseReason string

const (
	PauseNone         PauseReason = "none"
	PausePaymentClaim PauseReason = "payment_claim"
	PauseManual       PauseReason = "manual"
	PauseDispute      PauseReason = "dispute"
)

// EscalationState is the per-invoice collections record. Created on the first
// worker pass that sees the invoice overdue; never deleted.
type EscalationState struct {
	InvoiceID         string          `json:"invoice_id"`
	UserID            string          `json:"user_id"`
	CurrentLevel      EscalationLevel `json:"current_level"`
	IsPaused          bool            `json:"is_paused"`
	PauseReason       PauseReason     `json:"pause_reason"`
	PausedAt          *time.Time      `json:"paused_at,omitempty"`
	PauseUntil        *time.Time      `json:"pause_until,omitempty"`
	LastEscalatedAt   *time.Time      `json:"last_escalated_at,omitempty"`
	NextEscalationDue *time.Time      `json:"next_escalation_due,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type EventType string

const (
	EventEscalated       EventType = "escalated"
	EventPaused          EventType = "paused"
	EventResumed         EventType = "resumed"
	EventReminderSent    EventType = "reminder_sent"
	EventPaymentReceived EventType = "payment_received"
)

type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSMS    Channel = "sms"
	ChannelPhone  Channel = "phone"
	ChannelAgency Channel = "agency"
)

// TimelineEvent is an append-only audit record. Events are immutable once
// written; insert order must follow causal order even when timestamps tie.
type TimelineEvent struct {
	EventID         string            `json:"event_id"`
	InvoiceID       string            `json:"invoice_id"`
	EscalationLevel EscalationLevel   `json:"escalation_level"`
	EventType       EventType         `json:"event_type"`
	Channel         Channel           `json:"channel,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	Message         string            `json:"message"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// AutomationConfig is the per-user collections automation settings. Read-only
// during a worker run.
type AutomationConfig struct {
	UserID          string           `json:"user_id"`
	Enabled         bool             `json:"enabled"`
	Channels        map[Channel]bool `json:"channels"`
	PauseConditions []string         `json:"pause_conditions,omitempty"`
}

// ChannelEnabled treats a missing channel entry as disabled.
func (c AutomationConfig) ChannelEnabled(ch Channel) bool {
	return c.Channels[ch]
}
