package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"recoup/backend/internal/domain"
	"recoup/backend/internal/store"
	"recoup/backend/internal/xid"
)

// Store is an in-memory implementation of every collaborator contract the
// collections core needs. Used by tests and local dev runs when no
// DATABASE_URL is configured.
type Store struct {
	mu       sync.RWMutex
	invoices map[string]domain.Invoice
	states   map[string]domain.EscalationState
	timeline map[string][]domain.TimelineEvent
	eventIDs map[string]struct{}
	configs  map[string]domain.AutomationConfig
}

func New() *Store {
	return &Store{
		invoices: map[string]domain.Invoice{},
		states:   map[string]domain.EscalationState{},
		timeline: map[string][]domain.TimelineEvent{},
		eventIDs: map[string]struct{}{},
		configs:  map[string]domain.AutomationConfig{},
	}
}

// NewSeeded builds a store with a handful of overdue invoices for dev/demo
// mode, owned by a single user with all channels enabled.
func NewSeeded(now time.Time) *Store {
	s := New()
	now = now.UTC()

	s.PutConfig(domain.AutomationConfig{
		UserID:  "user-demo",
		Enabled: true,
		Channels: map[domain.Channel]bool{
			domain.ChannelEmail:  true,
			domain.ChannelSMS:    true,
			domain.ChannelPhone:  true,
			domain.ChannelAgency: true,
		},
	})

	seed := []struct {
		id          string
		number      string
		amountPence int64
		daysOverdue int
		phone       string
	}{
		{"inv-1001", "1001", 85000, 6, "+447700900101"},
		{"inv-1002", "1002", 240000, 18, ""},
		{"inv-1003", "1003", 1250000, 35, "+447700900103"},
		{"inv-1004", "1004", 56000, 72, "+447700900104"},
	}
	for _, item := range seed {
		due := now.AddDate(0, 0, -item.daysOverdue)
		s.PutInvoice(domain.Invoice{
			ID:            item.id,
			UserID:        "user-demo",
			ClientName:    "Acme Trading Ltd",
			ClientEmail:   "accounts@acme.example",
			ClientPhone:   item.phone,
			InvoiceNumber: item.number,
			AmountPence:   item.amountPence,
			Currency:      "GBP",
			IssueDate:     due.AddDate(0, 0, -30),
			DueDate:       due,
			Status:        domain.InvoiceStatusOverdue,
		})
	}
	return s
}

func (s *Store) PutInvoice(invoice domain.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[invoice.ID] = invoice
}

func (s *Store) PutConfig(config domain.AutomationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[config.UserID] = config
}

func (s *Store) FindOverdueInvoices(_ context.Context) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]domain.Invoice, 0, len(s.invoices))
	for _, invoice := range s.invoices {
		if invoice.Status == domain.InvoiceStatusOverdue || invoice.Status == domain.InvoiceStatusInCollections {
			invoices = append(invoices, invoice)
		}
	}
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].ID < invoices[j].ID })
	return invoices, nil
}

func (s *Store) GetInvoice(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, ok := s.invoices[invoiceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &invoice, nil
}

func (s *Store) SetStatus(_ context.Context, invoiceID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, ok := s.invoices[invoiceID]
	if !ok {
		return store.ErrNotFound
	}
	invoice.Status = status
	s.invoices[invoiceID] = invoice
	return nil
}

func (s *Store) GetState(_ context.Context, invoiceID string) (*domain.EscalationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[invoiceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &state, nil
}

func (s *Store) PutState(_ context.Context, state domain.EscalationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.InvoiceID] = state
	return nil
}

func (s *Store) AppendTimelineEvent(_ context.Context, event domain.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.EventID == "" {
		event.EventID = xid.New("evt")
	}
	if _, exists := s.eventIDs[event.EventID]; exists {
		return store.ErrDuplicateEvent
	}
	s.eventIDs[event.EventID] = struct{}{}
	s.timeline[event.InvoiceID] = append(s.timeline[event.InvoiceID], event)
	return nil
}

// ListTimeline returns events newest-first. Events sharing a timestamp keep
// reverse insertion order so the latest causal step comes first.
func (s *Store) ListTimeline(_ context.Context, invoiceID string) ([]domain.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.timeline[invoiceID]
	out := make([]domain.TimelineEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, events[i])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *Store) GetConfig(_ context.Context, userID string) (domain.AutomationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.configs[userID]
	if !ok {
		return domain.AutomationConfig{}, store.ErrNotFound
	}
	return config, nil
}

// Dispatcher fabricates provider ids instead of calling real transports.
// Dev/demo mode and tests use it in place of the email/SMS/voice gateways.
type Dispatcher struct{}

func (Dispatcher) SendEmail(_ context.Context, invoice domain.Invoice, _ string, _ string) (string, error) {
	if invoice.ClientEmail == "" {
		return "", store.ErrNoRecipient
	}
	return xid.New("email"), nil
}

func (Dispatcher) SendSMS(_ context.Context, invoice domain.Invoice, _ string) (string, error) {
	if invoice.ClientPhone == "" {
		return "", store.ErrNoRecipient
	}
	return xid.New("sms"), nil
}

func (Dispatcher) SendVoiceCallRequest(_ context.Context, invoice domain.Invoice) (string, error) {
	if invoice.ClientPhone == "" {
		return "", store.ErrNoRecipient
	}
	return xid.New("call"), nil
}

func (Dispatcher) SendAgencyHandoffRequest(_ context.Context, _ domain.Invoice) (string, error) {
	return xid.New("agency"), nil
}
