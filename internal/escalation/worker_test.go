package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"recoup/backend/internal/domain"
	"recoup/backend/internal/store"
	"recoup/backend/internal/store/memory"
)

var testNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeDispatcher struct {
	mu        sync.Mutex
	sent      []string
	failEmail bool
}

func (f *fakeDispatcher) record(kind string, invoice domain.Invoice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind+":"+invoice.ID)
	return fmt.Sprintf("%s-msg-%d", kind, len(f.sent)), nil
}

func (f *fakeDispatcher) SendEmail(_ context.Context, invoice domain.Invoice, _ string, _ string) (string, error) {
	if f.failEmail {
		return "", errors.New("smtp unavailable")
	}
	return f.record("email", invoice)
}

func (f *fakeDispatcher) SendSMS(_ context.Context, invoice domain.Invoice, _ string) (string, error) {
	if invoice.ClientPhone == "" {
		return "", store.ErrNoRecipient
	}
	return f.record("sms", invoice)
}

func (f *fakeDispatcher) SendVoiceCallRequest(_ context.Context, invoice domain.Invoice) (string, error) {
	return f.record("phone", invoice)
}

func (f *fakeDispatcher) SendAgencyHandoffRequest(_ context.Context, invoice domain.Invoice) (string, error) {
	return f.record("agency", invoice)
}

func testInvoice(id string, daysOverdue int) domain.Invoice {
	due := testNow.AddDate(0, 0, -daysOverdue)
	return domain.Invoice{
		ID:            id,
		UserID:        "user-1",
		ClientName:    "Test Client Ltd",
		ClientEmail:   "billing@client.example",
		ClientPhone:   "+447700900000",
		InvoiceNumber: id,
		AmountPence:   100000,
		Currency:      "GBP",
		IssueDate:     due.AddDate(0, 0, -30),
		DueDate:       due,
		Status:        domain.InvoiceStatusOverdue,
	}
}

func allChannels() map[domain.Channel]bool {
	return map[domain.Channel]bool{
		domain.ChannelEmail:  true,
		domain.ChannelSMS:    true,
		domain.ChannelPhone:  true,
		domain.ChannelAgency: true,
	}
}

func newTestWorker(mem *memory.Store, dispatcher store.ReminderDispatcher) *Worker {
	return NewWorker(mem, mem, mem, dispatcher, nil, nil, zerolog.Nop()).
		WithClock(func() time.Time { return testNow })
}

func seedConfig(mem *memory.Store, enabled bool) {
	mem.PutConfig(domain.AutomationConfig{UserID: "user-1", Enabled: enabled, Channels: allChannels()})
}

func eventTypes(t *testing.T, mem *memory.Store, invoiceID string) []domain.EventType {
	t.Helper()
	events, err := mem.ListTimeline(context.Background(), invoiceID)
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	types := make([]domain.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	return types
}

func TestRunCreatesStateAtImpliedLevel(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	mem.PutInvoice(testInvoice("inv-1", 18))

	worker := newTestWorker(mem, &fakeDispatcher{})
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	state, err := mem.GetState(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("state not created: %v", err)
	}
	if state.CurrentLevel != domain.LevelFirm {
		t.Fatalf("expected state initialised at firm, got %s", state.CurrentLevel)
	}
	if state.NextEscalationDue == nil {
		t.Fatalf("expected next escalation due to be set")
	}

	// First encounter logs the starting stage; no transition yet.
	if result.Scanned != 1 || result.Escalated != 0 || result.Skipped != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	types := eventTypes(t, mem, "inv-1")
	if len(types) != 1 || types[0] != domain.EventEscalated {
		t.Fatalf("expected a single initial escalated event, got %v", types)
	}
}

func TestRunEscalatesAndDispatches(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	mem.PutInvoice(testInvoice("inv-1", 20))
	seedState(t, mem, domain.EscalationState{
		InvoiceID:    "inv-1",
		UserID:       "user-1",
		CurrentLevel: domain.LevelGentle,
		PauseReason:  domain.PauseNone,
	})

	dispatcher := &fakeDispatcher{}
	worker := newTestWorker(mem, dispatcher)
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Escalated != 1 {
		t.Fatalf("expected 1 escalation, got %+v", result)
	}

	state, _ := mem.GetState(context.Background(), "inv-1")
	if state.CurrentLevel != domain.LevelFirm {
		t.Fatalf("expected firm, got %s", state.CurrentLevel)
	}
	if state.LastEscalatedAt == nil || !state.LastEscalatedAt.Equal(testNow) {
		t.Fatalf("expected lastEscalatedAt = now")
	}

	invoice, _ := mem.GetInvoice(context.Background(), "inv-1")
	if invoice.Status != domain.InvoiceStatusInCollections {
		t.Fatalf("expected in_collections, got %s", invoice.Status)
	}

	// Firm stage fires email + sms; both are audited.
	if len(dispatcher.sent) != 2 {
		t.Fatalf("expected 2 dispatches, got %v", dispatcher.sent)
	}
	types := eventTypes(t, mem, "inv-1")
	wantSent := 0
	for _, typ := range types {
		if typ == domain.EventReminderSent {
			wantSent++
		}
	}
	if wantSent != 2 {
		t.Fatalf("expected 2 reminder_sent events, got %v", types)
	}
}

func TestPausedInvoiceNeverEscalates(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	mem.PutInvoice(testInvoice("inv-1", 40))
	pausedAt := testNow.AddDate(0, 0, -3)
	seedState(t, mem, domain.EscalationState{
		InvoiceID:    "inv-1",
		UserID:       "user-1",
		CurrentLevel: domain.LevelGentle,
		IsPaused:     true,
		PauseReason:  domain.PauseDispute,
		PausedAt:     &pausedAt,
	})

	worker := newTestWorker(mem, &fakeDispatcher{})
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Paused != 1 || result.Escalated != 0 {
		t.Fatalf("unexpected counters: %+v", result)
	}

	state, _ := mem.GetState(context.Background(), "inv-1")
	if state.CurrentLevel != domain.LevelGentle || !state.IsPaused {
		t.Fatalf("paused state must not change, got %+v", state)
	}
}

func TestAutoResumeThenEscalateSamePass(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	mem.PutInvoice(testInvoice("inv-1", 40))
	pausedAt := testNow.AddDate(0, 0, -10)
	deadline := testNow.AddDate(0, 0, -1)
	seedState(t, mem, domain.EscalationState{
		InvoiceID:    "inv-1",
		UserID:       "user-1",
		CurrentLevel: domain.LevelGentle,
		IsPaused:     true,
		PauseReason:  domain.PausePaymentClaim,
		PausedAt:     &pausedAt,
		PauseUntil:   &deadline,
	})

	worker := newTestWorker(mem, &fakeDispatcher{})
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Escalated != 1 {
		t.Fatalf("expected escalation after auto-resume, got %+v", result)
	}

	state, _ := mem.GetState(context.Background(), "inv-1")
	if state.IsPaused || state.PauseUntil != nil {
		t.Fatalf("expected pause cleared, got %+v", state)
	}
	if state.CurrentLevel != domain.LevelFinal {
		t.Fatalf("expected final at 40 days, got %s", state.CurrentLevel)
	}

	// Causal order: resumed before escalated before reminders (newest-first).
	events, _ := mem.ListTimeline(context.Background(), "inv-1")
	last := events[len(events)-1]
	if last.EventType != domain.EventResumed {
		t.Fatalf("expected oldest event to be resumed, got %s", last.EventType)
	}
	if meta := last.Metadata["reason"]; meta != "auto_resume_deadline_passed" {
		t.Fatalf("expected auto-resume reason, got %q", meta)
	}
}

func TestAutomationDisabledSkips(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, false)
	mem.PutInvoice(testInvoice("inv-1", 20))
	seedState(t, mem, domain.EscalationState{
		InvoiceID:    "inv-1",
		UserID:       "user-1",
		CurrentLevel: domain.LevelGentle,
		PauseReason:  domain.PauseNone,
	})

	worker := newTestWorker(mem, &fakeDispatcher{})
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Skipped != 1 || result.Escalated != 0 {
		t.Fatalf("unexpected counters: %+v", result)
	}
}

func TestNotActuallyOverdueSkipped(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	// Flagged overdue but due date is in the future: clock/data skew.
	invoice := testInvoice("inv-1", 0)
	invoice.DueDate = testNow.AddDate(0, 0, 5)
	mem.PutInvoice(invoice)

	worker := newTestWorker(mem, &fakeDispatcher{})
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	if _, err := mem.GetState(context.Background(), "inv-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("no state should be created for a future due date")
	}
}

func TestDispatchFailureDoesNotRollBackLevel(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	mem.PutInvoice(testInvoice("inv-1", 20))
	seedState(t, mem, domain.EscalationState{
		InvoiceID:    "inv-1",
		UserID:       "user-1",
		CurrentLevel: domain.LevelGentle,
		PauseReason:  domain.PauseNone,
	})

	worker := newTestWorker(mem, &fakeDispatcher{failEmail: true})
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run must not fail on transport errors: %v", err)
	}
	if result.Escalated != 1 {
		t.Fatalf("escalation must count despite dispatch failure: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one recorded error, got %v", result.Errors)
	}

	state, _ := mem.GetState(context.Background(), "inv-1")
	if state.CurrentLevel != domain.LevelFirm {
		t.Fatalf("level advance is authoritative, got %s", state.CurrentLevel)
	}
}

func TestMissingPhoneAuditsSkippedSMS(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	invoice := testInvoice("inv-1", 20)
	invoice.ClientPhone = ""
	mem.PutInvoice(invoice)
	seedState(t, mem, domain.EscalationState{
		InvoiceID:    "inv-1",
		UserID:       "user-1",
		CurrentLevel: domain.LevelGentle,
		PauseReason:  domain.PauseNone,
	})

	worker := newTestWorker(mem, &fakeDispatcher{})
	if _, err := worker.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	events, _ := mem.ListTimeline(context.Background(), "inv-1")
	found := false
	for _, ev := range events {
		if ev.EventType == domain.EventReminderSent && ev.Channel == domain.ChannelSMS {
			found = true
			if ev.Metadata["skipped"] != "no_recipient" {
				t.Fatalf("expected no_recipient skip marker, got %v", ev.Metadata)
			}
		}
	}
	if !found {
		t.Fatalf("expected an audited sms skip event, got %v", events)
	}
}

func TestRunIsolatesPerInvoiceFailures(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	mem.PutInvoice(testInvoice("inv-1", 20))
	// No automation config for this owner: config load fails for inv-2 only.
	broken := testInvoice("inv-2", 20)
	broken.UserID = "user-unknown"
	mem.PutInvoice(broken)
	seedState(t, mem, domain.EscalationState{
		InvoiceID:    "inv-1",
		UserID:       "user-1",
		CurrentLevel: domain.LevelGentle,
		PauseReason:  domain.PauseNone,
	})

	worker := newTestWorker(mem, &fakeDispatcher{})
	result, err := worker.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Scanned != 2 || result.Escalated != 1 {
		t.Fatalf("unexpected counters: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one isolated error, got %v", result.Errors)
	}
}

func TestCancelledRunReturnsPartialResult(t *testing.T) {
	mem := memory.New()
	seedConfig(mem, true)
	mem.PutInvoice(testInvoice("inv-1", 20))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := newTestWorker(mem, &fakeDispatcher{})
	result, err := worker.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.RunID == "" || !result.FinishedAt.Equal(testNow) {
		t.Fatalf("expected partial result with run metadata, got %+v", result)
	}
}

func seedState(t *testing.T, mem *memory.Store, state domain.EscalationState) {
	t.Helper()
	state.CreatedAt = testNow.AddDate(0, 0, -30)
	state.UpdatedAt = state.CreatedAt
	if err := mem.PutState(context.Background(), state); err != nil {
		t.Fatalf("seed state: %v", err)
	}
}
