package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recoup/backend/internal/domain"
	"recoup/backend/internal/money"
	"recoup/backend/internal/store"
	"recoup/backend/internal/xid"
)

// Service exposes manual collections interventions: pausing and resuming
// escalation and recording payment claims. The automatic transitions live in
// the Worker; both share the same state and timeline stores.
type Service struct {
	states store.EscalationStore
	clock  func() time.Time
}

func NewService(states store.EscalationStore) *Service {
	return &Service{states: states, clock: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// PauseEscalation halts automatic transitions for an invoice. Idempotent:
// pausing an already-paused invoice refreshes the reason and deadline without
// corrupting state. An optional pauseUntil sets an auto-resume deadline the
// worker honours on its next pass.
func (s *Service) PauseEscalation(ctx context.Context, invoiceID string, reason domain.PauseReason, pauseUntil *time.Time) error {
	state, err := s.states.GetState(ctx, invoiceID)
	if err != nil {
		return err
	}
	alreadyPaused := state.IsPaused

	now := s.clock().UTC()
	state.IsPaused = true
	state.PauseReason = reason
	state.PausedAt = &now
	state.PauseUntil = pauseUntil
	state.UpdatedAt = now

	if err := s.states.PutState(ctx, *state); err != nil {
		return err
	}

	event := NewEvent(invoiceID, state.CurrentLevel, domain.EventPaused, now, 0)
	event.Message = fmt.Sprintf("Escalation paused (%s)", reason)
	event.Metadata = map[string]string{"reason": string(reason)}
	if pauseUntil != nil {
		event.Metadata["pause_until"] = pauseUntil.UTC().Format(time.RFC3339)
	}
	if err := s.states.AppendTimelineEvent(ctx, event); err != nil {
		// A replayed pause in the same instant builds the same event id; the
		// state already reflects the pause, so the replay succeeds quietly.
		if alreadyPaused && errors.Is(err, store.ErrDuplicateEvent) {
			return nil
		}
		return err
	}
	return nil
}

// ResumeEscalation reenables automatic transitions. A no-op when the invoice
// is not paused.
func (s *Service) ResumeEscalation(ctx context.Context, invoiceID string, reason string) error {
	state, err := s.states.GetState(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !state.IsPaused {
		return nil
	}
	return resume(ctx, s.states, state, reason, s.clock().UTC())
}

// RecordPayment files a payment claim against an invoice: it appends a
// payment_received timeline event and pauses escalation with reason
// payment_claim until the claim is verified.
func (s *Service) RecordPayment(ctx context.Context, invoiceID string, amountPence int64) error {
	state, err := s.states.GetState(ctx, invoiceID)
	if err != nil {
		return err
	}

	now := s.clock().UTC()
	event := NewEvent(invoiceID, state.CurrentLevel, domain.EventPaymentReceived, now, 0)
	event.Message = fmt.Sprintf("Payment of %s reported", money.FormatGBPPence(amountPence))
	event.Metadata = map[string]string{"amount_pence": fmt.Sprintf("%d", amountPence)}
	if err := s.states.AppendTimelineEvent(ctx, event); err != nil {
		return err
	}

	return s.PauseEscalation(ctx, invoiceID, domain.PausePaymentClaim, nil)
}

// Timeline returns the invoice's audit trail, newest-first.
func (s *Service) Timeline(ctx context.Context, invoiceID string) ([]domain.TimelineEvent, error) {
	return s.states.ListTimeline(ctx, invoiceID)
}

// resume clears pause fields and appends the resumed event. Shared between
// manual resume and the worker's auto-resume.
func resume(ctx context.Context, states store.EscalationStore, state *domain.EscalationState, reason string, now time.Time) error {
	state.IsPaused = false
	state.PauseReason = domain.PauseNone
	state.PausedAt = nil
	state.PauseUntil = nil
	state.UpdatedAt = now

	if err := states.PutState(ctx, *state); err != nil {
		return err
	}

	event := NewEvent(state.InvoiceID, state.CurrentLevel, domain.EventResumed, now, 0)
	event.Message = fmt.Sprintf("Escalation resumed (%s)", reason)
	event.Metadata = map[string]string{"reason": reason}
	return states.AppendTimelineEvent(ctx, event)
}

// NewEvent builds a timeline event with a deterministic id. Events created in
// the same pass share a timestamp; seq keeps their ids unique and their
// causal order recoverable.
func NewEvent(invoiceID string, level domain.EscalationLevel, kind domain.EventType, ts time.Time, seq int) domain.TimelineEvent {
	id := fmt.Sprintf("%s-%s-%d", invoiceID, kind, ts.UnixMilli())
	if seq > 0 {
		id = fmt.Sprintf("%s-%d", id, seq)
	}
	if invoiceID == "" {
		id = xid.New("evt")
	}

	return domain.TimelineEvent{
		EventID:         id,
		InvoiceID:       invoiceID,
		EscalationLevel: level,
		EventType:       kind,
		Timestamp:       ts,
	}
}
