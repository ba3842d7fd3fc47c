package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"recoup/backend/internal/domain"
	"recoup/backend/internal/interest"
	"recoup/backend/internal/money"
	"recoup/backend/internal/store"
	"recoup/backend/internal/templates"
	"recoup/backend/internal/xid"
)

// Decision is the pure outcome of evaluating one invoice's state against its
// days-overdue count. Effects (state writes, dispatches) are applied by the
// Worker after planning.
type Decision struct {
	Paused     bool
	AutoResume bool
	Escalate   bool
	Target     domain.EscalationLevel
}

// Plan evaluates the transition for one invoice. A paused invoice yields no
// transition unless its pause deadline has passed, in which case it is
// auto-resumed and then evaluated normally in the same pass.
func Plan(state domain.EscalationState, daysOverdue int, now time.Time) Decision {
	var d Decision

	if state.IsPaused {
		if state.PauseUntil == nil || now.Before(*state.PauseUntil) {
			d.Paused = true
			return d
		}
		d.AutoResume = true
	}

	if ShouldEscalate(state.CurrentLevel, daysOverdue) {
		d.Escalate = true
		d.Target = LevelForDays(daysOverdue)
	}
	return d
}

// RunResult are the counters for one worker pass. Partial when the run is
// cancelled mid-pass.
type RunResult struct {
	RunID      string    `json:"run_id"`
	Scanned    int       `json:"scanned"`
	Escalated  int       `json:"escalated"`
	Paused     int       `json:"paused"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Worker runs one collections pass over every overdue invoice. Failures on a
// single invoice are recorded and the pass continues; only the initial
// invoice fetch is fatal.
type Worker struct {
	invoices   store.InvoiceStore
	states     store.EscalationStore
	configs    store.ConfigProvider
	dispatcher store.ReminderDispatcher
	calculator *interest.Calculator
	renderer   *templates.Engine
	clock      func() time.Time
	log        zerolog.Logger
}

func NewWorker(
	invoices store.InvoiceStore,
	states store.EscalationStore,
	configs store.ConfigProvider,
	dispatcher store.ReminderDispatcher,
	calculator *interest.Calculator,
	renderer *templates.Engine,
	logger zerolog.Logger,
) *Worker {
	if calculator == nil {
		calculator = interest.NewCalculator(nil)
	}
	if renderer == nil {
		renderer = templates.NewEngine("")
	}
	return &Worker{
		invoices:   invoices,
		states:     states,
		configs:    configs,
		dispatcher: dispatcher,
		calculator: calculator,
		renderer:   renderer,
		clock:      time.Now,
		log:        logger,
	}
}

// WithClock overrides the time source, for tests.
func (w *Worker) WithClock(clock func() time.Time) *Worker {
	w.clock = clock
	return w
}

// Run executes one escalation pass. Returns the counters accumulated so far
// together with ctx.Err() when the run is cut short.
func (w *Worker) Run(ctx context.Context) (RunResult, error) {
	now := w.clock().UTC()
	result := RunResult{RunID: xid.New("run"), StartedAt: now}

	invoices, err := w.invoices.FindOverdueInvoices(ctx)
	if err != nil {
		result.FinishedAt = w.clock().UTC()
		return result, fmt.Errorf("fetch overdue invoices: %w", err)
	}

	for _, invoice := range invoices {
		select {
		case <-ctx.Done():
			result.FinishedAt = w.clock().UTC()
			return result, ctx.Err()
		default:
		}

		result.Scanned++
		if err := w.processInvoice(ctx, invoice, now, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", invoice.ID, err))
			w.log.Error().Err(err).Str("invoice_id", invoice.ID).Msg("invoice pass failed")
		}
	}

	result.FinishedAt = w.clock().UTC()
	w.log.Info().
		Str("run_id", result.RunID).
		Int("scanned", result.Scanned).
		Int("escalated", result.Escalated).
		Int("paused", result.Paused).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("escalation pass complete")
	return result, nil
}

func (w *Worker) processInvoice(ctx context.Context, invoice domain.Invoice, now time.Time, result *RunResult) error {
	daysOverdue := money.DaysBetween(invoice.DueDate, now)
	if daysOverdue < 0 {
		// Not actually overdue; guard against clock or data skew.
		result.Skipped++
		return nil
	}

	state, err := w.loadOrCreateState(ctx, invoice, daysOverdue, now)
	if err != nil {
		return err
	}

	decision := Plan(*state, daysOverdue, now)
	if decision.Paused {
		result.Paused++
		return nil
	}
	if decision.AutoResume {
		if err := resume(ctx, w.states, state, "auto_resume_deadline_passed", now); err != nil {
			return err
		}
		w.log.Info().Str("invoice_id", invoice.ID).Msg("pause deadline passed, auto-resumed")
	}

	config, err := w.configs.GetConfig(ctx, invoice.UserID)
	if err != nil {
		return fmt.Errorf("load automation config: %w", err)
	}
	if !config.Enabled {
		result.Skipped++
		return nil
	}

	if !decision.Escalate {
		result.Skipped++
		return nil
	}

	if err := w.escalate(ctx, invoice, state, decision.Target, daysOverdue, config, now, result); err != nil {
		return err
	}
	result.Escalated++
	return nil
}

// loadOrCreateState fetches the invoice's escalation state, initialising it
// on first encounter. The starting level comes from the current days-overdue
// count so invoices already deep overdue don't replay every stage.
func (w *Worker) loadOrCreateState(ctx context.Context, invoice domain.Invoice, daysOverdue int, now time.Time) (*domain.EscalationState, error) {
	state, err := w.states.GetState(ctx, invoice.ID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	level := LevelForDays(daysOverdue)
	created := domain.EscalationState{
		InvoiceID:    invoice.ID,
		UserID:       invoice.UserID,
		CurrentLevel: level,
		PauseReason:  domain.PauseNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if next, ok := NextLevel(level); ok {
		nextDue := invoice.DueDate.AddDate(0, 0, next.DaysMin)
		created.NextEscalationDue = &nextDue
	}
	if err := w.states.PutState(ctx, created); err != nil {
		return nil, err
	}

	event := NewEvent(invoice.ID, level, domain.EventEscalated, now, 0)
	event.Message = fmt.Sprintf("Collections started at stage %s (%d days overdue)", level, daysOverdue)
	event.Metadata = map[string]string{
		"days_overdue": fmt.Sprintf("%d", daysOverdue),
		"initial":      "true",
	}
	if err := w.states.AppendTimelineEvent(ctx, event); err != nil {
		return nil, err
	}

	w.log.Info().Str("invoice_id", invoice.ID).Str("level", string(level)).Int("days_overdue", daysOverdue).Msg("escalation state created")
	return &created, nil
}

// escalate advances the invoice to the target stage and fires the stage's
// reminders. The level advance is authoritative: a reminder dispatch failure
// after the state write is recorded but never rolls the level back.
func (w *Worker) escalate(
	ctx context.Context,
	invoice domain.Invoice,
	state *domain.EscalationState,
	target domain.EscalationLevel,
	daysOverdue int,
	config domain.AutomationConfig,
	now time.Time,
	result *RunResult,
) error {
	levelCfg, ok := ConfigFor(target)
	if !ok {
		return fmt.Errorf("no configuration for level %s", target)
	}

	previous := state.CurrentLevel
	state.CurrentLevel = target
	state.LastEscalatedAt = &now
	state.UpdatedAt = now
	if next, ok := NextLevel(target); ok {
		nextDue := invoice.DueDate.AddDate(0, 0, next.DaysMin)
		state.NextEscalationDue = &nextDue
	} else {
		state.NextEscalationDue = nil
	}
	if err := w.states.PutState(ctx, *state); err != nil {
		return err
	}

	if target != domain.LevelPending {
		if err := w.invoices.SetStatus(ctx, invoice.ID, domain.InvoiceStatusInCollections); err != nil {
			return fmt.Errorf("set invoice status: %w", err)
		}
	}

	channels := make([]string, 0, len(levelCfg.Channels))
	for _, ch := range levelCfg.Channels {
		channels = append(channels, string(ch))
	}

	seq := 0
	event := NewEvent(invoice.ID, target, domain.EventEscalated, now, seq)
	event.Message = fmt.Sprintf("Escalated from %s to %s after %d days overdue", previous, target, daysOverdue)
	event.Metadata = map[string]string{
		"previous_level": string(previous),
		"days_overdue":   fmt.Sprintf("%d", daysOverdue),
		"tone":           levelCfg.Tone,
		"channels":       strings.Join(channels, ","),
	}
	if err := w.states.AppendTimelineEvent(ctx, event); err != nil {
		return err
	}

	calc, err := w.calculator.Calculate(interest.Params{
		PrincipalAmount: money.PenceToPounds(invoice.AmountPence),
		DueDate:         invoice.DueDate,
		CurrentDate:     now,
	})
	if err != nil {
		// Reminder content degrades to the bare amounts; the transition stands.
		result.Errors = append(result.Errors, fmt.Sprintf("%s: interest calculation: %v", invoice.ID, err))
	}
	content := w.renderer.Render(target, invoice, calc)

	for _, ch := range levelCfg.Channels {
		if !config.ChannelEnabled(ch) {
			continue
		}
		seq++
		if err := w.dispatch(ctx, invoice, target, ch, content, now, seq); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s dispatch: %v", invoice.ID, ch, err))
			w.log.Warn().Err(err).Str("invoice_id", invoice.ID).Str("channel", string(ch)).Msg("reminder dispatch failed")
		}
	}
	return nil
}

// dispatch sends one reminder and records the outcome on the timeline. A
// missing recipient is recorded as a skip so the audit trail stays honest.
func (w *Worker) dispatch(
	ctx context.Context,
	invoice domain.Invoice,
	level domain.EscalationLevel,
	channel domain.Channel,
	content templates.Content,
	now time.Time,
	seq int,
) error {
	var providerID string
	var err error

	switch channel {
	case domain.ChannelEmail:
		providerID, err = w.dispatcher.SendEmail(ctx, invoice, content.Subject, content.EmailBody)
	case domain.ChannelSMS:
		providerID, err = w.dispatcher.SendSMS(ctx, invoice, content.SMSBody)
	case domain.ChannelPhone:
		providerID, err = w.dispatcher.SendVoiceCallRequest(ctx, invoice)
	case domain.ChannelAgency:
		providerID, err = w.dispatcher.SendAgencyHandoffRequest(ctx, invoice)
	default:
		return fmt.Errorf("unknown channel %s", channel)
	}

	event := NewEvent(invoice.ID, level, domain.EventReminderSent, now, seq)
	event.Channel = channel

	if errors.Is(err, store.ErrNoRecipient) {
		event.Message = fmt.Sprintf("%s reminder skipped: no recipient on file", channel)
		event.Metadata = map[string]string{"skipped": "no_recipient"}
		return w.states.AppendTimelineEvent(ctx, event)
	}
	if err != nil {
		return err
	}

	event.Message = fmt.Sprintf("%s reminder sent (%s)", channel, content.TemplateLevel)
	event.Metadata = map[string]string{
		"provider_message_id": providerID,
		"template_level":      string(content.TemplateLevel),
	}
	return w.states.AppendTimelineEvent(ctx, event)
}
