package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"recoup/backend/internal/domain"
	"recoup/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindOverdueInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, client_name, client_email, COALESCE(client_phone,''),
			invoice_number, amount_pence, currency, issue_date, due_date, status
		FROM invoices
		WHERE status IN ('overdue', 'in_collections')
		ORDER BY due_date, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 128)
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(
			&inv.ID,
			&inv.UserID,
			&inv.ClientName,
			&inv.ClientEmail,
			&inv.ClientPhone,
			&inv.InvoiceNumber,
			&inv.AmountPence,
			&inv.Currency,
			&inv.IssueDate,
			&inv.DueDate,
			&inv.Status,
		); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invoices, nil
}

func (s *Store) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, client_name, client_email, COALESCE(client_phone,''),
			invoice_number, amount_pence, currency, issue_date, due_date, status
		FROM invoices
		WHERE id = $1
	`, invoiceID).Scan(
		&inv.ID,
		&inv.UserID,
		&inv.ClientName,
		&inv.ClientEmail,
		&inv.ClientPhone,
		&inv.InvoiceNumber,
		&inv.AmountPence,
		&inv.Currency,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Store) SetStatus(ctx context.Context, invoiceID string, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET status = $2, updated_at = now()
		WHERE id = $1
	`, invoiceID, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetState(ctx context.Context, invoiceID string) (*domain.EscalationState, error) {
	var state domain.EscalationState
	var pausedAt, pauseUntil, lastEscalatedAt, nextEscalationDue sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT invoice_id, user_id, current_level, is_paused, pause_reason,
			paused_at, pause_until, last_escalated_at, next_escalation_due,
			created_at, updated_at
		FROM escalation_states
		WHERE invoice_id = $1
	`, invoiceID).Scan(
		&state.InvoiceID,
		&state.UserID,
		&state.CurrentLevel,
		&state.IsPaused,
		&state.PauseReason,
		&pausedAt,
		&pauseUntil,
		&lastEscalatedAt,
		&nextEscalationDue,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if pausedAt.Valid {
		state.PausedAt = &pausedAt.Time
	}
	if pauseUntil.Valid {
		state.PauseUntil = &pauseUntil.Time
	}
	if lastEscalatedAt.Valid {
		state.LastEscalatedAt = &lastEscalatedAt.Time
	}
	if nextEscalationDue.Valid {
		state.NextEscalationDue = &nextEscalationDue.Time
	}
	return &state, nil
}

func (s *Store) PutState(ctx context.Context, state domain.EscalationState) error {
	if state.InvoiceID == "" {
		return store.ErrInvalidInvoice
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escalation_states (invoice_id, user_id, current_level, is_paused,
			pause_reason, paused_at, pause_until, last_escalated_at, next_escalation_due,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (invoice_id)
		DO UPDATE SET
			current_level = EXCLUDED.current_level,
			is_paused = EXCLUDED.is_paused,
			pause_reason = EXCLUDED.pause_reason,
			paused_at = EXCLUDED.paused_at,
			pause_until = EXCLUDED.pause_until,
			last_escalated_at = EXCLUDED.last_escalated_at,
			next_escalation_due = EXCLUDED.next_escalation_due,
			updated_at = EXCLUDED.updated_at
	`,
		state.InvoiceID,
		state.UserID,
		string(state.CurrentLevel),
		state.IsPaused,
		string(state.PauseReason),
		nullTime(state.PausedAt),
		nullTime(state.PauseUntil),
		nullTime(state.LastEscalatedAt),
		nullTime(state.NextEscalationDue),
		state.CreatedAt,
		state.UpdatedAt,
	)
	return err
}

func (s *Store) AppendTimelineEvent(ctx context.Context, event domain.TimelineEvent) error {
	var metadata []byte
	if len(event.Metadata) > 0 {
		payload, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		metadata = payload
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timeline_events (event_id, invoice_id, escalation_level,
			event_type, channel, event_timestamp, message, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		event.EventID,
		event.InvoiceID,
		string(event.EscalationLevel),
		string(event.EventType),
		string(event.Channel),
		event.Timestamp,
		event.Message,
		metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

func (s *Store) ListTimeline(ctx context.Context, invoiceID string) ([]domain.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, invoice_id, escalation_level, event_type, COALESCE(channel,''),
			event_timestamp, message, metadata
		FROM timeline_events
		WHERE invoice_id = $1
		ORDER BY event_timestamp DESC, seq DESC
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0, 32)
	for rows.Next() {
		var ev domain.TimelineEvent
		var metadataRaw []byte
		if err := rows.Scan(
			&ev.EventID,
			&ev.InvoiceID,
			&ev.EscalationLevel,
			&ev.EventType,
			&ev.Channel,
			&ev.Timestamp,
			&ev.Message,
			&metadataRaw,
		); err != nil {
			return nil, err
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &ev.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (s *Store) GetConfig(ctx context.Context, userID string) (domain.AutomationConfig, error) {
	var config domain.AutomationConfig
	var channelsRaw []byte
	var conditionsRaw []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, enabled, channels, pause_conditions
		FROM automation_configs
		WHERE user_id = $1
	`, userID).Scan(
		&config.UserID,
		&config.Enabled,
		&channelsRaw,
		&conditionsRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.AutomationConfig{}, store.ErrNotFound
		}
		return domain.AutomationConfig{}, err
	}

	if len(channelsRaw) > 0 {
		if err := json.Unmarshal(channelsRaw, &config.Channels); err != nil {
			return domain.AutomationConfig{}, err
		}
	}
	if len(conditionsRaw) > 0 {
		if err := json.Unmarshal(conditionsRaw, &config.PauseConditions); err != nil {
			return domain.AutomationConfig{}, err
		}
	}
	return config, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
