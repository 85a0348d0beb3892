package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SendState string

const (
	SendStatePending SendState = "pending"
	SendStateSending SendState = "sending"
	SendStateSent    SendState = "sent"
	SendStateFailed  SendState = "failed"
)

type ScheduledSend struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	ChannelRecordID uuid.UUID
	ToEmail         string
	Subject         string
	Body            string
	RunAt           time.Time
	State           SendState
	Attempts        int
	LastError       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ScheduleSendParams struct {
	TenantID        uuid.UUID
	ChannelRecordID uuid.UUID
	ToEmail         string
	Subject         string
	Body            string
	RunAt           time.Time
}

func (r *Repository) ScheduleSend(ctx context.Context, params ScheduleSendParams) (ScheduledSend, error) {
	var s ScheduledSend
	var state string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scheduled_sends (tenant_id, channel_record_id, to_email, subject, body, run_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, channel_record_id, to_email, subject, body, run_at, state, attempts, last_error, created_at, updated_at`,
		params.TenantID, params.ChannelRecordID, params.ToEmail, params.Subject, params.Body, params.RunAt,
	).Scan(&s.ID, &s.TenantID, &s.ChannelRecordID, &s.ToEmail, &s.Subject, &s.Body, &s.RunAt, &state, &s.Attempts, &s.LastError, &s.CreatedAt, &s.UpdatedAt)
	s.State = SendState(state)
	return s, err
}

func (r *Repository) GetSend(ctx context.Context, id uuid.UUID) (ScheduledSend, error) {
	var s ScheduledSend
	var state string
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, channel_record_id, to_email, subject, body, run_at, state, attempts, last_error, created_at, updated_at
		FROM scheduled_sends
		WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.TenantID, &s.ChannelRecordID, &s.ToEmail, &s.Subject, &s.Body, &s.RunAt, &state, &s.Attempts, &s.LastError, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return ScheduledSend{}, err
	}
	s.State = SendState(state)
	return s, nil
}

// ClaimDueSends moves due pending sends to 'sending' and returns them.
// Concurrent dispatchers skip rows another claim already locked.
func (r *Repository) ClaimDueSends(ctx context.Context, now time.Time, limit int) ([]ScheduledSend, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM scheduled_sends
		WHERE state = 'pending' AND run_at <= $1
		ORDER BY run_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	UPDATE scheduled_sends s
	SET state = 'sending', attempts = s.attempts + 1, updated_at = now()
	FROM cte
	WHERE s.id = cte.id
	RETURNING s.id, s.tenant_id, s.channel_record_id, s.to_email, s.subject, s.body, s.run_at, s.state, s.attempts, s.last_error, s.created_at, s.updated_at`,
		now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScheduledSend
	for rows.Next() {
		var s ScheduledSend
		var state string
		if err := rows.Scan(&s.ID, &s.TenantID, &s.ChannelRecordID, &s.ToEmail, &s.Subject, &s.Body, &s.RunAt, &state, &s.Attempts, &s.LastError, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.State = SendState(state)
		results = append(results, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) MarkSendDone(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_sends
		SET state = 'sent', last_error = NULL, updated_at = now()
		WHERE id = $1`,
		id,
	)
	return err
}

// RetrySend returns a claimed send to the pending pool so the dispatcher
// picks it up again.
func (r *Repository) RetrySend(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_sends
		SET state = 'pending', last_error = $2, updated_at = now()
		WHERE id = $1`,
		id, lastError,
	)
	return err
}

func (r *Repository) MarkSendFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_sends
		SET state = 'failed', last_error = $2, updated_at = now()
		WHERE id = $1`,
		id, lastError,
	)
	return err
}

// CancelPendingSends deletes pending sends for a record and returns how
// many were removed. Sends already claimed or completed are left alone.
func (r *Repository) CancelPendingSends(ctx context.Context, recordID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM scheduled_sends
		WHERE channel_record_id = $1 AND state = 'pending'`,
		recordID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
