// Package repository persists channel outreach records and their
// append-only status change history.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/outreach/domain"
)

var ErrNotFound = errors.New("channel outreach record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SendStatus tracks the drafting lifecycle of a record, independent of the
// outreach status machine. Only an APPROVED record is authoritative for
// its prospect and channel.
type SendStatus string

const (
	SendStatusDraft    SendStatus = "DRAFT"
	SendStatusApproved SendStatus = "APPROVED"
	SendStatusSent     SendStatus = "SENT"
)

type ChannelRecord struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	SDRID          uuid.UUID
	ProspectID     uuid.UUID
	CampaignID     *uuid.UUID
	Channel        domain.Channel
	OutreachStatus *domain.OutreachStatus
	SendStatus     SendStatus
	Subject        *string
	Body           *string
	DateSent       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CurrentStatus returns the record's outreach status, substituting the
// UNKNOWN sentinel when no status has been set yet.
func (c ChannelRecord) CurrentStatus() domain.OutreachStatus {
	if c.OutreachStatus == nil {
		return domain.StatusUnknown
	}
	return *c.OutreachStatus
}

type StatusChangeRecord struct {
	ID              uuid.UUID
	ChannelRecordID uuid.UUID
	FromStatus      domain.OutreachStatus
	ToStatus        domain.OutreachStatus
	CausingSignalID *uuid.UUID
	CreatedAt       time.Time
}

type CreateRecordParams struct {
	TenantID   uuid.UUID
	SDRID      uuid.UUID
	ProspectID uuid.UUID
	CampaignID *uuid.UUID
	Channel    domain.Channel
	SendStatus SendStatus
	Subject    *string
	Body       *string
}

const recordColumns = `id, tenant_id, sdr_id, prospect_id, campaign_id, channel, outreach_status, send_status, subject, body, date_sent, created_at, updated_at`

func scanRecord(row pgx.Row) (ChannelRecord, error) {
	var rec ChannelRecord
	var channel string
	var status *string
	var sendStatus string
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.SDRID, &rec.ProspectID, &rec.CampaignID,
		&channel, &status, &sendStatus, &rec.Subject, &rec.Body, &rec.DateSent, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return ChannelRecord{}, err
	}
	rec.Channel = domain.Channel(channel)
	rec.SendStatus = SendStatus(sendStatus)
	if status != nil {
		s := domain.OutreachStatus(*status)
		rec.OutreachStatus = &s
	}
	return rec, nil
}

func (r *Repository) Create(ctx context.Context, params CreateRecordParams) (ChannelRecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO channel_outreach_records (tenant_id, sdr_id, prospect_id, campaign_id, channel, send_status, subject, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+recordColumns,
		params.TenantID, params.SDRID, params.ProspectID, params.CampaignID,
		string(params.Channel), string(params.SendStatus), params.Subject, params.Body,
	)
	return scanRecord(row)
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (ChannelRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM channel_outreach_records
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ChannelRecord{}, ErrNotFound
	}
	return rec, err
}

// GetForUpdate loads a record inside tx holding a row lock, serializing
// concurrent status transitions on the same record.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (ChannelRecord, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM channel_outreach_records
		WHERE id = $1
		FOR UPDATE`,
		id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ChannelRecord{}, ErrNotFound
	}
	return rec, err
}

// AuthoritativeRecord returns the approved record for a prospect and
// channel. At most one approved record exists per prospect per channel.
func (r *Repository) AuthoritativeRecord(ctx context.Context, tenantID, prospectID uuid.UUID, channel domain.Channel) (ChannelRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM channel_outreach_records
		WHERE tenant_id = $1 AND prospect_id = $2 AND channel = $3 AND send_status IN ('APPROVED', 'SENT')
		ORDER BY created_at DESC
		LIMIT 1`,
		tenantID, prospectID, string(channel),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ChannelRecord{}, ErrNotFound
	}
	return rec, err
}

// ChannelStatuses returns the current status of every channel record for
// a prospect that has one, in no particular order.
func (r *Repository) ChannelStatuses(ctx context.Context, tenantID, prospectID uuid.UUID) ([]domain.OutreachStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT outreach_status
		FROM channel_outreach_records
		WHERE tenant_id = $1 AND prospect_id = $2 AND outreach_status IS NOT NULL`,
		tenantID, prospectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make([]domain.OutreachStatus, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, domain.OutreachStatus(s))
	}
	return statuses, rows.Err()
}

// UpdateStatusTx moves the record to newStatus and appends the matching
// status change entry. Both writes commit or roll back together with the
// caller's transaction.
func (r *Repository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, from, to domain.OutreachStatus, causingSignalID *uuid.UUID) (StatusChangeRecord, error) {
	_, err := tx.Exec(ctx, `
		UPDATE channel_outreach_records
		SET outreach_status = $2, updated_at = now()
		WHERE id = $1`,
		recordID, string(to),
	)
	if err != nil {
		return StatusChangeRecord{}, err
	}

	var change StatusChangeRecord
	err = tx.QueryRow(ctx, `
		INSERT INTO status_change_records (channel_record_id, from_status, to_status, causing_signal_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, channel_record_id, from_status, to_status, causing_signal_id, created_at`,
		recordID, string(from), string(to), causingSignalID,
	).Scan(&change.ID, &change.ChannelRecordID, &change.FromStatus, &change.ToStatus, &change.CausingSignalID, &change.CreatedAt)
	return change, err
}

func (r *Repository) MarkSent(ctx context.Context, recordID uuid.UUID, sentAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channel_outreach_records
		SET send_status = 'SENT', date_sent = $2, updated_at = now()
		WHERE id = $1`,
		recordID, sentAt,
	)
	return err
}

// ListStatusChanges returns the append-only history for a record, oldest
// first.
func (r *Repository) ListStatusChanges(ctx context.Context, tenantID, recordID uuid.UUID) ([]StatusChangeRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.channel_record_id, c.from_status, c.to_status, c.causing_signal_id, c.created_at
		FROM status_change_records c
		JOIN channel_outreach_records r ON r.id = c.channel_record_id
		WHERE c.channel_record_id = $1 AND r.tenant_id = $2
		ORDER BY c.created_at ASC, c.id ASC`,
		recordID, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := make([]StatusChangeRecord, 0)
	for rows.Next() {
		var c StatusChangeRecord
		if err := rows.Scan(&c.ID, &c.ChannelRecordID, &c.FromStatus, &c.ToStatus, &c.CausingSignalID, &c.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}
