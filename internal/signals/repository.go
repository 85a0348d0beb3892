package signals

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/outreach/domain"
)

var (
	ErrRawNotFound        = errors.New("raw interaction signal not found")
	ErrNormalizedNotFound = errors.New("normalized interaction signal not found")
)

// Source identifies where a raw signal came from.
type Source string

const (
	SourceEmailWebhook   Source = "EMAIL_WEBHOOK"
	SourceBatchAnalytics Source = "BATCH_ANALYTICS"
)

type RawSignal struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SDRID       uuid.UUID
	Source      Source
	Payload     []byte
	ContentHash string
	CreatedAt   time.Time
}

// NormalizedEntry is one prospect-level interaction extracted from a raw
// signal.
type NormalizedEntry struct {
	Email       string                  `json:"email"`
	Interaction domain.InteractionState `json:"interaction"`
	Sequence    domain.SequenceState    `json:"sequence"`
}

type NormalizedSignal struct {
	ID           uuid.UUID
	RawSignalID  uuid.UUID
	TenantID     uuid.UUID
	SDRID        uuid.UUID
	Entries      []NormalizedEntry
	Outcomes     []ReconcileOutcome
	ReconciledAt *time.Time
	CreatedAt    time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertRaw stores a raw signal. When a signal with the same content hash
// already exists for the tenant and SDR, the existing row is returned and
// created reports false.
func (r *Repository) InsertRaw(ctx context.Context, tenantID, sdrID uuid.UUID, source Source, payload []byte, contentHash string) (RawSignal, bool, error) {
	var sig RawSignal
	var src string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO raw_interaction_signals (tenant_id, sdr_id, source, payload, content_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, tenant_id, sdr_id, source, payload, content_hash, created_at`,
		tenantID, sdrID, string(source), payload, contentHash,
	).Scan(&sig.ID, &sig.TenantID, &sig.SDRID, &src, &sig.Payload, &sig.ContentHash, &sig.CreatedAt)
	if err == nil {
		sig.Source = Source(src)
		return sig, true, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return RawSignal{}, false, err
	}

	// Lost the race or a true duplicate submission. Either way the stored
	// row wins.
	existing, lookupErr := r.GetRawByHash(ctx, tenantID, sdrID, contentHash)
	if lookupErr != nil {
		return RawSignal{}, false, lookupErr
	}
	return existing, false, nil
}

func (r *Repository) GetRawByHash(ctx context.Context, tenantID, sdrID uuid.UUID, contentHash string) (RawSignal, error) {
	var sig RawSignal
	var src string
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, sdr_id, source, payload, content_hash, created_at
		FROM raw_interaction_signals
		WHERE tenant_id = $1 AND sdr_id = $2 AND content_hash = $3`,
		tenantID, sdrID, contentHash,
	).Scan(&sig.ID, &sig.TenantID, &sig.SDRID, &src, &sig.Payload, &sig.ContentHash, &sig.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RawSignal{}, ErrRawNotFound
	}
	if err != nil {
		return RawSignal{}, err
	}
	sig.Source = Source(src)
	return sig, nil
}

func (r *Repository) GetRaw(ctx context.Context, id uuid.UUID) (RawSignal, error) {
	var sig RawSignal
	var src string
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, sdr_id, source, payload, content_hash, created_at
		FROM raw_interaction_signals
		WHERE id = $1`,
		id,
	).Scan(&sig.ID, &sig.TenantID, &sig.SDRID, &src, &sig.Payload, &sig.ContentHash, &sig.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RawSignal{}, ErrRawNotFound
	}
	if err != nil {
		return RawSignal{}, err
	}
	sig.Source = Source(src)
	return sig, nil
}

// InsertNormalized stores the normalized form of a raw signal. Normalizing
// the same raw signal twice returns the first result.
func (r *Repository) InsertNormalized(ctx context.Context, raw RawSignal, entries []NormalizedEntry) (NormalizedSignal, error) {
	payload, err := json.Marshal(entries)
	if err != nil {
		return NormalizedSignal{}, err
	}

	var sig NormalizedSignal
	err = r.pool.QueryRow(ctx, `
		INSERT INTO normalized_interaction_signals (raw_signal_id, tenant_id, sdr_id, entries)
		VALUES ($1, $2, $3, $4)
		RETURNING id, raw_signal_id, tenant_id, sdr_id, created_at`,
		raw.ID, raw.TenantID, raw.SDRID, payload,
	).Scan(&sig.ID, &sig.RawSignalID, &sig.TenantID, &sig.SDRID, &sig.CreatedAt)
	if err == nil {
		sig.Entries = entries
		return sig, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return NormalizedSignal{}, err
	}
	return r.GetNormalizedByRawID(ctx, raw.ID)
}

const normalizedColumns = `id, raw_signal_id, tenant_id, sdr_id, entries, outcomes, reconciled_at, created_at`

func scanNormalized(row pgx.Row) (NormalizedSignal, error) {
	var sig NormalizedSignal
	var entries []byte
	var outcomes []byte
	err := row.Scan(&sig.ID, &sig.RawSignalID, &sig.TenantID, &sig.SDRID, &entries, &outcomes, &sig.ReconciledAt, &sig.CreatedAt)
	if err != nil {
		return NormalizedSignal{}, err
	}
	if err := json.Unmarshal(entries, &sig.Entries); err != nil {
		return NormalizedSignal{}, err
	}
	if outcomes != nil {
		if err := json.Unmarshal(outcomes, &sig.Outcomes); err != nil {
			return NormalizedSignal{}, err
		}
	}
	return sig, nil
}

func (r *Repository) GetNormalized(ctx context.Context, id uuid.UUID) (NormalizedSignal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+normalizedColumns+`
		FROM normalized_interaction_signals
		WHERE id = $1`,
		id,
	)
	sig, err := scanNormalized(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return NormalizedSignal{}, ErrNormalizedNotFound
	}
	return sig, err
}

func (r *Repository) GetNormalizedByRawID(ctx context.Context, rawID uuid.UUID) (NormalizedSignal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+normalizedColumns+`
		FROM normalized_interaction_signals
		WHERE raw_signal_id = $1`,
		rawID,
	)
	sig, err := scanNormalized(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return NormalizedSignal{}, ErrNormalizedNotFound
	}
	return sig, err
}

// RecordOutcomes persists the per-entry reconcile results alongside the
// normalized signal for inspection.
func (r *Repository) RecordOutcomes(ctx context.Context, id uuid.UUID, outcomes []ReconcileOutcome) error {
	payload, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE normalized_interaction_signals
		SET outcomes = $2, reconciled_at = now()
		WHERE id = $1`,
		id, payload,
	)
	return err
}
