// Package repository persists prospects and their derived overall status.
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/outreach/domain"
)

var ErrNotFound = errors.New("prospect not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Prospect struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	SDRID         uuid.UUID
	CampaignID    *uuid.UUID
	FullName      string
	Email         *string
	Phone         *string
	Company       *string
	Title         *string
	LinkedInURL   *string
	OverallStatus domain.OverallStatus
	HiddenUntil   *time.Time
	HiddenReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateProspectParams struct {
	TenantID    uuid.UUID
	SDRID       uuid.UUID
	CampaignID  *uuid.UUID
	FullName    string
	Email       *string
	Phone       *string
	Company     *string
	Title       *string
	LinkedInURL *string
}

const prospectColumns = `id, tenant_id, sdr_id, campaign_id, full_name, email, phone, company, title, linkedin_url, overall_status, hidden_until, hidden_reason, created_at, updated_at`

func scanProspect(row pgx.Row) (Prospect, error) {
	var p Prospect
	var overall string
	err := row.Scan(&p.ID, &p.TenantID, &p.SDRID, &p.CampaignID, &p.FullName, &p.Email, &p.Phone,
		&p.Company, &p.Title, &p.LinkedInURL, &overall, &p.HiddenUntil, &p.HiddenReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Prospect{}, err
	}
	p.OverallStatus = domain.OverallStatus(overall)
	return p, nil
}

func (r *Repository) Create(ctx context.Context, params CreateProspectParams) (Prospect, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO prospects (tenant_id, sdr_id, campaign_id, full_name, email, phone, company, title, linkedin_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+prospectColumns,
		params.TenantID, params.SDRID, params.CampaignID, params.FullName, params.Email,
		params.Phone, params.Company, params.Title, params.LinkedInURL,
	)
	return scanProspect(row)
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Prospect, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	p, err := scanProspect(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Prospect{}, ErrNotFound
	}
	return p, err
}

// FindByEmail resolves a prospect by email within one SDR's book. Signal
// reconciliation keys on this lookup, so the match is exact and
// case-insensitive.
func (r *Repository) FindByEmail(ctx context.Context, tenantID, sdrID uuid.UUID, email string) (Prospect, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE tenant_id = $1 AND sdr_id = $2 AND lower(email) = lower($3)`,
		tenantID, sdrID, email,
	)
	p, err := scanProspect(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Prospect{}, ErrNotFound
	}
	return p, err
}

type ListFilter struct {
	SDRID         *uuid.UUID
	CampaignID    *uuid.UUID
	OverallStatus *domain.OverallStatus
	IncludeHidden bool
	Limit         int
	Offset        int
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Prospect, error) {
	limit := filter.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + prospectColumns + `
		FROM prospects
		WHERE tenant_id = $1`
	args := []any{tenantID}

	if filter.SDRID != nil {
		args = append(args, *filter.SDRID)
		query += ` AND sdr_id = $` + strconv.Itoa(len(args))
	}
	if filter.CampaignID != nil {
		args = append(args, *filter.CampaignID)
		query += ` AND campaign_id = $` + strconv.Itoa(len(args))
	}
	if filter.OverallStatus != nil {
		args = append(args, string(*filter.OverallStatus))
		query += ` AND overall_status = $` + strconv.Itoa(len(args))
	}
	if !filter.IncludeHidden {
		query += ` AND (hidden_until IS NULL OR hidden_until <= now())`
	}

	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prospects := make([]Prospect, 0)
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

// UpdateOverallStatus writes the derived rollup. Callers only invoke this
// when the value actually changed.
func (r *Repository) UpdateOverallStatus(ctx context.Context, id uuid.UUID, status domain.OverallStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE prospects
		SET overall_status = $2, updated_at = now()
		WHERE id = $1`,
		id, string(status),
	)
	return err
}

// Snooze hides a prospect from working lists until the given time.
func (r *Repository) Snooze(ctx context.Context, tenantID, id uuid.UUID, until time.Time, reason *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prospects
		SET hidden_until = $3, hidden_reason = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, until, reason,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Unsnooze(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prospects
		SET hidden_until = NULL, hidden_reason = NULL, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
