// Package campaigns manages the outreach campaigns prospects are
// enrolled in.
package campaigns

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("campaign not found")

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusArchived Status = "ARCHIVED"
)

type Campaign struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	SDRID     uuid.UUID
	Name      string
	Channel   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateCampaignParams struct {
	TenantID uuid.UUID
	SDRID    uuid.UUID
	Name     string
	Channel  string
}

func (r *Repository) Create(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	var camp Campaign
	var status string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (tenant_id, sdr_id, name, channel)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, sdr_id, name, channel, status, created_at, updated_at`,
		params.TenantID, params.SDRID, params.Name, params.Channel,
	).Scan(&camp.ID, &camp.TenantID, &camp.SDRID, &camp.Name, &camp.Channel, &status, &camp.CreatedAt, &camp.UpdatedAt)
	if err != nil {
		return Campaign{}, err
	}
	camp.Status = Status(status)
	return camp, nil
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Campaign, error) {
	var camp Campaign
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, sdr_id, name, channel, status, created_at, updated_at
		FROM campaigns
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&camp.ID, &camp.TenantID, &camp.SDRID, &camp.Name, &camp.Channel, &status, &camp.CreatedAt, &camp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, err
	}
	camp.Status = Status(status)
	return camp, nil
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]Campaign, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, sdr_id, name, channel, status, created_at, updated_at
		FROM campaigns
		WHERE tenant_id = $1
		ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		var camp Campaign
		var status string
		if err := rows.Scan(&camp.ID, &camp.TenantID, &camp.SDRID, &camp.Name, &camp.Channel, &status, &camp.CreatedAt, &camp.UpdatedAt); err != nil {
			return nil, err
		}
		camp.Status = Status(status)
		campaigns = append(campaigns, camp)
	}
	return campaigns, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats summarizes a campaign's prospects by rollup status.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

func (r *Repository) Stats(ctx context.Context, tenantID, id uuid.UUID) (Stats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT overall_status, count(*)
		FROM prospects
		WHERE tenant_id = $1 AND campaign_id = $2
		GROUP BY overall_status`,
		tenantID, id,
	)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	stats := Stats{ByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	return stats, rows.Err()
}
