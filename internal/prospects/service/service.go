// Package service provides prospect management and the overall-status
// aggregator.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainevents "outreach_backend/internal/events"
	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/prospects/repository"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"
)

// ChannelStatusReader is the narrow view of the outreach store the
// aggregator needs. Implemented by the outreach repository.
type ChannelStatusReader interface {
	ChannelStatuses(ctx context.Context, tenantID, prospectID uuid.UUID) ([]domain.OutreachStatus, error)
}

// Store is the prospect repository surface the service drives.
// Implemented by *repository.Repository.
type Store interface {
	Create(ctx context.Context, params repository.CreateProspectParams) (repository.Prospect, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (repository.Prospect, error)
	FindByEmail(ctx context.Context, tenantID, sdrID uuid.UUID, email string) (repository.Prospect, error)
	List(ctx context.Context, tenantID uuid.UUID, filter repository.ListFilter) ([]repository.Prospect, error)
	UpdateOverallStatus(ctx context.Context, id uuid.UUID, status domain.OverallStatus) error
	Snooze(ctx context.Context, tenantID, id uuid.UUID, until time.Time, reason *string) error
	Unsnooze(ctx context.Context, tenantID, id uuid.UUID) error
}

type Service struct {
	repo     Store
	channels ChannelStatusReader
	log      *logger.Logger
}

func New(repo Store, channels ChannelStatusReader, log *logger.Logger) *Service {
	return &Service{repo: repo, channels: channels, log: log}
}

type CreateProspectInput struct {
	SDRID       uuid.UUID
	CampaignID  *uuid.UUID
	FullName    string
	Email       *string
	Phone       *string
	Company     *string
	Title       *string
	LinkedInURL *string
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateProspectInput) (repository.Prospect, error) {
	if in.FullName == "" {
		return repository.Prospect{}, apperr.Validation("full name is required")
	}
	if in.Email == nil && in.LinkedInURL == nil {
		return repository.Prospect{}, apperr.Validation("prospect needs an email or a linkedin url")
	}

	if in.Phone != nil && *in.Phone != "" {
		normalized := phone.NormalizeE164(*in.Phone)
		in.Phone = &normalized
	}

	p, err := s.repo.Create(ctx, repository.CreateProspectParams{
		TenantID:    tenantID,
		SDRID:       in.SDRID,
		CampaignID:  in.CampaignID,
		FullName:    in.FullName,
		Email:       in.Email,
		Phone:       in.Phone,
		Company:     in.Company,
		Title:       in.Title,
		LinkedInURL: in.LinkedInURL,
	})
	if err != nil {
		return repository.Prospect{}, fmt.Errorf("create prospect: %w", err)
	}
	return p, nil
}

// ImportResult summarizes a batch import. Rows that fail validation are
// reported and skipped; they never abort the batch.
type ImportResult struct {
	Created int               `json:"created"`
	Skipped int               `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (s *Service) Import(ctx context.Context, tenantID uuid.UUID, rows []CreateProspectInput) (ImportResult, error) {
	result := ImportResult{Errors: map[string]string{}}
	for i, row := range rows {
		if _, err := s.Create(ctx, tenantID, row); err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				result.Skipped++
				result.Errors[fmt.Sprintf("row %d", i)] = appErr.Message
				continue
			}
			return result, err
		}
		result.Created++
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (repository.Prospect, error) {
	p, err := s.repo.GetByID(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Prospect{}, apperr.NotFound("prospect not found")
	}
	return p, err
}

func (s *Service) FindByEmail(ctx context.Context, tenantID, sdrID uuid.UUID, email string) (repository.Prospect, error) {
	return s.repo.FindByEmail(ctx, tenantID, sdrID, email)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, filter repository.ListFilter) ([]repository.Prospect, error) {
	return s.repo.List(ctx, tenantID, filter)
}

func (s *Service) Snooze(ctx context.Context, tenantID, id uuid.UUID, until time.Time, reason *string) error {
	if until.Before(time.Now()) {
		return apperr.Validation("snooze time must be in the future")
	}
	err := s.repo.Snooze(ctx, tenantID, id, until, reason)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("prospect not found")
	}
	return err
}

func (s *Service) Unsnooze(ctx context.Context, tenantID, id uuid.UUID) error {
	err := s.repo.Unsnooze(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("prospect not found")
	}
	return err
}

// RecomputeOverall re-derives the prospect's overall status from its
// channel statuses and persists it only when the value changed. Safe to
// call any number of times.
func (s *Service) RecomputeOverall(ctx context.Context, tenantID, prospectID uuid.UUID) (domain.OverallStatus, error) {
	p, err := s.Get(ctx, tenantID, prospectID)
	if err != nil {
		return "", err
	}

	statuses, err := s.channels.ChannelStatuses(ctx, tenantID, prospectID)
	if err != nil {
		return "", fmt.Errorf("load channel statuses: %w", err)
	}

	derived := domain.DeriveOverall(statuses)
	if derived == p.OverallStatus {
		return derived, nil
	}

	if err := s.repo.UpdateOverallStatus(ctx, prospectID, derived); err != nil {
		return "", fmt.Errorf("update overall status: %w", err)
	}
	s.log.Info("overall status recomputed",
		"prospect_id", prospectID, "from", p.OverallStatus, "to", derived)
	return derived, nil
}

// RegisterHandlers subscribes the aggregator to the bus so the rollup is
// refreshed after every applied transition, whichever path applied it.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(domainevents.EventProspectStatusChanged, events.HandlerFunc(s.handleStatusChanged))
}

func (s *Service) handleStatusChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(domainevents.ProspectStatusChanged)
	if !ok {
		return nil
	}
	if _, err := s.RecomputeOverall(ctx, changed.TenantID, changed.ProspectID); err != nil {
		return fmt.Errorf("recompute overall for %s: %w", changed.ProspectID, err)
	}
	return nil
}
