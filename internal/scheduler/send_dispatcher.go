package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	outreachrepo "outreach_backend/internal/outreach/repository"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// SendDispatcher periodically claims due scheduled sends and enqueues a
// delivery task for each. Claiming flips the row to 'sending', so a
// cancel arriving after this point is too late, matching the guarantee
// that only not-yet-dispatched sends can be cancelled.
type SendDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     *outreachrepo.Repository
	interval time.Duration
	log      *logger.Logger
}

func NewSendDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, interval time.Duration, log *logger.Logger) (*SendDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &SendDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     outreachrepo.New(pool),
		interval: interval,
		log:      log,
	}, nil
}

func (d *SendDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *SendDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sends, err := d.repo.ClaimDueSends(ctx, time.Now(), 50)
		if err != nil {
			d.log.Warn("send claim failed", "error", err)
			continue
		}

		for _, send := range sends {
			task, err := NewOutreachSendDueTask(OutreachSendDuePayload{
				SendID:   send.ID.String(),
				TenantID: send.TenantID.String(),
			})
			if err != nil {
				_ = d.repo.RetrySend(ctx, send.ID, err.Error())
				continue
			}

			if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
				d.log.Warn("send enqueue failed", "send_id", send.ID, "error", err)
				_ = d.repo.RetrySend(ctx, send.ID, err.Error())
			}
		}
	}
}
