package webhook

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/config"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
	log     *logger.Logger
}

func NewModule(ingestor SignalIngestor, tasks TaskEnqueuer, bus events.Bus, cfg config.WebhookConfig, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(ingestor, tasks, bus, log),
		cfg:     cfg,
		log:     log,
	}
}

func (m *Module) Name() string { return "webhook" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	email := ctx.Webhooks.Group("/email")
	email.Use(VerifySignature(m.cfg.GetWebhookSigningSecret(), m.log))
	email.GET("", m.handler.Challenge)
	email.POST("", m.handler.ReceiveDeltas)

	ctx.Protected.POST("/signals/batch", m.handler.SubmitBatchAnalytics)
}
