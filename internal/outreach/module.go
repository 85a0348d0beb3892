// Package outreach wires the channel outreach status store into the
// HTTP server.
package outreach

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/outreach/handler"
	"outreach_backend/internal/outreach/service"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(svc *service.Service) *Module {
	return &Module{handler: handler.New(svc)}
}

func (m *Module) Name() string { return "outreach" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/outreach/records"))
}
