// Package prospects wires prospect management into the HTTP server.
package prospects

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/prospects/handler"
	"outreach_backend/internal/prospects/service"
	"outreach_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(svc *service.Service, val *validator.Validator) *Module {
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string { return "prospects" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/prospects"))
}
