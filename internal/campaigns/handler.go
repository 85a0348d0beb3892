package campaigns

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

type Module struct {
	repo *Repository
}

func NewModule(repo *Repository) *Module {
	return &Module{repo: repo}
}

func (m *Module) Name() string { return "campaigns" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	rg := ctx.Protected.Group("/campaigns")
	rg.GET("", m.list)
	rg.POST("", m.create)
	rg.GET("/:id", m.getByID)
	rg.GET("/:id/stats", m.stats)
	rg.PATCH("/:id/status", m.updateStatus)
}

type createCampaignRequest struct {
	SDRID   uuid.UUID `json:"sdrId" binding:"required"`
	Name    string    `json:"name" binding:"required"`
	Channel string    `json:"channel" binding:"required,oneof=EMAIL LINKEDIN"`
}

func (m *Module) create(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}

	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	camp, err := m.repo.Create(c.Request.Context(), CreateCampaignParams{
		TenantID: tenantID,
		SDRID:    req.SDRID,
		Name:     req.Name,
		Channel:  req.Channel,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, camp)
}

func (m *Module) list(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}

	campaigns, err := m.repo.List(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"campaigns": campaigns})
}

func (m *Module) getByID(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	camp, err := m.repo.GetByID(c.Request.Context(), tenantID, id)
	if errors.Is(err, ErrNotFound) {
		err = apperr.NotFound("campaign not found")
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, camp)
}

func (m *Module) stats(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if _, err := m.repo.GetByID(c.Request.Context(), tenantID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = apperr.NotFound("campaign not found")
		}
		httpkit.HandleError(c, err)
		return
	}

	stats, err := m.repo.Stats(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

type updateCampaignStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE PAUSED ARCHIVED"`
}

func (m *Module) updateStatus(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req updateCampaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	if err := m.repo.UpdateStatus(c.Request.Context(), tenantID, id, Status(req.Status)); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = apperr.NotFound("campaign not found")
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"status": req.Status})
}
