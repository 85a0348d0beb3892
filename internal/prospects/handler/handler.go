// Package handler exposes prospect management over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/prospects/repository"
	"outreach_backend/internal/prospects/service"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/import", h.Import)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/overall-status", h.OverallStatus)
	rg.POST("/:id/recompute", h.Recompute)
	rg.POST("/:id/snooze", h.Snooze)
	rg.DELETE("/:id/snooze", h.Unsnooze)
}

type prospectRequest struct {
	SDRID       uuid.UUID  `json:"sdrId" validate:"required"`
	CampaignID  *uuid.UUID `json:"campaignId"`
	FullName    string     `json:"fullName" validate:"required,max=200"`
	Email       *string    `json:"email" validate:"omitempty,email"`
	Phone       *string    `json:"phone"`
	Company     *string    `json:"company"`
	Title       *string    `json:"title"`
	LinkedInURL *string    `json:"linkedinUrl" validate:"omitempty,url"`
}

func (r prospectRequest) toInput() service.CreateProspectInput {
	return service.CreateProspectInput{
		SDRID:       r.SDRID,
		CampaignID:  r.CampaignID,
		FullName:    r.FullName,
		Email:       r.Email,
		Phone:       r.Phone,
		Company:     r.Company,
		Title:       r.Title,
		LinkedInURL: r.LinkedInURL,
	}
}

func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}

	var req prospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	p, err := h.svc.Create(c.Request.Context(), tenantID, req.toInput())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, p)
}

type importRequest struct {
	Prospects []prospectRequest `json:"prospects" validate:"required,min=1,dive"`
}

func (h *Handler) Import(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	rows := make([]service.CreateProspectInput, 0, len(req.Prospects))
	for _, p := range req.Prospects {
		rows = append(rows, p.toInput())
	}

	result, err := h.svc.Import(c.Request.Context(), tenantID, rows)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) List(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}

	filter := repository.ListFilter{
		IncludeHidden: c.Query("includeHidden") == "true",
	}
	if raw := c.Query("sdrId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.SDRID = &id
	}
	if raw := c.Query("campaignId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		filter.CampaignID = &id
	}
	if raw := c.Query("overallStatus"); raw != "" {
		status := domain.OverallStatus(raw)
		filter.OverallStatus = &status
	}

	prospects, err := h.svc.List(c.Request.Context(), tenantID, filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"prospects": prospects})
}

func (h *Handler) GetByID(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	p, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, p)
}

func (h *Handler) OverallStatus(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	p, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"overallStatus": p.OverallStatus})
}

// Recompute forces a rollup refresh. Mostly an operational escape hatch;
// reconciliation keeps the value current on its own.
func (h *Handler) Recompute(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	overall, err := h.svc.RecomputeOverall(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"overallStatus": overall})
}

type snoozeRequest struct {
	Until  time.Time `json:"until" binding:"required"`
	Reason *string   `json:"reason"`
}

func (h *Handler) Snooze(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	if err := h.svc.Snooze(c.Request.Context(), tenantID, id, req.Until, req.Reason); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "snoozed"})
}

func (h *Handler) Unsnooze(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.Unsnooze(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "visible"})
}
