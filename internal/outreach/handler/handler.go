// Package handler exposes channel outreach records over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/internal/outreach/service"
	"outreach_backend/platform/httpkit"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/next-statuses", h.NextStatuses)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/sends", h.ScheduleSend)
	rg.DELETE("/:id/sends", h.CancelPendingSends)
}

type createRecordRequest struct {
	SDRID      uuid.UUID  `json:"sdrId" binding:"required"`
	ProspectID uuid.UUID  `json:"prospectId" binding:"required"`
	CampaignID *uuid.UUID `json:"campaignId"`
	Channel    string     `json:"channel" binding:"required"`
	Approved   bool       `json:"approved"`
	Subject    *string    `json:"subject"`
	Body       *string    `json:"body"`
}

func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}

	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	rec, err := h.svc.CreateRecord(c.Request.Context(), tenantID, service.CreateRecordInput{
		SDRID:      req.SDRID,
		ProspectID: req.ProspectID,
		CampaignID: req.CampaignID,
		Channel:    domain.Channel(req.Channel),
		Approved:   req.Approved,
		Subject:    req.Subject,
		Body:       req.Body,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, rec)
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

	rec, err := h.svc.GetRecord(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rec)
}

func (h *Handler) NextStatuses(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	statuses, err := h.svc.NextStatuses(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"next": statuses})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus applies a manual transition, the same primitive the
// reconciler uses. A disallowed target returns 409 with both statuses so
// the client can explain the rejection.
func (h *Handler) UpdateStatus(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.ApplyTransition(c.Request.Context(), tenantID, id, domain.OutreachStatus(req.Status), nil)
	if httpkit.HandleError(c, err) {
		return
	}

	switch result.Outcome {
	case service.OutcomeInvalidTransition:
		httpkit.JSON(c, http.StatusConflict, gin.H{
			"outcome": result.Outcome,
			"from":    result.From,
			"to":      result.To,
			"reason":  result.Reason,
		})
	default:
		httpkit.OK(c, gin.H{"outcome": result.Outcome, "from": result.From, "to": result.To})
	}
}

func (h *Handler) History(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	changes, err := h.svc.ListStatusChanges(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"history": changes})
}

type scheduleSendRequest struct {
	ToEmail string    `json:"toEmail" binding:"required,email"`
	Subject string    `json:"subject" binding:"required"`
	Body    string    `json:"body" binding:"required"`
	RunAt   time.Time `json:"runAt" binding:"required"`
}

func (h *Handler) ScheduleSend(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req scheduleSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	send, err := h.svc.ScheduleSend(c.Request.Context(), tenantID, service.ScheduleSendInput{
		RecordID: id,
		ToEmail:  req.ToEmail,
		Subject:  req.Subject,
		Body:     req.Body,
		RunAt:    req.RunAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, send)
}

func (h *Handler) CancelPendingSends(c *gin.Context) {
	tenantID, ok := httpkit.TenantID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	// Ownership check before touching sends.
	if _, err := h.svc.GetRecord(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}

	cancelled, err := h.svc.CancelPendingSends(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"cancelled": cancelled})
}
