package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace_backend/internal/services/service"
	"marketplace_backend/internal/services/transport"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/validator"
)

// Handler handles HTTP requests for the service lifecycle.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new services handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GET /api/v1/services
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.ListMine(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GET /api/v1/services/:id
func (h *Handler) Get(c *gin.Context) {
	h.byID(c, h.svc.Get)
}

// GET /api/v1/services/:id/history
func (h *Handler) History(c *gin.Context) {
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.History(c.Request.Context(), identity.UserID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// POST /api/v1/services/:id/on-route
func (h *Handler) MarkOnRoute(c *gin.Context) {
	h.byID(c, h.svc.MarkOnRoute)
}

// POST /api/v1/services/:id/in-progress
func (h *Handler) MarkInProgress(c *gin.Context) {
	h.byID(c, h.svc.MarkInProgress)
}

// POST /api/v1/services/:id/complete
func (h *Handler) MarkCompleted(c *gin.Context) {
	h.byID(c, h.svc.MarkCompleted)
}

// POST /api/v1/services/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	h.byID(c, h.svc.Cancel)
}

// SubmitReview rates the provider of a completed service.
// POST /api/v1/services/:id/review
func (h *Handler) SubmitReview(c *gin.Context) {
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.SubmitReview(c.Request.Context(), identity.UserID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Rehire opens a new request for the same provider. The body is optional.
// POST /api/v1/services/:id/rehire
func (h *Handler) Rehire(c *gin.Context) {
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.RehireRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.Rehire(c.Request.Context(), identity.UserID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ClaimWarranty reopens a completed service inside the warranty window.
// POST /api/v1/services/:id/warranty
func (h *Handler) ClaimWarranty(c *gin.Context) {
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.WarrantyClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.ClaimWarranty(c.Request.Context(), identity.UserID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

type serviceAction func(ctx context.Context, userID, serviceID uuid.UUID) (transport.ServiceResponse, error)

func (h *Handler) byID(c *gin.Context, action serviceAction) {
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := action(c.Request.Context(), identity.UserID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
