package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_backend/internal/addresses/service"
	"marketplace_backend/internal/addresses/transport"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/validator"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns the caller's active addresses.
// GET /api/v1/addresses
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.List(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create stores a new address for the caller.
// POST /api/v1/addresses
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.Create(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Delete deactivates an address.
// DELETE /api/v1/addresses/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if httpkit.HandleError(c, h.svc.Deactivate(c.Request.Context(), identity.UserID(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}
