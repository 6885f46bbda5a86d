package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_backend/internal/proposals/service"
	"marketplace_backend/internal/proposals/transport"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/validator"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Submit places or replaces the caller's bid on a request.
// POST /api/v1/requests/:id/proposals
func (h *Handler) Submit(c *gin.Context) {
	requestID, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.SubmitProposalRequest
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
	result, err := h.svc.Submit(c.Request.Context(), identity.UserID(), requestID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ListForRequest lists the proposals of a request visible to the caller.
// GET /api/v1/requests/:id/proposals
func (h *Handler) ListForRequest(c *gin.Context) {
	requestID, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.ListForRequest(c.Request.Context(), identity.UserID(), requestID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Withdraw retracts a pending proposal.
// POST /api/v1/proposals/:id/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	proposalID, ok := httpkit.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	result, err := h.svc.Withdraw(c.Request.Context(), identity.UserID(), proposalID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMine lists the caller's proposals.
// GET /api/v1/provider/proposals
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
