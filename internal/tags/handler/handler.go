package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_backend/internal/tags/service"
	"marketplace_backend/internal/tags/transport"
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

// List returns the tag vocabulary.
// GET /api/v1/tags
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateLicense registers a license for the calling provider.
// POST /api/v1/provider/licenses
func (h *Handler) CreateLicense(c *gin.Context) {
	var req transport.CreateLicenseRequest
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
	result, err := h.svc.CreateLicense(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}
