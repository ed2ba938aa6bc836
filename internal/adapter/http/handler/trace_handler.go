package handler

import (
	"vinefi-traceability/internal/adapter/http/dto"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"
	"vinefi-traceability/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceHandler handles the public QR traceability lookup. No session is
// required; the route sits behind a per-IP rate limit instead.
type TraceHandler struct {
	statusSvc ports.StatusService
}

// NewTraceHandler creates a new TraceHandler.
func NewTraceHandler(statusSvc ports.StatusService) *TraceHandler {
	return &TraceHandler{statusSvc: statusSvc}
}

// TraceGet handles GET /api/v1/trace?qr_code=...|qr_hash=...|bottle_id=....
func (h *TraceHandler) TraceGet(c *gin.Context) {
	var req dto.TraceRequest
	if raw := c.Query("qr_code"); raw != "" {
		req.QRCode = &raw
	}
	if raw := c.Query("qr_hash"); raw != "" {
		req.QRHash = &raw
	}
	if raw := c.Query("bottle_id"); raw != "" {
		req.BottleID = &raw
	}
	h.trace(c, req)
}

// TracePost handles POST /api/v1/trace with the same selectors in the body.
func (h *TraceHandler) TracePost(c *gin.Context) {
	var req dto.TraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)
	h.trace(c, req)
}

func (h *TraceHandler) trace(c *gin.Context, req dto.TraceRequest) {
	var bottleID *uuid.UUID
	if req.BottleID != nil {
		id, err := uuid.Parse(*req.BottleID)
		if err != nil {
			response.Error(c, apperror.Validation("bottle_id must be a UUID"))
			return
		}
		bottleID = &id
	}

	trace, err := h.statusSvc.Traceability(c.Request.Context(), req.QRCode, req.QRHash, bottleID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, trace)
}
