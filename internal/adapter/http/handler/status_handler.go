package handler

import (
	"vinefi-traceability/internal/adapter/http/dto"
	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"
	"vinefi-traceability/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatusHandler handles lot and bottle status transition endpoints.
type StatusHandler struct {
	statusSvc ports.StatusService
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(statusSvc ports.StatusService) *StatusHandler {
	return &StatusHandler{statusSvc: statusSvc}
}

// UpdateLotStatus handles POST /api/v1/lots/status.
func (h *StatusHandler) UpdateLotStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.LotStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	update := ports.LotStatusUpdateRequest{
		UserID:       userID,
		HandlerName:  req.HandlerName,
		TokenAddress: req.TokenAddress,
		Status:       domain.LotStatus(req.Status),
		Location:     req.Location,
		Notes:        req.Notes,
		Metadata:     req.Metadata,
	}
	if req.TokenID != nil {
		id, err := uuid.Parse(*req.TokenID)
		if err != nil {
			response.Error(c, apperror.Validation("token_id must be a UUID"))
			return
		}
		update.TokenID = &id
	}
	if req.ExpectedPreviousStatus != nil {
		prev := domain.LotStatus(*req.ExpectedPreviousStatus)
		update.ExpectedPreviousStatus = &prev
	}
	if req.Coordinates != nil {
		update.Coordinates = &domain.GeoPoint{
			Latitude:  req.Coordinates.Latitude,
			Longitude: req.Coordinates.Longitude,
		}
	}

	event, err := h.statusSvc.UpdateLotStatus(c.Request.Context(), update)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, event)
}

// LotHistory handles GET /api/v1/lots/history. Public: history is the
// consumer-facing provenance record.
func (h *StatusHandler) LotHistory(c *gin.Context) {
	var tokenID *uuid.UUID
	var tokenAddress *string

	if raw := c.Query("token_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, apperror.Validation("token_id must be a UUID"))
			return
		}
		tokenID = &id
	}
	if raw := c.Query("token_address"); raw != "" {
		tokenAddress = &raw
	}

	history, err := h.statusSvc.LotHistory(c.Request.Context(), tokenID, tokenAddress)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"history": history, "count": len(history)})
}

// UpdateBottleStatus handles POST /api/v1/bottles/status. Consumer and
// verification scans pass the admin check inside the service; every caller
// still needs a session.
func (h *StatusHandler) UpdateBottleStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.BottleStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	bottleID, err := uuid.Parse(req.BottleID)
	if err != nil {
		response.Error(c, apperror.Validation("bottle_id must be a UUID"))
		return
	}

	update := ports.BottleStatusUpdateRequest{
		UserID:      userID,
		HandlerName: req.HandlerName,
		BottleID:    bottleID,
		Status:      domain.BottleStatus(req.Status),
		Location:    req.Location,
		Notes:       req.Notes,
		Metadata:    req.Metadata,
	}
	if req.ScanType != nil {
		st := domain.ScanType(*req.ScanType)
		update.ScanType = &st
	}
	if req.Coordinates != nil {
		update.Coordinates = &domain.GeoPoint{
			Latitude:  req.Coordinates.Latitude,
			Longitude: req.Coordinates.Longitude,
		}
	}

	event, err := h.statusSvc.UpdateBottleStatus(c.Request.Context(), update)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, event)
}
