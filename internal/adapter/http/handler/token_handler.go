package handler

import (
	"vinefi-traceability/internal/adapter/http/dto"
	"vinefi-traceability/internal/core/domain"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"
	"vinefi-traceability/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenHandler handles wine token lifecycle endpoints.
type TokenHandler struct {
	tokenSvc ports.WineTokenService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokenSvc ports.WineTokenService) *TokenHandler {
	return &TokenHandler{tokenSvc: tokenSvc}
}

// Create handles POST /api/v1/tokens.
func (h *TokenHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	create := ports.CreateTokenRequest{
		UserID: userID,
		Name:   req.Name,
		Symbol: req.Symbol,
		Metadata: domain.WineLotMetadata{
			LotID:       req.Metadata.LotID,
			WineryName:  req.Metadata.WineryName,
			Region:      req.Metadata.Region,
			Country:     req.Metadata.Country,
			Vintage:     req.Metadata.Vintage,
			Varietal:    req.Metadata.Varietal,
			BottleCount: req.Metadata.BottleCount,
			Description: req.Metadata.Description,
			TokenCode:   req.Metadata.TokenCode,
			Extra:       req.Metadata.Extra,
		},
	}
	if req.Decimal != nil {
		create.Decimal = *req.Decimal
	}

	token, err := h.tokenSvc.Create(c.Request.Context(), create)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToTokenResponse(token))
}

// Mint handles POST /api/v1/tokens/mint.
func (h *TokenHandler) Mint(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	hash, err := h.tokenSvc.Mint(c.Request.Context(), ports.MintRequest{
		UserID:           userID,
		TokenAddress:     req.TokenAddress,
		RecipientAddress: req.RecipientAddress,
		Amount:           req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TxHashResponse{TransactionHash: hash})
}

// Transfer handles POST /api/v1/tokens/transfer.
func (h *TokenHandler) Transfer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	hash, err := h.tokenSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		UserID:       userID,
		TokenAddress: req.TokenAddress,
		ToAddress:    req.ToAddress,
		Amount:       req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TxHashResponse{TransactionHash: hash})
}
