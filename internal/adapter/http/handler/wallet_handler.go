package handler

import (
	"vinefi-traceability/internal/adapter/http/dto"
	"vinefi-traceability/internal/adapter/http/middleware"
	"vinefi-traceability/internal/core/ports"
	"vinefi-traceability/pkg/apperror"
	"vinefi-traceability/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles custodial wallet endpoints.
type WalletHandler struct {
	walletSvc  ports.WalletService
	paymentSvc ports.PaymentService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService, paymentSvc ports.PaymentService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, paymentSvc: paymentSvc}
}

// currentUserID pulls the authenticated user out of the request context.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	uid, ok := v.(uuid.UUID)
	return uid, ok
}

// Provision handles POST /api/v1/wallets/provision. Idempotent: the first
// call creates the wallet, every later call returns the same one.
func (h *WalletHandler) Provision(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	// Creation (and its audit entry) happens inside the service; a repeat
	// call is a pure read.
	wallet, _, err := h.walletSvc.GetOrCreate(c.Request.Context(), userID, ports.WalletOptions{Fund: true})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToWalletResponse(wallet))
}

// SignPayment handles POST /api/v1/wallets/sign-payment.
func (h *WalletHandler) SignPayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.SignPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.paymentSvc.SignPayment(c.Request.Context(), ports.SignPaymentRequest{
		UserID:      userID,
		Destination: req.Destination,
		Amount:      req.Amount,
		AssetCode:   req.AssetCode,
		AssetIssuer: req.AssetIssuer,
		Memo:        req.Memo,
		Submit:      req.Submit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SignPaymentResponse{
		Submitted:       result.Submitted,
		TransactionHash: result.Hash,
		Ledger:          result.Ledger,
		SignedXDR:       result.SignedXDR,
	})
}
