package handler

import (
	"cutcoin-wallet/internal/adapter/http/dto"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler handles gateway top-ups.
type PaymentHandler struct {
	walletSvc ports.WalletService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(walletSvc ports.WalletService) *PaymentHandler {
	return &PaymentHandler{walletSvc: walletSvc}
}

// InitiateTopup handles POST /api/v1/topups. The response carries the
// gateway client secret the app needs to collect the card payment.
func (h *PaymentHandler) InitiateTopup(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	var req dto.TopupRequest
	if !bind(c, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.walletSvc.InitiateTopup(c.Request.Context(), ports.TopupRequest{
		UserID: userID,
		Amount: amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toPaymentResponse(result.Payment, result.ClientSecret))
}

// CompleteTopup handles POST /api/v1/topups/:reference/complete. Safe to
// call repeatedly; a settled top-up is returned as is.
func (h *PaymentHandler) CompleteTopup(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	payment, err := h.walletSvc.CompleteTopup(c.Request.Context(), userID, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toPaymentResponse(payment, ""))
}
