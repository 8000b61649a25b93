package handler

import (
	"cutcoin-wallet/internal/adapter/http/dto"
	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles the merchant point-of-sale endpoints.
type MerchantHandler struct {
	walletSvc ports.WalletService
}

// NewMerchantHandler creates a new merchant handler.
func NewMerchantHandler(walletSvc ports.WalletService) *MerchantHandler {
	return &MerchantHandler{walletSvc: walletSvc}
}

// GetWallet handles GET /api/v1/merchant/wallet.
func (h *MerchantHandler) GetWallet(c *gin.Context) {
	merchantID, ok := subject(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetBalance(c.Request.Context(), merchantID, domain.OwnerMerchant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// ListTransactions handles GET /api/v1/merchant/transactions.
func (h *MerchantHandler) ListTransactions(c *gin.Context) {
	merchantID, ok := subject(c)
	if !ok {
		return
	}
	listHistory(c, h.walletSvc, historyParams(c, merchantID, domain.OwnerMerchant))
}

// ListPending handles GET /api/v1/merchant/transactions/pending.
func (h *MerchantHandler) ListPending(c *gin.Context) {
	merchantID, ok := subject(c)
	if !ok {
		return
	}

	items, err := h.walletSvc.ListPendingForMerchant(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toMerchantTxList(items))
}

// Confirm handles POST /api/v1/merchant/transactions/:reference/confirm.
func (h *MerchantHandler) Confirm(c *gin.Context) {
	merchantID, ok := subject(c)
	if !ok {
		return
	}

	var req dto.MerchantConfirmRequest
	if !bind(c, &req) {
		return
	}

	mt, err := h.walletSvc.MerchantConfirm(c.Request.Context(), merchantID, c.Param("reference"), domain.MerchantTxType(req.Type))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toMerchantTxResponse(mt))
}

// Reject handles POST /api/v1/merchant/transactions/:reference/reject.
func (h *MerchantHandler) Reject(c *gin.Context) {
	merchantID, ok := subject(c)
	if !ok {
		return
	}

	mt, err := h.walletSvc.MerchantReject(c.Request.Context(), merchantID, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toMerchantTxResponse(mt))
}
