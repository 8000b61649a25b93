package handler

import (
	"cutcoin-wallet/internal/adapter/http/dto"
	"cutcoin-wallet/internal/adapter/http/middleware"
	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"
	"cutcoin-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles the student-facing wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// subject returns the authenticated caller or writes AUTH_001.
func subject(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes and sanitizes the JSON body, writing PAY_002 on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetBalance(c.Request.Context(), userID, domain.OwnerStudent)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}
	listHistory(c, h.walletSvc, historyParams(c, userID, domain.OwnerStudent))
}

func listHistory(c *gin.Context, svc ports.WalletService, params ports.HistoryParams) {
	txns, total, err := svc.ListHistory(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}
	response.Page(c, items, total, params.Page, params.PageSize)
}

// InitiateTransfer handles POST /api/v1/transfers.
func (h *WalletHandler) InitiateTransfer(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !bind(c, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	quote, err := h.walletSvc.InitiateTransfer(c.Request.Context(), ports.TransferRequest{
		SenderID:         userID,
		RecipientAddress: req.RecipientAddress,
		Amount:           amount,
		Description:      req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toQuoteResponse(quote))
}

// ConfirmTransfer handles POST /api/v1/transfers/confirm.
func (h *WalletHandler) ConfirmTransfer(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	var req dto.ConfirmRequest
	if !bind(c, &req) {
		return
	}

	txn, err := h.walletSvc.ConfirmTransfer(c.Request.Context(), ports.ConfirmRequest{
		UserID:    userID,
		Reference: req.Reference,
		Code:      req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTransactionResponse(txn))
}

// InitiateWithdrawal handles POST /api/v1/withdrawals.
func (h *WalletHandler) InitiateWithdrawal(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	req, amount, ok := bindCash(c)
	if !ok {
		return
	}

	quote, err := h.walletSvc.InitiateWithdrawal(c.Request.Context(), ports.MerchantCashRequest{
		UserID:       userID,
		MerchantCode: req.MerchantCode,
		Amount:       amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toQuoteResponse(quote))
}

// ConfirmWithdrawal handles POST /api/v1/withdrawals/confirm. The funds are
// held until the merchant hands out the cash.
func (h *WalletHandler) ConfirmWithdrawal(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	var req dto.ConfirmRequest
	if !bind(c, &req) {
		return
	}

	mt, err := h.walletSvc.ConfirmWithdrawal(c.Request.Context(), ports.ConfirmRequest{
		UserID:    userID,
		Reference: req.Reference,
		Code:      req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toMerchantTxResponse(mt))
}

// InitiateDeposit handles POST /api/v1/deposits.
func (h *WalletHandler) InitiateDeposit(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	req, amount, ok := bindCash(c)
	if !ok {
		return
	}

	mt, err := h.walletSvc.InitiateMerchantDeposit(c.Request.Context(), ports.MerchantCashRequest{
		UserID:       userID,
		MerchantCode: req.MerchantCode,
		Amount:       amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toMerchantTxResponse(mt))
}

func bindCash(c *gin.Context) (dto.MerchantCashRequest, int64, bool) {
	var req dto.MerchantCashRequest
	if !bind(c, &req) {
		return req, 0, false
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return req, 0, false
	}
	return req, amount, true
}

// ListPending handles GET /api/v1/merchant-transactions/pending.
func (h *WalletHandler) ListPending(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	items, err := h.walletSvc.ListPendingForStudent(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toMerchantTxList(items))
}

// CancelMerchantTransaction handles
// POST /api/v1/merchant-transactions/:reference/cancel.
func (h *WalletHandler) CancelMerchantTransaction(c *gin.Context) {
	userID, ok := subject(c)
	if !ok {
		return
	}

	mt, err := h.walletSvc.CancelMerchantTransaction(c.Request.Context(), userID, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toMerchantTxResponse(mt))
}
