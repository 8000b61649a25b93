package handler

import (
	"strconv"
	"time"

	"cutcoin-wallet/internal/adapter/http/dto"
	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"
	"cutcoin-wallet/pkg/apperror"
	"cutcoin-wallet/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// parseAmount converts a validated decimal string to minor units.
func parseAmount(s string) (int64, error) {
	minor, err := money.Parse(s)
	if err != nil || minor <= 0 {
		return 0, apperror.ErrInvalidAmount()
	}
	return minor, nil
}

// historyParams reads page, page_size, status and type from the query.
func historyParams(c *gin.Context, ownerID uuid.UUID, ownerType domain.OwnerType) ports.HistoryParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	params := ports.HistoryParams{
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Page:      page,
		PageSize:  pageSize,
	}
	if s := c.Query("status"); s != "" {
		status := domain.TransactionStatus(s)
		params.Status = &status
	}
	if t := c.Query("type"); t != "" {
		txType := domain.TransactionType(t)
		params.Type = &txType
	}
	return params
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:        w.ID.String(),
		Address:   w.Address,
		OwnerType: string(w.OwnerType),
		Balance:   money.Format(w.Balance),
		Active:    w.Active,
	}
}

func toQuoteResponse(q *domain.Quote) dto.QuoteResponse {
	return dto.QuoteResponse{
		Reference:        q.Reference,
		Kind:             string(q.Kind),
		Amount:           money.Format(q.Amount),
		Fee:              money.Format(q.Fee),
		Total:            money.Format(q.Total()),
		RecipientAddress: q.RecipientAddress,
		MerchantCode:     q.MerchantCode,
		ExpiresAt:        formatTime(q.ExpiresAt),
	}
}

func toTransactionResponse(t *domain.LedgerTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:          t.ID.String(),
		Reference:   t.Reference,
		Type:        string(t.Type),
		Status:      string(t.Status),
		Amount:      money.Format(t.Amount),
		Fee:         money.Format(t.Fee),
		SenderID:    uuidPtrString(t.SenderID),
		ReceiverID:  uuidPtrString(t.ReceiverID),
		Description: t.Description,
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

func toMerchantTxResponse(m *domain.MerchantTransaction) dto.MerchantTxResponse {
	resp := dto.MerchantTxResponse{
		ID:                m.ID.String(),
		Reference:         m.Reference,
		Type:              string(m.Type),
		Status:            string(m.Status),
		Amount:            money.Format(m.Amount),
		Fee:               money.Format(m.Fee),
		StudentID:         m.SubjectID.String(),
		MerchantID:        m.MerchantID.String(),
		StudentConfirmed:  m.StudentConfirmed(),
		MerchantConfirmed: m.MerchantConfirmed(),
		CreatedAt:         formatTime(m.CreatedAt),
		CompletedAt:       formatTimePtr(m.CompletedAt),
		CancelledAt:       formatTimePtr(m.CancelledAt),
	}
	if m.ResolvedBy != nil {
		actor := string(*m.ResolvedBy)
		resp.ResolvedBy = &actor
	}
	return resp
}

func toMerchantTxList(items []domain.MerchantTransaction) []dto.MerchantTxResponse {
	out := make([]dto.MerchantTxResponse, 0, len(items))
	for i := range items {
		out = append(out, toMerchantTxResponse(&items[i]))
	}
	return out
}

func toPaymentResponse(p *domain.Payment, clientSecret string) dto.PaymentResponse {
	return dto.PaymentResponse{
		Reference:    p.Reference,
		Status:       string(p.Status),
		Amount:       money.Format(p.Amount),
		FiatAmount:   p.FiatAmount,
		Currency:     p.Currency,
		ClientSecret: clientSecret,
		CreatedAt:    formatTime(p.CreatedAt),
	}
}
