package dto

// Amounts travel as decimal strings ("1200.50") and are converted to minor
// units with money.Parse after binding.

// TransferRequest is the request body for quoting a peer transfer.
type TransferRequest struct {
	RecipientAddress string `json:"recipient_address" binding:"required,max=64,safe_id"`
	Amount           string `json:"amount" binding:"required,cut_amount"`
	Description      string `json:"description" binding:"max=140"`
}

// ConfirmRequest completes a quoted transfer or withdrawal.
type ConfirmRequest struct {
	Reference string `json:"reference" binding:"required,max=64,safe_id"`
	Code      string `json:"code" binding:"required,len=6,numeric"`
}

// MerchantCashRequest is the body for a cash deposit or withdrawal at a
// merchant.
type MerchantCashRequest struct {
	MerchantCode string `json:"merchant_code" binding:"required,max=32,safe_id"`
	Amount       string `json:"amount" binding:"required,cut_amount"`
}

// TopupRequest is the request body for a gateway top-up.
type TopupRequest struct {
	Amount string `json:"amount" binding:"required,cut_amount"`
}

// MerchantConfirmRequest names the kind of transaction being confirmed.
type MerchantConfirmRequest struct {
	Type string `json:"type" binding:"required,oneof=deposit withdrawal"`
}

// WalletResponse is the response for a balance query.
type WalletResponse struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	OwnerType string `json:"owner_type"`
	Balance   string `json:"balance"`
	Active    bool   `json:"active"`
}

// QuoteResponse is returned by the first phase of a transfer or withdrawal.
type QuoteResponse struct {
	Reference        string `json:"reference"`
	Kind             string `json:"kind"`
	Amount           string `json:"amount"`
	Fee              string `json:"fee"`
	Total            string `json:"total"`
	RecipientAddress string `json:"recipient_address,omitempty"`
	MerchantCode     string `json:"merchant_code,omitempty"`
	ExpiresAt        string `json:"expires_at"`
}

// TransactionResponse is one ledger row.
type TransactionResponse struct {
	ID          string  `json:"id"`
	Reference   string  `json:"reference"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Amount      string  `json:"amount"`
	Fee         string  `json:"fee"`
	SenderID    *string `json:"sender_id,omitempty"`
	ReceiverID  *string `json:"receiver_id,omitempty"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// MerchantTxResponse is a merchant-mediated deposit or withdrawal.
type MerchantTxResponse struct {
	ID                string  `json:"id"`
	Reference         string  `json:"reference"`
	Type              string  `json:"type"`
	Status            string  `json:"status"`
	Amount            string  `json:"amount"`
	Fee               string  `json:"fee"`
	StudentID         string  `json:"student_id"`
	MerchantID        string  `json:"merchant_id"`
	StudentConfirmed  bool    `json:"student_confirmed"`
	MerchantConfirmed bool    `json:"merchant_confirmed"`
	ResolvedBy        *string `json:"resolved_by,omitempty"`
	CreatedAt         string  `json:"created_at"`
	CompletedAt       *string `json:"completed_at,omitempty"`
	CancelledAt       *string `json:"cancelled_at,omitempty"`
}

// PaymentResponse describes a gateway top-up.
type PaymentResponse struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	FiatAmount   int64  `json:"fiat_amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret,omitempty"`
	CreatedAt    string `json:"created_at"`
}
