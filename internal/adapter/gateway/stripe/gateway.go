// Package stripe backs gateway top-ups with Stripe PaymentIntents.
package stripe

import (
	"context"
	"fmt"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

type paymentIntents interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Gateway implements ports.PaymentGateway.
type Gateway struct {
	intents paymentIntents
}

// New builds a gateway on a dedicated client; the package-level stripe.Key
// is left untouched.
func New(secretKey string) *Gateway {
	api := client.New(secretKey, nil)
	return &Gateway{intents: api.PaymentIntents}
}

func (g *Gateway) CreateCheckout(ctx context.Context, req ports.CheckoutRequest) (*domain.Checkout, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.FiatAmount),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String("CUTcoin top-up " + req.Reference),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Reference)
	params.AddMetadata("reference", req.Reference)
	params.AddMetadata("user_id", req.UserID.String())

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &domain.Checkout{ExternalRef: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *Gateway) Status(ctx context.Context, externalRef string) (domain.GatewayStatus, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(externalRef, params)
	if err != nil {
		return "", fmt.Errorf("get payment intent: %w", err)
	}
	return mapStatus(pi.Status), nil
}

func mapStatus(s stripe.PaymentIntentStatus) domain.GatewayStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return domain.GatewayStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return domain.GatewayStatusFailed
	default:
		return domain.GatewayStatusPending
	}
}
