package stripe

import (
	"context"
	"errors"
	"testing"

	"cutcoin-wallet/internal/core/domain"
	"cutcoin-wallet/internal/core/ports"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntents struct {
	created *stripe.PaymentIntentParams
	status  stripe.PaymentIntentStatus
	err     error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = params
	return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

func (f *fakeIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ID: id, Status: f.status}, nil
}

func TestCreateCheckout(t *testing.T) {
	fake := &fakeIntents{}
	g := &Gateway{intents: fake}
	user := uuid.New()

	co, err := g.CreateCheckout(context.Background(), ports.CheckoutRequest{
		Reference:  "TOP-20260301120000-0123456789AB",
		UserID:     user,
		FiatAmount: 2500,
		Currency:   "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", co.ExternalRef)
	assert.Equal(t, "pi_123_secret", co.ClientSecret)

	require.NotNil(t, fake.created)
	assert.Equal(t, int64(2500), *fake.created.Amount)
	assert.Equal(t, "usd", *fake.created.Currency)
	assert.Equal(t, "TOP-20260301120000-0123456789AB", fake.created.Metadata["reference"])
	assert.Equal(t, user.String(), fake.created.Metadata["user_id"])
	assert.NotNil(t, fake.created.Context)
}

func TestCreateCheckout_Error(t *testing.T) {
	g := &Gateway{intents: &fakeIntents{err: errors.New("card_declined")}}
	_, err := g.CreateCheckout(context.Background(), ports.CheckoutRequest{Reference: "TOP-1"})
	assert.ErrorContains(t, err, "card_declined")
}

func TestStatus(t *testing.T) {
	tests := []struct {
		in   stripe.PaymentIntentStatus
		want domain.GatewayStatus
	}{
		{stripe.PaymentIntentStatusSucceeded, domain.GatewayStatusSucceeded},
		{stripe.PaymentIntentStatusCanceled, domain.GatewayStatusFailed},
		{stripe.PaymentIntentStatusProcessing, domain.GatewayStatusPending},
		{stripe.PaymentIntentStatusRequiresPaymentMethod, domain.GatewayStatusPending},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			g := &Gateway{intents: &fakeIntents{status: tt.in}}
			got, err := g.Status(context.Background(), "pi_123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
