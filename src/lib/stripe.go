package lib

import (
	"context"
	"cws/src/config"
	"math"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	sc := stripe.NewClient(config.Get().StripeSecretKey)
	stripeClient = sc

	return sc
}

// NewStripeClient replaces the client, for tests.
func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// GatewayOrder is the order-creation result handed back to checkout callers.
type GatewayOrder struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// MinorUnits converts a major-unit amount to the gateway's integer minor
// units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateGatewayOrder creates a PaymentIntent for the given major-unit amount.
// The receipt lands in the intent metadata for webhook correlation.
func CreateGatewayOrder(amount float64, currency string, receipt string) (*GatewayOrder, error) {
	sc := GetStripeClient()
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(MinorUnits(amount)),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("receipt", receipt)
	intent, err := sc.V1PaymentIntents.Create(context.Background(), params)
	if err != nil {
		return nil, err
	}
	return &GatewayOrder{
		OrderID:  intent.ID,
		Amount:   intent.Amount,
		Currency: string(intent.Currency),
	}, nil
}
