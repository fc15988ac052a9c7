package port

import (
	"context"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/govalues/decimal"
)

//go:generate mockgen -source=payment.go -destination=mock/payment.go -package=mock
type PaymentGateway interface {
	// CreateCheckout returns the hosted payment page URL for the request.
	CreateCheckout(ctx context.Context, cred domain.GatewayCredential, req domain.CheckoutRequest) (string, error)
	RegisterProduct(ctx context.Context, cred domain.GatewayCredential,
		product *domain.Product) (productRef string, priceRef string, err error)
	VerifyWebhook(payload []byte, signature string, secret string) (*domain.PaymentEvent, error)
}

// IdempotencyStore remembers webhook event ids that were already handled.
type IdempotencyStore interface {
	// Claim atomically marks eventID as handled. It returns false when the id
	// was already claimed.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release forgets a claim whose delivery failed so a retry is applied.
	Release(ctx context.Context, eventID string) error
}

// PricingPolicy decides the unit price stored for an order line.
type PricingPolicy interface {
	Price(line domain.OrderLine, product *domain.Product) (decimal.Decimal, error)
}
