// Package stripe implements the payment gateway port on top of Stripe
// Checkout.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/govalues/decimal"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

const metadataOrderID = "order_id"

type Gateway struct {
	backends   *stripe.Backends
	successURL string
	cancelURL  string
	currency   string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

func New(conf *config.Gateway, logger *zap.Logger) (*Gateway, error) {
	unit, err := currency.ParseISO(conf.Currency)
	if err != nil {
		return nil, fmt.Errorf("gateway currency %q: %w", conf.Currency, err)
	}
	if conf.SuccessURL == "" || conf.CancelURL == "" {
		return nil, errors.New("checkout success and cancel URLs are required")
	}

	backendConfig := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     logger.Sugar(),
	}
	if conf.APIURL != "" {
		backendConfig.URL = stripe.String(conf.APIURL)
	}
	api := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	return &Gateway{
		backends: &stripe.Backends{
			API:     api,
			Connect: api,
			Uploads: api,
		},
		successURL: conf.SuccessURL,
		cancelURL:  conf.CancelURL,
		currency:   strings.ToLower(unit.String()),
		cb:         newBreaker("stripe", logger),
		logger:     logger,
	}, nil
}

// client is built per call so every request carries the caller's credential.
func (g *Gateway) client(cred domain.GatewayCredential) *client.API {
	return client.New(cred.SecretKey, g.backends)
}

func upstream(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %s (%s)", domain.ErrUpstream, stripeErr.Msg, stripeErr.Code)
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
}

func (g *Gateway) CreateCheckout(ctx context.Context, cred domain.GatewayCredential,
	req domain.CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		LineItems:         make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(line.PriceRef),
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	params.AddMetadata(metadataOrderID, req.OrderID.String())
	params.Context = ctx

	sc := g.client(cred)
	session, err := executeWithBreaker(g.cb, func() (*stripe.CheckoutSession, error) {
		return sc.CheckoutSessions.New(params)
	})
	if err != nil {
		return "", upstream(err)
	}

	g.logger.Debug("checkout session created",
		zap.String("session_id", session.ID), zap.Stringer("order_id", req.OrderID))

	return session.URL, nil
}

// RegisterProduct creates the Stripe product when the product has none yet
// and always creates a new price, since Stripe prices are immutable.
func (g *Gateway) RegisterProduct(ctx context.Context, cred domain.GatewayCredential,
	product *domain.Product) (string, string, error) {
	cents, err := unitAmount(product.Price)
	if err != nil {
		return "", "", err
	}

	sc := g.client(cred)

	productRef := product.ExternalProductRef
	if productRef == "" {
		params := &stripe.ProductParams{Name: stripe.String(product.Name)}
		if product.Description != "" {
			params.Description = stripe.String(product.Description)
		}
		params.AddMetadata("product_id", product.ID.String())
		params.Context = ctx

		created, err := executeWithBreaker(g.cb, func() (*stripe.Product, error) {
			return sc.Products.New(params)
		})
		if err != nil {
			return "", "", upstream(err)
		}
		productRef = created.ID
	}

	priceParams := &stripe.PriceParams{
		Currency:   stripe.String(g.currency),
		UnitAmount: stripe.Int64(cents),
		Product:    stripe.String(productRef),
	}
	priceParams.Context = ctx

	price, err := executeWithBreaker(g.cb, func() (*stripe.Price, error) {
		return sc.Prices.New(priceParams)
	})
	if err != nil {
		return "", "", upstream(err)
	}

	return productRef, price.ID, nil
}

// unitAmount converts a price to the smallest currency unit, rounding to cents.
func unitAmount(price decimal.Decimal) (int64, error) {
	if price.IsNeg() {
		return 0, fmt.Errorf("%w: %s", domain.ErrBadPrice, price)
	}
	cents, err := price.Mul(decimal.Hundred)
	if err != nil {
		return 0, err
	}
	cents = cents.Round(0)
	whole, _, ok := cents.Int64(0)
	if !ok {
		return 0, fmt.Errorf("%w: %s does not fit a unit amount", domain.ErrBadPrice, price)
	}
	return whole, nil
}

func (g *Gateway) VerifyWebhook(payload []byte, signature string, secret string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSignatureVerification, err)
	}

	out := &domain.PaymentEvent{
		ID:   event.ID,
		Type: domain.PaymentEventType(event.Type),
	}
	if out.Kind() == domain.PaymentEventUnknown {
		return out, nil
	}

	var session stripe.CheckoutSession
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", domain.ErrBadRequest, event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: checkout session: %w", domain.ErrBadRequest, err)
	}

	out.OrderRef = session.Metadata[metadataOrderID]
	out.PaymentOutcome = string(session.PaymentStatus)

	return out, nil
}

var _ port.PaymentGateway = (*Gateway)(nil)
