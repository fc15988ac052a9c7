package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/MikeRez0/artisanmart/internal/core/utils"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PaymentService struct {
	orders   port.OrderRepository
	products port.ProductRepository
	gateway  port.PaymentGateway
	cred     domain.GatewayCredential
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewPaymentService(orders port.OrderRepository, products port.ProductRepository,
	gateway port.PaymentGateway, cred domain.GatewayCredential, logger *zap.Logger) (*PaymentService, error) {
	return &PaymentService{
		orders:   orders,
		products: products,
		gateway:  gateway,
		cred:     cred,
		logger:   logger,
		tracer:   otel.Tracer("service/payment"),
	}, nil
}

// CreatePaymentLink asks the gateway for a hosted checkout page covering every
// item of the order. The order itself is not changed.
func (s *PaymentService) CreatePaymentLink(ctx context.Context, orderID uuid.UUID) (string, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.CreatePaymentLink")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return s.checkout(ctx, order)
}

func (s *PaymentService) CreatePaymentLinkForBuyer(ctx context.Context,
	actor domain.AuthenticatedUser, orderID uuid.UUID) (string, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.CreatePaymentLinkForBuyer")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.BuyerID != actor.ID {
		return "", domain.ErrForbidden
	}
	if order.Settled() {
		return "", domain.ErrOrderAlreadySettled
	}
	return s.checkout(ctx, order)
}

func (s *PaymentService) checkout(ctx context.Context, order *domain.Order) (string, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("order_id", order.ID.String()))

	ids := lo.Uniq(lo.Map(order.Items, func(i domain.OrderItem, _ int) uuid.UUID { return i.ProductID }))
	list, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("get products: %w", err)
	}
	products := lo.KeyBy(list, func(p *domain.Product) uuid.UUID { return p.ID })

	req := domain.CheckoutRequest{
		OrderID: order.ID,
		Lines:   make([]domain.CheckoutLine, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok || product.ExternalPriceRef == "" {
			utils.Error(ctx, s.logger, "Product has no gateway price",
				zap.Stringer("order_id", order.ID), zap.Stringer("product_id", item.ProductID))
			return "", fmt.Errorf("%w: %w: product %s", domain.ErrUpstream, domain.ErrMissingPriceRef, item.ProductID)
		}
		req.Lines = append(req.Lines, domain.CheckoutLine{
			PriceRef: product.ExternalPriceRef,
			Quantity: item.Quantity,
		})
	}

	url, err := s.gateway.CreateCheckout(ctx, s.cred, req)
	if err != nil {
		span.RecordError(err)
		utils.Error(ctx, s.logger, "Create checkout", zap.Stringer("order_id", order.ID), zap.Error(err))
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return "", err
	}

	return url, nil
}

// RegisterProduct creates the gateway product and a fresh price for the
// product's current catalog price and stores both references.
func (s *PaymentService) RegisterProduct(ctx context.Context,
	actor domain.AuthenticatedUser, productID uuid.UUID) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "PaymentService.RegisterProduct")
	defer span.End()

	if !actor.IsArtist() {
		return nil, domain.ErrForbidden
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.ArtistID != actor.ID {
		return nil, domain.ErrForbidden
	}

	productRef, priceRef, err := s.gateway.RegisterProduct(ctx, s.cred, product)
	if err != nil {
		span.RecordError(err)
		utils.Error(ctx, s.logger, "Register product", zap.Stringer("product_id", productID), zap.Error(err))
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		return nil, err
	}

	if err := s.products.UpdateGatewayRefs(ctx, productID, productRef, priceRef); err != nil {
		utils.Error(ctx, s.logger, "Save gateway refs", zap.Stringer("product_id", productID), zap.Error(err))
		return nil, err
	}

	product.ExternalProductRef = productRef
	product.ExternalPriceRef = priceRef
	return product, nil
}
