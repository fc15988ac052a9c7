package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/MikeRez0/artisanmart/internal/core/utils"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderConfig struct {
	Pricing     port.PricingPolicy
	Transitions domain.ShippingTransitions
	AdminEmail  string
}

type OrderService struct {
	orders      port.OrderRepository
	products    port.ProductRepository
	pricing     port.PricingPolicy
	transitions domain.ShippingTransitions
	notify      *notifier
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewOrderService(orders port.OrderRepository, products port.ProductRepository,
	users port.UserRepository, queue port.NotificationQueue,
	conf OrderConfig, logger *zap.Logger) (*OrderService, error) {
	if conf.Pricing == nil {
		conf.Pricing = ClientPricePolicy{}
	}
	if conf.Transitions == nil {
		conf.Transitions = domain.PermissiveShippingTransitions
	}

	return &OrderService{
		orders:      orders,
		products:    products,
		pricing:     conf.Pricing,
		transitions: conf.Transitions,
		notify: &notifier{
			queue:      queue,
			users:      users,
			adminEmail: conf.AdminEmail,
			logger:     logger,
		},
		logger: logger,
		tracer: otel.Tracer("service/order"),
	}, nil
}

func (s *OrderService) CreateOrder(ctx context.Context,
	buyer domain.AuthenticatedUser, lines []domain.OrderLine) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("buyer_id", buyer.ID.String()), attribute.Int("lines", len(lines)))

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyOrder)
	}
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, err
		}
	}

	ids := lo.Uniq(lo.Map(lines, func(l domain.OrderLine, _ int) uuid.UUID { return l.ProductID }))
	list, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		span.RecordError(err)
		utils.Error(ctx, s.logger, "Get products", zap.Error(err))
		return nil, fmt.Errorf("get products: %w", err)
	}
	products := lo.KeyBy(list, func(p *domain.Product) uuid.UUID { return p.ID })

	order := &domain.Order{
		ID:             uuid.New(),
		BuyerID:        buyer.ID,
		PaymentStatus:  domain.PaymentStatusNotPaid,
		ShippingStatus: domain.ShippingStatusPending,
		CreatedAt:      time.Now().UTC(),
		Items:          make([]domain.OrderItem, 0, len(lines)),
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", domain.ErrDataNotFound, line.ProductID)
		}

		price, err := s.pricing.Price(line, product)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}

		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: product.ID,
			SellerID:  product.ArtistID,
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	order.TotalPrice, err = domain.SumItems(order.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if err := domain.ValidateTotal(order.TotalPrice); err != nil {
		return nil, err
	}

	created, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		if !errors.Is(err, domain.ErrDataNotFound) {
			utils.Error(ctx, s.logger, "Create order", zap.Error(err))
		}
		return nil, err
	}

	utils.Info(ctx, s.logger, "Order created",
		zap.Stringer("order_id", created.ID),
		zap.Stringer("total_price", created.TotalPrice))

	s.notify.orderCreated(ctx, created, products)

	return created, nil
}

func (s *OrderService) GetOrder(ctx context.Context,
	actor domain.AuthenticatedUser, orderID uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.BuyerID == actor.ID {
		return order, nil
	}
	if actor.IsArtist() && order.HasSeller(actor.ID) {
		return order.ForSeller(actor.ID), nil
	}
	return nil, domain.ErrForbidden
}

func (s *OrderService) ListOrdersForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrdersForBuyer")
	defer span.End()

	list, err := s.orders.ListOrdersByBuyer(ctx, buyerID)
	if err != nil {
		utils.Error(ctx, s.logger, "Get orders for buyer", zap.Error(err))
		return nil, err
	}
	return list, nil
}

func (s *OrderService) ListOrdersForSeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrdersForSeller")
	defer span.End()

	list, err := s.orders.ListOrdersBySeller(ctx, sellerID)
	if err != nil {
		utils.Error(ctx, s.logger, "Get orders for seller", zap.Error(err))
		return nil, err
	}

	return lo.Map(list, func(o *domain.Order, _ int) *domain.Order {
		return o.ForSeller(sellerID)
	}), nil
}

func (s *OrderService) UpdateShippingStatus(ctx context.Context, actor domain.AuthenticatedUser,
	orderID uuid.UUID, status domain.ShippingStatus) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateShippingStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID.String()), attribute.String("status", string(status)))

	if !actor.IsArtist() {
		return nil, domain.ErrForbidden
	}
	if _, err := domain.ToShippingStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	changed := false
	order, err := s.orders.UpdateOrder(ctx, orderID,
		func(_ context.Context, o *domain.Order, _ port.StockWriter) error {
			if err := s.transitions.Check(o.ShippingStatus, status); err != nil {
				return err
			}
			changed = o.ShippingStatus != status
			o.ShippingStatus = status
			return nil
		})
	if err != nil {
		if !errors.Is(err, domain.ErrDataNotFound) && !errors.Is(err, domain.ErrShippingTransition) {
			utils.Error(ctx, s.logger, "Update shipping status", zap.Error(err))
		}
		return nil, err
	}

	if changed {
		s.notify.shippingChanged(ctx, order)
	}

	return order, nil
}
