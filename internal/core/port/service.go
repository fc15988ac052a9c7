package port

import (
	"context"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=mock/service.go -package=mock
type OrderService interface {
	CreateOrder(ctx context.Context, buyer domain.AuthenticatedUser, lines []domain.OrderLine) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.AuthenticatedUser, orderID uuid.UUID) (*domain.Order, error)
	ListOrdersForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListOrdersForSeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error)
	UpdateShippingStatus(ctx context.Context, actor domain.AuthenticatedUser,
		orderID uuid.UUID, status domain.ShippingStatus) (*domain.Order, error)
}

type PaymentService interface {
	CreatePaymentLink(ctx context.Context, orderID uuid.UUID) (string, error)
	CreatePaymentLinkForBuyer(ctx context.Context, actor domain.AuthenticatedUser, orderID uuid.UUID) (string, error)
	RegisterProduct(ctx context.Context, actor domain.AuthenticatedUser, productID uuid.UUID) (*domain.Product, error)
}

type ReconcileService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (domain.ReconcileOutcome, error)
}
