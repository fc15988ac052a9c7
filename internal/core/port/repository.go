package port

import (
	"context"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
)

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error)
	ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error)
	// UpdateOrder locks the order row, runs updateFn and persists the result
	// in one transaction. An error from updateFn rolls everything back.
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updateFn UpdateOrderFn) (*domain.Order, error)
}

// UpdateOrderFn mutates a locked order. Stock changes go through stock so
// they share the order's transaction.
type UpdateOrderFn func(ctx context.Context, order *domain.Order, stock StockWriter) error

type StockWriter interface {
	// DecrementStock returns domain.ErrInsufficientStock instead of going below zero.
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
}

type ProductRepository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	// GetProducts returns the products that exist among ids, in no particular order.
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error)
	UpdateGatewayRefs(ctx context.Context, productID uuid.UUID, productRef, priceRef string) error
}

type UserRepository interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetUsers(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *domain.PaymentReview) error
}
