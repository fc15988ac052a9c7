package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	Handler
	orders   port.OrderService
	payments port.PaymentService
}

func NewOrderHandler(orders port.OrderService, payments port.PaymentService, logger *zap.Logger) (*OrderHandler, error) {
	return &OrderHandler{
		Handler:  *NewHandler(logger),
		orders:   orders,
		payments: payments,
	}, nil
}

type OrderLineRequest struct {
	ProductID string       `json:"product_id" validate:"required,uuid"`
	Quantity  int          `json:"quantity" validate:"required,gte=1"`
	Price     *jsonDecimal `json:"price" validate:"required"`
}

type CreateOrderRequest struct {
	Items []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateShippingRequest struct {
	ShippingStatus string `json:"shipping_status" validate:"required"`
}

type OrderItemResp struct {
	ID        uuid.UUID   `json:"id"`
	ProductID uuid.UUID   `json:"product_id"`
	SellerID  uuid.UUID   `json:"seller_id"`
	Quantity  int         `json:"quantity"`
	Price     jsonDecimal `json:"price"`
}

type OrderResp struct {
	ID             uuid.UUID       `json:"id"`
	BuyerID        uuid.UUID       `json:"buyer_id"`
	PaymentStatus  string          `json:"payment_status"`
	ShippingStatus string          `json:"shipping_status"`
	TotalPrice     jsonDecimal     `json:"total_price"`
	CreatedAt      time.Time       `json:"created_at"`
	Items          []OrderItemResp `json:"items"`
}

type CreateOrderResp struct {
	Order      OrderResp `json:"order"`
	PaymentURL string    `json:"payment_url,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type PaymentLinkResp struct {
	PaymentURL string `json:"payment_url"`
}

func newOrderResp(o *domain.Order) OrderResp {
	r := OrderResp{
		ID:             o.ID,
		BuyerID:        o.BuyerID,
		PaymentStatus:  string(o.PaymentStatus),
		ShippingStatus: string(o.ShippingStatus),
		TotalPrice:     jsonDecimal(o.TotalPrice),
		CreatedAt:      o.CreatedAt,
		Items:          make([]OrderItemResp, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		r.Items = append(r.Items, OrderItemResp{
			ID:        it.ID,
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Quantity:  it.Quantity,
			Price:     jsonDecimal(it.Price),
		})
	}
	return r
}

func newOrderListResp(list []*domain.Order) []OrderResp {
	result := make([]OrderResp, 0, len(list))
	for _, o := range list {
		result = append(result, newOrderResp(o))
	}
	return result
}

func parseID(ctx *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return uuid.Nil, errors.Join(domain.ErrBadRequest, err)
	}
	return id, nil
}

// CreateOrder stores the order and answers with a hosted payment URL. The
// order survives a gateway failure; the client retries the payment link.
func (oh *OrderHandler) CreateOrder(ctx *gin.Context) {
	actor := getActor(ctx)

	req := CreateOrderRequest{}
	if !oh.bind(ctx, &req) {
		return
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, domain.OrderLine{
			ProductID: uuid.MustParse(it.ProductID),
			Quantity:  it.Quantity,
			Price:     decimal.Decimal(*it.Price),
		})
	}

	order, err := oh.orders.CreateOrder(ctx, actor, lines)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	url, err := oh.payments.CreatePaymentLink(ctx, order.ID)
	if err != nil {
		status, _ := statusFor(err)
		oh.logger.Warn("payment link failed for created order",
			zap.Stringer("order_id", order.ID), zap.Error(err))
		_ = ctx.Error(err)
		ctx.JSON(status, CreateOrderResp{Order: newOrderResp(order), Error: err.Error()})
		return
	}

	oh.handleSuccessWithStatus(ctx, CreateOrderResp{Order: newOrderResp(order), PaymentURL: url}, http.StatusCreated)
}

func (oh *OrderHandler) ListMyOrders(ctx *gin.Context) {
	list, err := oh.orders.ListOrdersForBuyer(ctx, getActor(ctx).ID)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, newOrderListResp(list))
}

func (oh *OrderHandler) ListSellingOrders(ctx *gin.Context) {
	list, err := oh.orders.ListOrdersForSeller(ctx, getActor(ctx).ID)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, newOrderListResp(list))
}

func (oh *OrderHandler) GetOrder(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	order, err := oh.orders.GetOrder(ctx, getActor(ctx), id)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, newOrderResp(order))
}

func (oh *OrderHandler) UpdateShippingStatus(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	req := UpdateShippingRequest{}
	if !oh.bind(ctx, &req) {
		return
	}

	order, err := oh.orders.UpdateShippingStatus(ctx, getActor(ctx), id, domain.ShippingStatus(req.ShippingStatus))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, newOrderResp(order))
}

func (oh *OrderHandler) CreatePaymentLink(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	url, err := oh.payments.CreatePaymentLinkForBuyer(ctx, getActor(ctx), id)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, PaymentLinkResp{PaymentURL: url})
}
