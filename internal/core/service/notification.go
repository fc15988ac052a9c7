package service

import (
	"context"
	"fmt"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/MikeRez0/artisanmart/internal/core/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// notifier builds order notifications and hands them to the queue.
// Lookup failures are logged; they never fail the calling operation.
type notifier struct {
	queue      port.NotificationQueue
	users      port.UserRepository
	adminEmail string
	logger     *zap.Logger
}

func orderData(order *domain.Order) map[string]string {
	return map[string]string{
		"order_id":        order.ID.String(),
		"total_price":     order.TotalPrice.String(),
		"payment_status":  string(order.PaymentStatus),
		"shipping_status": string(order.ShippingStatus),
	}
}

func (n *notifier) send(ctx context.Context, msg domain.Notification) {
	if msg.Recipient == "" {
		utils.Warn(ctx, n.logger, "notification without recipient dropped",
			zap.String("subject", msg.Subject))
		return
	}
	n.queue.Enqueue(msg)
}

func (n *notifier) admin(ctx context.Context, order *domain.Order, subject, message string) {
	if n.adminEmail == "" {
		return
	}
	n.send(ctx, domain.Notification{
		Subject:   subject,
		Message:   message,
		Recipient: n.adminEmail,
		Template:  domain.TemplateGeneral,
		Data:      orderData(order),
	})
}

func (n *notifier) sellers(ctx context.Context, order *domain.Order, emails map[uuid.UUID]string,
	template domain.NotificationTemplate, subject, message string) {
	for _, sellerID := range order.SellerIDs() {
		email, ok := emails[sellerID]
		if !ok {
			utils.Warn(ctx, n.logger, "no email for seller", zap.Stringer("seller_id", sellerID))
			continue
		}
		n.send(ctx, domain.Notification{
			Subject:     subject,
			Message:     message,
			Recipient:   email,
			Template:    template,
			Data:        orderData(order.ForSeller(sellerID)),
			RecipientID: sellerID.String(),
			URLPath:     domain.OrderURLPath(order.ID),
		})
	}
}

func (n *notifier) buyer(ctx context.Context, order *domain.Order,
	template domain.NotificationTemplate, subject, message string) {
	buyer, err := n.users.GetUser(ctx, order.BuyerID)
	if err != nil {
		utils.Error(ctx, n.logger, "load buyer for notification",
			zap.Stringer("order_id", order.ID), zap.Error(err))
		return
	}
	n.send(ctx, domain.Notification{
		Subject:     subject,
		Message:     message,
		Recipient:   buyer.Email,
		Template:    template,
		Data:        orderData(order),
		RecipientID: buyer.ID.String(),
		URLPath:     domain.OrderURLPath(order.ID),
	})
}

func (n *notifier) sellerEmails(ctx context.Context, order *domain.Order) map[uuid.UUID]string {
	users, err := n.users.GetUsers(ctx, order.SellerIDs())
	if err != nil {
		utils.Error(ctx, n.logger, "load sellers for notification",
			zap.Stringer("order_id", order.ID), zap.Error(err))
		return nil
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails
}

func (n *notifier) orderCreated(ctx context.Context, order *domain.Order, products map[uuid.UUID]*domain.Product) {
	n.admin(ctx, order, "New order placed",
		fmt.Sprintf("Order %s was placed for %s.", order.ID, order.TotalPrice))

	emails := make(map[uuid.UUID]string)
	for _, p := range products {
		if p.ArtistEmail != "" {
			emails[p.ArtistID] = p.ArtistEmail
		}
	}
	n.sellers(ctx, order, emails, domain.TemplateNewOrder, "You have a new order",
		fmt.Sprintf("Order %s contains your artwork.", order.ID))
}

func (n *notifier) orderPaid(ctx context.Context, order *domain.Order) {
	n.buyer(ctx, order, domain.TemplatePaymentConfirmation, "Payment confirmed",
		fmt.Sprintf("We received your payment of %s for order %s.", order.TotalPrice, order.ID))
	n.admin(ctx, order, "Order paid",
		fmt.Sprintf("Order %s was paid.", order.ID))
	n.sellers(ctx, order, n.sellerEmails(ctx, order), domain.TemplateGeneral, "Your artwork was sold",
		fmt.Sprintf("Order %s is paid and ready for processing.", order.ID))
}

func (n *notifier) paymentFailed(ctx context.Context, order *domain.Order) {
	n.buyer(ctx, order, domain.TemplatePaymentFailed, "Payment failed",
		fmt.Sprintf("The payment for order %s did not go through and the order was canceled.", order.ID))
}

func (n *notifier) shippingChanged(ctx context.Context, order *domain.Order) {
	n.buyer(ctx, order, domain.TemplateGeneral, "Order status updated",
		fmt.Sprintf("Order %s is now %s.", order.ID, order.ShippingStatus))
}
