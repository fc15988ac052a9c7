package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentEventType string

const (
	EventCheckoutCompleted     PaymentEventType = "checkout.session.completed"
	EventAsyncPaymentSucceeded PaymentEventType = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    PaymentEventType = "checkout.session.async_payment_failed"
)

const PaymentOutcomePaid = "paid"

// PaymentEvent is a verified gateway webhook delivery.
type PaymentEvent struct {
	ID             string
	Type           PaymentEventType
	OrderRef       string
	PaymentOutcome string
}

type PaymentEventKind int

const (
	PaymentEventUnknown PaymentEventKind = iota
	PaymentEventPaid
	PaymentEventUnpaid
	PaymentEventFailed
)

func (e PaymentEvent) Kind() PaymentEventKind {
	switch e.Type {
	case EventCheckoutCompleted:
		if e.PaymentOutcome == PaymentOutcomePaid {
			return PaymentEventPaid
		}
		return PaymentEventUnpaid
	case EventAsyncPaymentSucceeded:
		return PaymentEventPaid
	case EventAsyncPaymentFailed:
		return PaymentEventFailed
	}
	return PaymentEventUnknown
}

// OrderID parses the order reference carried in the event metadata.
func (e PaymentEvent) OrderID() (uuid.UUID, error) {
	if e.OrderRef == "" {
		return uuid.Nil, ErrMissingOrderReference
	}
	id, err := uuid.Parse(e.OrderRef)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrMissingOrderReference, e.OrderRef)
	}
	return id, nil
}

type ReconcileOutcome string

const (
	OutcomeApplied     ReconcileOutcome = "applied"
	OutcomePending     ReconcileOutcome = "pending"
	OutcomeDuplicate   ReconcileOutcome = "duplicate"
	OutcomeIgnored     ReconcileOutcome = "ignored"
	OutcomeNeedsReview ReconcileOutcome = "needs_review"
	OutcomeRejected    ReconcileOutcome = "rejected"
	OutcomeFailed      ReconcileOutcome = "failed"
)

// ApplyPaymentEvent moves the order through the payment state machine.
// The order is changed only when OutcomeApplied is returned.
func (o *Order) ApplyPaymentEvent(kind PaymentEventKind) ReconcileOutcome {
	switch kind {
	case PaymentEventPaid:
		if o.PaymentStatus != PaymentStatusNotPaid {
			return OutcomeDuplicate
		}
		o.PaymentStatus = PaymentStatusPaid
		o.ShippingStatus = ShippingStatusProcessing
		return OutcomeApplied
	case PaymentEventFailed:
		if o.PaymentStatus == PaymentStatusPaid {
			return OutcomeIgnored
		}
		if o.ShippingStatus == ShippingStatusCanceled {
			return OutcomeDuplicate
		}
		o.ShippingStatus = ShippingStatusCanceled
		return OutcomeApplied
	case PaymentEventUnpaid:
		return OutcomePending
	}
	return OutcomeIgnored
}

// StockDecrements lists the stock changes a paid order causes.
func (o *Order) StockDecrements() []StockDecrement {
	out := make([]StockDecrement, 0, len(o.Items))
	for _, item := range o.Items {
		out = append(out, StockDecrement{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// PaymentReview is a webhook delivery that could not be applied and was
// acknowledged so an operator can resolve it.
type PaymentReview struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	EventID   string
	EventType PaymentEventType
	Reason    string
	CreatedAt time.Time
}

type GatewayCredential struct {
	SecretKey string
}

type CheckoutLine struct {
	PriceRef string
	Quantity int
}

type CheckoutRequest struct {
	OrderID uuid.UUID
	Lines   []CheckoutLine
}
