package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/samber/lo"
)

type PaymentStatus string

const (
	PaymentStatusNotPaid PaymentStatus = "not_paid"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type ShippingStatus string

// remember to add new statuses to the validShippingStatuses map
const (
	ShippingStatusPending    ShippingStatus = "pending"
	ShippingStatusProcessing ShippingStatus = "processing"
	ShippingStatusShipped    ShippingStatus = "shipped"
	ShippingStatusDelivered  ShippingStatus = "delivered"
	ShippingStatusCanceled   ShippingStatus = "canceled"
)

var validShippingStatuses = map[ShippingStatus]struct{}{
	ShippingStatusPending:    {},
	ShippingStatusProcessing: {},
	ShippingStatusShipped:    {},
	ShippingStatusDelivered:  {},
	ShippingStatusCanceled:   {},
}

func ToShippingStatus(s string) (ShippingStatus, error) {
	status := ShippingStatus(s)
	if _, ok := validShippingStatuses[status]; ok {
		return status, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func ToPaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusNotPaid, PaymentStatusPaid:
		return PaymentStatus(s), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

type Order struct {
	ID             uuid.UUID
	BuyerID        uuid.UUID
	PaymentStatus  PaymentStatus
	ShippingStatus ShippingStatus
	TotalPrice     decimal.Decimal
	CreatedAt      time.Time
	Items          []OrderItem
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	SellerID  uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// OrderLine is one requested cart line before it becomes an OrderItem.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

// Money limits follow the NUMERIC(10, 2) item price and NUMERIC(12, 2)
// order total columns.
const (
	MoneyScale  = 2
	MaxQuantity = math.MaxInt32
)

var (
	MaxItemPrice  = decimal.MustParse("99999999.99")
	MaxOrderTotal = decimal.MustParse("9999999999.99")
)

func (l OrderLine) Validate() error {
	if l.ProductID == uuid.Nil {
		return fmt.Errorf("%w: product id is empty", ErrValidation)
	}
	if l.Quantity < 1 || l.Quantity > MaxQuantity {
		return fmt.Errorf("%w: %w", ErrValidation, ErrBadQuantity)
	}
	return ValidatePrice(l.Price)
}

// ValidatePrice accepts non-negative prices in whole cents up to MaxItemPrice.
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNeg() {
		return fmt.Errorf("%w: %w", ErrValidation, ErrBadPrice)
	}
	if price.Trim(0).Scale() > MoneyScale {
		return fmt.Errorf("%w: %w: %s", ErrValidation, ErrPricePrecision, price)
	}
	if price.Cmp(MaxItemPrice) > 0 {
		return fmt.Errorf("%w: %w: price %s", ErrValidation, ErrAmountTooLarge, price)
	}
	return nil
}

// ValidateTotal checks that an order total fits the stored total column.
func ValidateTotal(total decimal.Decimal) error {
	if total.Cmp(MaxOrderTotal) > 0 {
		return fmt.Errorf("%w: %w: total %s", ErrValidation, ErrAmountTooLarge, total)
	}
	return nil
}

// LineTotal returns price × quantity.
func (i OrderItem) LineTotal() (decimal.Decimal, error) {
	qty, err := decimal.New(int64(i.Quantity), 0)
	if err != nil {
		return decimal.Zero, err
	}
	return i.Price.Mul(qty)
}

// SumItems computes Σ price × quantity over items.
func SumItems(items []OrderItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		line, err := item.LineTotal()
		if err != nil {
			return decimal.Zero, fmt.Errorf("line total for product %s: %w", item.ProductID, err)
		}
		total, err = total.Add(line)
		if err != nil {
			return decimal.Zero, fmt.Errorf("order total: %w", err)
		}
	}
	return total, nil
}

// SellerIDs returns the distinct sellers of the order in item order.
func (o *Order) SellerIDs() []uuid.UUID {
	return lo.Uniq(lo.Map(o.Items, func(item OrderItem, _ int) uuid.UUID {
		return item.SellerID
	}))
}

// ForSeller returns a copy of the order whose items are restricted to one seller.
// TotalPrice is left untouched.
func (o *Order) ForSeller(sellerID uuid.UUID) *Order {
	view := *o
	view.Items = lo.Filter(o.Items, func(item OrderItem, _ int) bool {
		return item.SellerID == sellerID
	})
	return &view
}

func (o *Order) HasSeller(sellerID uuid.UUID) bool {
	return lo.ContainsBy(o.Items, func(item OrderItem) bool {
		return item.SellerID == sellerID
	})
}

// Settled reports whether the order can no longer be paid through a new checkout.
func (o *Order) Settled() bool {
	return o.PaymentStatus == PaymentStatusPaid || o.ShippingStatus == ShippingStatusCanceled
}
