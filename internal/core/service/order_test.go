package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port/mock"
	"github.com/MikeRez0/artisanmart/internal/core/service"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderMocks struct {
	orders   *mock.MockOrderRepository
	products *mock.MockProductRepository
	users    *mock.MockUserRepository
	queue    *mock.MockNotificationQueue
}

func newOrderService(t *testing.T, conf service.OrderConfig) (*service.OrderService, *orderMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := &orderMocks{
		orders:   mock.NewMockOrderRepository(ctrl),
		products: mock.NewMockProductRepository(ctrl),
		users:    mock.NewMockUserRepository(ctrl),
		queue:    mock.NewMockNotificationQueue(ctrl),
	}
	s, err := service.NewOrderService(m.orders, m.products, m.users, m.queue, conf, zap.NewNop())
	require.NoError(t, err)

	return s, m
}

func TestOrderService_CreateOrder(t *testing.T) {
	buyer := domain.AuthenticatedUser{ID: uuid.New(), Role: domain.RoleBuyer}
	artistA, artistB := uuid.New(), uuid.New()

	p1 := &domain.Product{ID: uuid.New(), ArtistID: artistA, ArtistEmail: "a@artisanmart.test",
		Price: decimal.MustParse("12.00"), Stock: 5, IsActive: true}
	p2 := &domain.Product{ID: uuid.New(), ArtistID: artistB, ArtistEmail: "b@artisanmart.test",
		Price: decimal.MustParse("7.00"), Stock: 5, IsActive: true}
	p3 := &domain.Product{ID: uuid.New(), ArtistID: artistA, ArtistEmail: "a@artisanmart.test",
		Price: decimal.MustParse("1.00"), Stock: 5, IsActive: true}

	type createOrderTest struct {
		name      string
		policy    string
		lines     []domain.OrderLine
		mock      func(m *orderMocks)
		expError  error
		expTotal  string
		expNotify int
	}

	tests := []createOrderTest{
		{
			name:   "client prices are summed",
			policy: service.PricingPolicyClient,
			lines: []domain.OrderLine{
				{ProductID: p1.ID, Quantity: 2, Price: decimal.MustParse("10.00")},
				{ProductID: p2.ID, Quantity: 1, Price: decimal.MustParse("5.00")},
			},
			mock: func(m *orderMocks) {
				m.products.EXPECT().GetProducts(gomock.Any(), []uuid.UUID{p1.ID, p2.ID}).
					Return([]*domain.Product{p2, p1}, nil)
				m.orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, o *domain.Order) (*domain.Order, error) {
						return o, nil
					})
			},
			expTotal:  "25.00",
			expNotify: 3,
		},
		{
			name:   "catalog prices override client",
			policy: service.PricingPolicyCatalog,
			lines: []domain.OrderLine{
				{ProductID: p1.ID, Quantity: 2, Price: decimal.MustParse("0.01")},
				{ProductID: p3.ID, Quantity: 3, Price: decimal.MustParse("0.01")},
			},
			mock: func(m *orderMocks) {
				m.products.EXPECT().GetProducts(gomock.Any(), []uuid.UUID{p1.ID, p3.ID}).
					Return([]*domain.Product{p1, p3}, nil)
				m.orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, o *domain.Order) (*domain.Order, error) {
						return o, nil
					})
			},
			expTotal:  "27.00",
			expNotify: 2,
		},
		{
			name:     "empty cart",
			lines:    nil,
			mock:     func(m *orderMocks) {},
			expError: domain.ErrValidation,
		},
		{
			name: "zero quantity",
			lines: []domain.OrderLine{
				{ProductID: p1.ID, Quantity: 0, Price: decimal.MustParse("10.00")},
			},
			mock:     func(m *orderMocks) {},
			expError: domain.ErrValidation,
		},
		{
			name: "sub-cent client price",
			lines: []domain.OrderLine{
				{ProductID: p1.ID, Quantity: 1, Price: decimal.MustParse("0.005")},
				{ProductID: p2.ID, Quantity: 1, Price: decimal.MustParse("0.005")},
				{ProductID: p3.ID, Quantity: 1, Price: decimal.MustParse("0.005")},
			},
			mock:     func(m *orderMocks) {},
			expError: domain.ErrPricePrecision,
		},
		{
			name: "total does not fit",
			lines: []domain.OrderLine{
				{ProductID: p1.ID, Quantity: 1000, Price: domain.MaxItemPrice},
			},
			mock: func(m *orderMocks) {
				m.products.EXPECT().GetProducts(gomock.Any(), gomock.Any()).
					Return([]*domain.Product{p1}, nil)
			},
			expError: domain.ErrAmountTooLarge,
		},
		{
			name: "unknown product writes nothing",
			lines: []domain.OrderLine{
				{ProductID: p1.ID, Quantity: 1, Price: decimal.MustParse("10.00")},
				{ProductID: uuid.New(), Quantity: 1, Price: decimal.MustParse("5.00")},
			},
			mock: func(m *orderMocks) {
				m.products.EXPECT().GetProducts(gomock.Any(), gomock.Any()).
					Return([]*domain.Product{p1}, nil)
			},
			expError: domain.ErrDataNotFound,
		},
		{
			name: "storage failure",
			lines: []domain.OrderLine{
				{ProductID: p1.ID, Quantity: 1, Price: decimal.MustParse("10.00")},
			},
			mock: func(m *orderMocks) {
				m.products.EXPECT().GetProducts(gomock.Any(), gomock.Any()).
					Return([]*domain.Product{p1}, nil)
				m.orders.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("tx aborted"))
			},
			expError: errors.New("tx aborted"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			policy, err := service.PricingPolicyByName(test.policy)
			require.NoError(t, err)

			s, m := newOrderService(t, service.OrderConfig{Pricing: policy, AdminEmail: adminEmail})
			test.mock(m)

			var sent []domain.Notification
			m.queue.EXPECT().Enqueue(gomock.Any()).Do(func(n domain.Notification) {
				sent = append(sent, n)
			}).AnyTimes()

			order, err := s.CreateOrder(context.Background(), buyer, test.lines)

			if test.expError != nil {
				assert.Nil(t, order)
				switch {
				case errors.Is(test.expError, domain.ErrDataNotFound):
					assert.ErrorIs(t, err, test.expError)
				case errors.Is(test.expError, domain.ErrValidation),
					errors.Is(test.expError, domain.ErrPricePrecision),
					errors.Is(test.expError, domain.ErrAmountTooLarge):
					assert.ErrorIs(t, err, test.expError)
					assert.ErrorIs(t, err, domain.ErrValidation)
				default:
					assert.EqualError(t, err, test.expError.Error())
				}
				assert.Empty(t, sent)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, buyer.ID, order.BuyerID)
			assert.Equal(t, domain.PaymentStatusNotPaid, order.PaymentStatus)
			assert.Equal(t, domain.ShippingStatusPending, order.ShippingStatus)
			assert.Zero(t, order.TotalPrice.Cmp(decimal.MustParse(test.expTotal)), "total %s", order.TotalPrice)
			for _, item := range order.Items {
				assert.Equal(t, order.ID, item.OrderID)
			}
			assert.Len(t, sent, test.expNotify)
		})
	}
}

func TestOrderService_ListOrdersForSeller(t *testing.T) {
	s, m := newOrderService(t, service.OrderConfig{})
	seller, other := uuid.New(), uuid.New()

	order := &domain.Order{
		ID:         uuid.New(),
		TotalPrice: decimal.MustParse("25.00"),
		CreatedAt:  time.Now(),
		Items: []domain.OrderItem{
			{ProductID: uuid.New(), SellerID: seller, Quantity: 2, Price: decimal.MustParse("10.00")},
			{ProductID: uuid.New(), SellerID: other, Quantity: 1, Price: decimal.MustParse("5.00")},
		},
	}
	m.orders.EXPECT().ListOrdersBySeller(gomock.Any(), seller).Return([]*domain.Order{order}, nil)

	list, err := s.ListOrdersForSeller(context.Background(), seller)
	require.NoError(t, err)
	require.Len(t, list, 1)

	want := &domain.Order{
		ID:         order.ID,
		TotalPrice: decimal.MustParse("25.00"),
		CreatedAt:  order.CreatedAt,
		Items:      order.Items[:1],
	}
	if diff := cmp.Diff(want, list[0], cmpopts.EquateComparable(decimal.Decimal{})); diff != "" {
		t.Errorf("seller view mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderService_GetOrder(t *testing.T) {
	seller, other := uuid.New(), uuid.New()
	order := &domain.Order{
		ID:      uuid.New(),
		BuyerID: uuid.New(),
		Items: []domain.OrderItem{
			{ProductID: uuid.New(), SellerID: seller, Quantity: 1},
			{ProductID: uuid.New(), SellerID: other, Quantity: 1},
		},
	}

	tests := []struct {
		name      string
		actor     domain.AuthenticatedUser
		expError  error
		expLength int
	}{
		{name: "buyer sees everything", actor: domain.AuthenticatedUser{ID: order.BuyerID, Role: domain.RoleBuyer}, expLength: 2},
		{name: "seller sees own items", actor: domain.AuthenticatedUser{ID: seller, Role: domain.RoleArtist}, expLength: 1},
		{name: "stranger", actor: domain.AuthenticatedUser{ID: uuid.New(), Role: domain.RoleArtist}, expError: domain.ErrForbidden},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, m := newOrderService(t, service.OrderConfig{})
			m.orders.EXPECT().GetOrder(gomock.Any(), order.ID).Return(order, nil)

			got, err := s.GetOrder(context.Background(), test.actor, order.ID)
			if test.expError != nil {
				assert.ErrorIs(t, err, test.expError)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got.Items, test.expLength)
		})
	}
}

func TestOrderService_UpdateShippingStatus(t *testing.T) {
	artist := domain.AuthenticatedUser{ID: uuid.New(), Role: domain.RoleArtist}
	buyer := domain.AuthenticatedUser{ID: uuid.New(), Role: domain.RoleBuyer}

	tests := []struct {
		name        string
		transitions domain.ShippingTransitions
		actor       domain.AuthenticatedUser
		from        domain.ShippingStatus
		to          domain.ShippingStatus
		expError    error
		expNotify   bool
	}{
		{
			name:      "artist ships",
			actor:     artist,
			from:      domain.ShippingStatusProcessing,
			to:        domain.ShippingStatusShipped,
			expNotify: true,
		},
		{
			name:      "permissive allows going back",
			actor:     artist,
			from:      domain.ShippingStatusDelivered,
			to:        domain.ShippingStatusPending,
			expNotify: true,
		},
		{
			name:        "strict rejects going back",
			transitions: domain.StrictShippingTransitions,
			actor:       artist,
			from:        domain.ShippingStatusDelivered,
			to:          domain.ShippingStatusPending,
			expError:    domain.ErrShippingTransition,
		},
		{
			name:        "same status is a no-op",
			transitions: domain.StrictShippingTransitions,
			actor:       artist,
			from:        domain.ShippingStatusShipped,
			to:          domain.ShippingStatusShipped,
		},
		{
			name:     "buyer is forbidden",
			actor:    buyer,
			to:       domain.ShippingStatusShipped,
			expError: domain.ErrForbidden,
		},
		{
			name:     "unknown status",
			actor:    artist,
			to:       domain.ShippingStatus("teleported"),
			expError: domain.ErrValidation,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, m := newOrderService(t, service.OrderConfig{Transitions: test.transitions})
			stored := &domain.Order{
				ID:             uuid.New(),
				BuyerID:        buyer.ID,
				PaymentStatus:  domain.PaymentStatusPaid,
				ShippingStatus: test.from,
			}

			if test.from != "" {
				m.orders.EXPECT().UpdateOrder(gomock.Any(), stored.ID, gomock.Any()).
					DoAndReturn(lockedUpdate(stored, nil))
			}
			if test.expNotify {
				m.users.EXPECT().GetUser(gomock.Any(), buyer.ID).
					Return(&domain.User{ID: buyer.ID, Email: "buyer@artisanmart.test"}, nil)
				m.queue.EXPECT().Enqueue(gomock.Any())
			}

			got, err := s.UpdateShippingStatus(context.Background(), test.actor, stored.ID, test.to)
			if test.expError != nil {
				assert.ErrorIs(t, err, test.expError)
				assert.Equal(t, test.from, stored.ShippingStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.to, got.ShippingStatus)
			assert.Equal(t, test.to, stored.ShippingStatus)
		})
	}
}
