package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/adapter/storage"
	"github.com/MikeRez0/artisanmart/internal/adapter/storage/repository"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/MikeRez0/artisanmart/internal/e2etest/testdb"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type repositorySuite struct {
	suite.Suite

	instance *testdb.TestDBInstance
	db       *storage.DB
	repo     *repository.Repository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	suite.Run(t, new(repositorySuite))
}

func (s *repositorySuite) SetupSuite() {
	var err error

	s.instance, err = testdb.NewTestDBInstance()
	s.Require().NoError(err)

	s.db, err = storage.NewDBStorage(context.Background(), &config.Database{DSN: s.instance.DSN})
	s.Require().NoError(err)
	s.Require().NoError(s.db.RunMigrations())

	s.repo, err = repository.NewRepository(s.db)
	s.Require().NoError(err)
}

func (s *repositorySuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.instance != nil {
		s.NoError(s.instance.Down())
	}
}

var orderCmpOpts = []cmp.Option{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Cmp(b) == 0 }),
	cmpopts.EquateApproxTime(time.Millisecond),
	cmpopts.SortSlices(func(a, b domain.OrderItem) bool { return a.ID.String() < b.ID.String() }),
}

type fixture struct {
	buyer   *domain.User
	artistA *domain.User
	artistB *domain.User
	p1      *domain.Product
	p2      *domain.Product
}

func (s *repositorySuite) seed(stock1, stock2 int) fixture {
	ctx := context.Background()
	var f fixture
	var err error

	f.buyer, err = testdb.SeedUser(ctx, s.db.Pool, false)
	s.Require().NoError(err)
	f.artistA, err = testdb.SeedUser(ctx, s.db.Pool, true)
	s.Require().NoError(err)
	f.artistB, err = testdb.SeedUser(ctx, s.db.Pool, true)
	s.Require().NoError(err)
	f.p1, err = testdb.SeedProduct(ctx, s.db.Pool, f.artistA, "10.00", stock1)
	s.Require().NoError(err)
	f.p2, err = testdb.SeedProduct(ctx, s.db.Pool, f.artistB, "5.00", stock2)
	s.Require().NoError(err)

	return f
}

func newOrder(buyerID uuid.UUID, lines ...domain.OrderItem) *domain.Order {
	order := &domain.Order{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		PaymentStatus:  domain.PaymentStatusNotPaid,
		ShippingStatus: domain.ShippingStatusPending,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
	for _, l := range lines {
		l.ID = uuid.New()
		l.OrderID = order.ID
		order.Items = append(order.Items, l)
	}
	order.TotalPrice, _ = domain.SumItems(order.Items)
	return order
}

func itemOf(p *domain.Product, qty int) domain.OrderItem {
	return domain.OrderItem{ProductID: p.ID, SellerID: p.ArtistID, Quantity: qty, Price: p.Price}
}

func payFn(ctx context.Context, o *domain.Order, stock port.StockWriter) error {
	if o.ApplyPaymentEvent(domain.PaymentEventPaid) != domain.OutcomeApplied {
		return nil
	}
	for _, d := range o.StockDecrements() {
		if err := stock.DecrementStock(ctx, d.ProductID, d.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *repositorySuite) TestCreateAndGetOrder() {
	t := s.T()
	ctx := context.Background()
	f := s.seed(5, 5)

	order := newOrder(f.buyer.ID, itemOf(f.p1, 2), itemOf(f.p2, 1))
	assert.Equal(t, "25.00", order.TotalPrice.String())

	_, err := s.repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	got, err := s.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(order, got, orderCmpOpts...); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func (s *repositorySuite) TestCreateOrderIsAtomic() {
	t := s.T()
	ctx := context.Background()
	f := s.seed(5, 5)

	missing := domain.OrderItem{ProductID: uuid.New(), SellerID: f.artistA.ID, Quantity: 1, Price: decimal.One}
	order := newOrder(f.buyer.ID, itemOf(f.p1, 1), missing)

	_, err := s.repo.CreateOrder(ctx, order)
	assert.ErrorIs(t, err, domain.ErrDataNotFound)

	_, err = s.repo.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}

func (s *repositorySuite) TestListOrders() {
	t := s.T()
	ctx := context.Background()
	f := s.seed(5, 5)

	older := newOrder(f.buyer.ID, itemOf(f.p1, 1))
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := newOrder(f.buyer.ID, itemOf(f.p1, 1), itemOf(f.p2, 2))

	for _, o := range []*domain.Order{older, newer} {
		_, err := s.repo.CreateOrder(ctx, o)
		require.NoError(t, err)
	}

	list, err := s.repo.ListOrdersByBuyer(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Len(t, list[0].Items, 2)

	list, err = s.repo.ListOrdersBySeller(ctx, f.artistB.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	list, err = s.repo.ListOrdersByBuyer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func (s *repositorySuite) TestUpdateOrderDecrementsStock() {
	t := s.T()
	ctx := context.Background()
	f := s.seed(5, 5)

	order := newOrder(f.buyer.ID, itemOf(f.p1, 2), itemOf(f.p2, 1))
	_, err := s.repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	for range 2 {
		updated, err := s.repo.UpdateOrder(ctx, order.ID, payFn)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, updated.PaymentStatus)
		assert.Equal(t, domain.ShippingStatusProcessing, updated.ShippingStatus)
	}

	stock, err := testdb.ProductStock(ctx, s.db.Pool, f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
	stock, err = testdb.ProductStock(ctx, s.db.Pool, f.p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stock)
}

func (s *repositorySuite) TestUpdateOrderRollsBackOnUnderflow() {
	t := s.T()
	ctx := context.Background()
	f := s.seed(5, 0)

	order := newOrder(f.buyer.ID, itemOf(f.p1, 2), itemOf(f.p2, 1))
	_, err := s.repo.CreateOrder(ctx, order)
	require.NoError(t, err)

	_, err = s.repo.UpdateOrder(ctx, order.ID, payFn)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := s.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusNotPaid, got.PaymentStatus)

	stock, err := testdb.ProductStock(ctx, s.db.Pool, f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stock)
}

func (s *repositorySuite) TestConcurrentPaymentsForLastItem() {
	t := s.T()
	ctx := context.Background()
	f := s.seed(1, 5)

	first := newOrder(f.buyer.ID, itemOf(f.p1, 1))
	second := newOrder(f.buyer.ID, itemOf(f.p1, 1))
	for _, o := range []*domain.Order{first, second} {
		_, err := s.repo.CreateOrder(ctx, o)
		require.NoError(t, err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, o := range []*domain.Order{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.repo.UpdateOrder(ctx, o.ID, payFn)
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	stock, err := testdb.ProductStock(ctx, s.db.Pool, f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock)
}

func (s *repositorySuite) TestUpdateOrderUnknown() {
	_, err := s.repo.UpdateOrder(context.Background(), uuid.New(), payFn)
	s.ErrorIs(err, domain.ErrDataNotFound)
}

func (s *repositorySuite) TestProductsAndUsers() {
	t := s.T()
	ctx := context.Background()
	f := s.seed(5, 5)

	list, err := s.repo.GetProducts(ctx, []uuid.UUID{f.p1.ID, f.p2.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.repo.UpdateGatewayRefs(ctx, f.p1.ID, "prod_1", "price_1"))
	p, err := s.repo.GetProduct(ctx, f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "prod_1", p.ExternalProductRef)
	assert.Equal(t, "price_1", p.ExternalPriceRef)
	assert.Equal(t, f.artistA.Email, p.ArtistEmail)

	assert.ErrorIs(t, s.repo.UpdateGatewayRefs(ctx, uuid.New(), "x", "y"), domain.ErrDataNotFound)

	u, err := s.repo.GetUser(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, f.buyer.Email, u.Email)

	users, err := s.repo.GetUsers(ctx, []uuid.UUID{f.artistA.ID, f.artistB.ID})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = s.repo.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}

func (s *repositorySuite) TestCreateReview() {
	err := s.repo.CreateReview(context.Background(), &domain.PaymentReview{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		EventID:   "evt_1",
		EventType: domain.EventCheckoutCompleted,
		Reason:    "insufficient product stock",
		CreatedAt: time.Now().UTC(),
	})
	s.NoError(err)
}
