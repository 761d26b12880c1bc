package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/microshop/internal/event"
	"github.com/xenking/microshop/internal/identity"
)

// --- Mock implementations ---

type mockStore struct {
	nextID    int64
	created   []*Order
	lines     map[int64][]Line
	totals    map[int64]decimal.Decimal
	statuses  map[int64]Status
	byID      map[int64]*Order
	createErr error
	appendErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		lines:    make(map[int64][]Line),
		totals:   make(map[int64]decimal.Decimal),
		statuses: make(map[int64]Status),
		byID:     make(map[int64]*Order),
	}
}

func (m *mockStore) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	o.ID = m.nextID
	m.created = append(m.created, o)
	m.statuses[o.ID] = o.Status
	return nil
}

func (m *mockStore) AppendLine(_ context.Context, orderID int64, l Line) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.lines[orderID] = append(m.lines[orderID], l)
	return nil
}

func (m *mockStore) SetTotal(_ context.Context, orderID int64, total decimal.Decimal) error {
	m.totals[orderID] = total
	return nil
}

func (m *mockStore) SetStatus(_ context.Context, orderID int64, st Status) error {
	m.statuses[orderID] = st
	return nil
}

func (m *mockStore) GetForUser(_ context.Context, orderID, userID int64) (*Order, error) {
	o, ok := m.byID[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

type mockPrices struct {
	byID map[int64]decimal.Decimal
	errs map[int64]error
}

func (m *mockPrices) UnitPrice(_ context.Context, productID int64) (decimal.Decimal, error) {
	if err, ok := m.errs[productID]; ok {
		return decimal.Zero, err
	}
	price, ok := m.byID[productID]
	if !ok {
		return decimal.Zero, errors.Errorf("no price for product %d", productID)
	}
	return price, nil
}

type mockPublisher struct {
	published []event.Envelope
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, env event.Envelope) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, env)
	return nil
}

// --- Helpers ---

var buyer = identity.Identity{UserID: 7, Email: "buyer@example.com"}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPrices(pairs map[int64]string) *mockPrices {
	byID := make(map[int64]decimal.Decimal, len(pairs))
	for id, p := range pairs {
		byID[id] = price(p)
	}
	return &mockPrices{byID: byID, errs: make(map[int64]error)}
}

// --- Create ---

func TestCreate_EmptyCart(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, newPrices(nil), &mockPublisher{})

	_, err := svc.Create(context.Background(), buyer, nil)

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, store.created, "empty cart must not touch the store")
}

func TestCreate_TotalAcrossLines(t *testing.T) {
	store := newMockStore()
	prices := newPrices(map[int64]string{1: "6.50", 2: "7.00"})
	svc := NewService(store, prices, &mockPublisher{})

	o, err := svc.Create(context.Background(), buyer, []CartLine{
		{ProductID: 1, Qty: 2},
		{ProductID: 2, Qty: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCreated, o.Status)
	assert.True(t, price("20.00").Equal(o.Total), "got total %s", o.Total)
	require.Len(t, o.Lines, 2)
	assert.True(t, price("6.50").Equal(o.Lines[0].UnitPrice))
	assert.True(t, price("20.00").Equal(store.totals[o.ID]), "total must be persisted")
}

func TestCreate_DuplicateProductsKeptAsSeparateLines(t *testing.T) {
	store := newMockStore()
	prices := newPrices(map[int64]string{1: "3.00"})
	svc := NewService(store, prices, &mockPublisher{})

	o, err := svc.Create(context.Background(), buyer, []CartLine{
		{ProductID: 1, Qty: 1},
		{ProductID: 1, Qty: 2},
	})

	require.NoError(t, err)
	require.Len(t, o.Lines, 2)
	assert.True(t, price("9.00").Equal(o.Total))
}

func TestCreate_InvalidQuantity(t *testing.T) {
	store := newMockStore()
	prices := newPrices(map[int64]string{1: "6.50"})
	svc := NewService(store, prices, &mockPublisher{})

	_, err := svc.Create(context.Background(), buyer, []CartLine{
		{ProductID: 1, Qty: 0},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, int64(1), iqErr.ProductID)
	// The order row itself was already committed before validation of the line.
	assert.Len(t, store.created, 1)
	assert.Empty(t, store.lines[1])
}

func TestCreate_PricingFailureKeepsCommittedLines(t *testing.T) {
	store := newMockStore()
	prices := newPrices(map[int64]string{1: "6.50"})
	prices.errs[2] = errors.New("upstream down")
	svc := NewService(store, prices, &mockPublisher{})

	_, err := svc.Create(context.Background(), buyer, []CartLine{
		{ProductID: 1, Qty: 1},
		{ProductID: 2, Qty: 1},
		{ProductID: 1, Qty: 3},
	})

	require.Error(t, err)
	require.Len(t, store.created, 1)
	orderID := store.created[0].ID

	// The first line committed before the failure stays; nothing after the
	// failing line was attempted, and the total was never finalized.
	require.Len(t, store.lines[orderID], 1)
	assert.Equal(t, int64(1), store.lines[orderID][0].ProductID)
	_, finalized := store.totals[orderID]
	assert.False(t, finalized, "total must not be finalized after a pricing failure")
	assert.Equal(t, StatusCreated, store.statuses[orderID])
}

func TestCreate_StoreCreateFailure(t *testing.T) {
	store := newMockStore()
	store.createErr = errors.New("db down")
	svc := NewService(store, newPrices(map[int64]string{1: "6.50"}), &mockPublisher{})

	_, err := svc.Create(context.Background(), buyer, []CartLine{{ProductID: 1, Qty: 1}})
	require.Error(t, err)
}

func TestCreate_TotalRoundedToCents(t *testing.T) {
	store := newMockStore()
	prices := newPrices(map[int64]string{1: "3.333"})
	svc := NewService(store, prices, &mockPublisher{})

	o, err := svc.Create(context.Background(), buyer, []CartLine{{ProductID: 1, Qty: 3}})

	require.NoError(t, err)
	// 3 x 3.333 = 9.999 -> 10.00
	assert.Equal(t, "10.00", o.Total.StringFixed(2))
}

// --- Pay ---

func TestPay_CreatedToPaid(t *testing.T) {
	store := newMockStore()
	store.byID[42] = &Order{ID: 42, UserID: buyer.UserID, UserEmail: buyer.Email, Status: StatusCreated, Total: price("20.00")}
	pub := &mockPublisher{}
	svc := NewService(store, newPrices(nil), pub)

	o, err := svc.Pay(context.Background(), buyer, 42)

	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, StatusPaid, store.statuses[42])

	require.Len(t, pub.published, 1)
	assert.Equal(t, event.TypePaymentSucceeded, pub.published[0].Type)

	payload, err := event.DecodePaymentSucceeded(pub.published[0])
	require.NoError(t, err)
	assert.Equal(t, buyer.Email, payload.Email)
	assert.Equal(t, int64(42), payload.OrderID)
	assert.True(t, price("20.00").Equal(payload.Total))
}

func TestPay_AlreadyPaidIsIdempotent(t *testing.T) {
	store := newMockStore()
	store.byID[42] = &Order{ID: 42, UserID: buyer.UserID, Status: StatusPaid, Total: price("20.00")}
	pub := &mockPublisher{}
	svc := NewService(store, newPrices(nil), pub)

	o, err := svc.Pay(context.Background(), buyer, 42)

	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Empty(t, pub.published, "repeated pay must not re-publish")
}

func TestPay_CancelledRejected(t *testing.T) {
	store := newMockStore()
	store.byID[42] = &Order{ID: 42, UserID: buyer.UserID, Status: StatusCancelled}
	svc := NewService(store, newPrices(nil), &mockPublisher{})

	_, err := svc.Pay(context.Background(), buyer, 42)

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusCancelled, itErr.Current)
}

func TestPay_PublishFailureDoesNotFailPayment(t *testing.T) {
	store := newMockStore()
	store.byID[42] = &Order{ID: 42, UserID: buyer.UserID, UserEmail: buyer.Email, Status: StatusCreated}
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := NewService(store, newPrices(nil), pub)

	o, err := svc.Pay(context.Background(), buyer, 42)

	require.NoError(t, err, "publish failure must not fail the payment")
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, StatusPaid, store.statuses[42])
}

func TestPay_OtherUsersOrder(t *testing.T) {
	store := newMockStore()
	store.byID[42] = &Order{ID: 42, UserID: 999, Status: StatusCreated}
	svc := NewService(store, newPrices(nil), &mockPublisher{})

	_, err := svc.Pay(context.Background(), buyer, 42)
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Get ---

func TestGet_ScopedToOwner(t *testing.T) {
	store := newMockStore()
	store.byID[42] = &Order{ID: 42, UserID: buyer.UserID, Status: StatusCreated}
	svc := NewService(store, newPrices(nil), &mockPublisher{})

	o, err := svc.Get(context.Background(), buyer, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), o.ID)

	_, err = svc.Get(context.Background(), identity.Identity{UserID: 8}, 42)
	require.ErrorIs(t, err, ErrNotFound)
}
