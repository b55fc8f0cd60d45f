package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshopd/ordering/internal/ordering/domain"
	"github.com/eshopd/ordering/internal/ordering/outbox"
	"github.com/eshopd/ordering/internal/ordering/unitofwork"
)

// memRepo stores snapshots and doubles as the transaction store, committing
// saved aggregates back into itself.
type memRepo struct {
	snaps map[string]domain.Snapshot
}

func newMemRepo() *memRepo {
	return &memRepo{snaps: make(map[string]domain.Snapshot)}
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	snap, ok := r.snaps[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "order", ID: id}
	}
	return domain.Reconstruct(snap), nil
}

func (r *memRepo) GetByCustomerID(_ context.Context, customerID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, snap := range r.snaps {
		if snap.CustomerID == customerID {
			out = append(out, domain.Reconstruct(snap))
		}
	}
	return out, nil
}

func (r *memRepo) GetByStatus(_ context.Context, status domain.Status) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, snap := range r.snaps {
		if snap.Status == status {
			out = append(out, domain.Reconstruct(snap))
		}
	}
	return out, nil
}

func (r *memRepo) Begin(context.Context) (unitofwork.Tx, error) {
	return &memTx{repo: r, staged: make(map[string]domain.Snapshot)}, nil
}

type memTx struct {
	repo    *memRepo
	staged  map[string]domain.Snapshot
	saveErr error
}

func (t *memTx) SaveOrder(_ context.Context, order *domain.Order) error {
	if t.saveErr != nil {
		return t.saveErr
	}
	snap := order.Snapshot()
	t.staged[snap.ID] = snap
	return nil
}

func (t *memTx) AppendOutbox(context.Context, outbox.Row) error { return nil }

func (t *memTx) Commit(context.Context) error {
	for id, snap := range t.staged {
		t.repo.snaps[id] = snap
	}
	return nil
}

func (t *memTx) Rollback(context.Context) error { return nil }

type memCache struct {
	values map[string]string
	getErr error
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.values[key] = fmt.Sprint(value)
	return nil
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.values[key], nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	delete(c.values, key)
	return nil
}

func (c *memCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}

func newTestService(t *testing.T) (*Service, *memRepo, *memCache) {
	t.Helper()
	repo := newMemRepo()
	c := newMemCache()
	logger := slog.New(slog.DiscardHandler)
	dispatcher := unitofwork.NewDispatcher(logger)
	factory := func() *unitofwork.UnitOfWork {
		return unitofwork.New(repo, dispatcher, logger)
	}
	return NewService(repo, factory, c, logger), repo, c
}

func createOrder(t *testing.T, svc *Service) OrderView {
	t.Helper()
	view, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Actor:           "alice",
		CustomerID:      "cust-1",
		ShippingAddress: "1 Ship St",
		BillingAddress:  "2 Bill Ave",
		PaymentMethod:   "card",
		CustomerEmail:   "alice@example.com",
	})
	require.NoError(t, err)
	return view
}

func TestCreateOrderPersists(t *testing.T) {
	svc, repo, _ := newTestService(t)

	view := createOrder(t, svc)
	assert.Equal(t, string(domain.StatusInitial), view.Status)

	_, ok := repo.snaps[view.ID]
	assert.True(t, ok)
}

func TestCreateOrderValidationIsNotPersisted(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{Actor: "alice"})
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, repo.snaps)
}

func TestAddItemAndLifecycle(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	view := createOrder(t, svc)

	require.NoError(t, svc.AddItem(ctx, AddItemCommand{
		Actor:         "alice",
		OrderID:       view.ID,
		CatalogItemID: "sku-1",
		ProductName:   "Keyboard",
		UnitPrice:     50,
		Quantity:      2,
	}))
	assert.Equal(t, domain.StatusPending, repo.snaps[view.ID].Status)

	require.NoError(t, svc.Submit(ctx, "alice", view.ID))
	require.NoError(t, svc.MarkAsShipped(ctx, "alice", view.ID))
	require.NoError(t, svc.MarkAsDelivered(ctx, "alice", view.ID))
	assert.Equal(t, domain.StatusDelivered, repo.snaps[view.ID].Status)

	err := svc.Cancel(ctx, "alice", view.ID, "too late")
	assert.True(t, domain.IsStateConflict(err))
}

func TestMutateUnknownOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Submit(context.Background(), "alice", "missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestDomainErrorLeavesStoreUntouched(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	view := createOrder(t, svc)
	before := repo.snaps[view.ID]

	// Submitting without items fails in the domain, before any save.
	err := svc.Submit(ctx, "alice", view.ID)
	assert.Error(t, err)
	assert.Equal(t, before, repo.snaps[view.ID])
}

func TestGetByIDCachesView(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()
	view := createOrder(t, svc)

	got, err := svc.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	key := c.GenerateKey("get_order", view.ID)
	cached, ok := c.values[key]
	require.True(t, ok)

	var cachedView OrderView
	require.NoError(t, json.Unmarshal([]byte(cached), &cachedView))
	assert.Equal(t, view.ID, cachedView.ID)

	// A poisoned cache entry is served back verbatim until invalidated.
	cachedView.Status = "FROM_CACHE"
	body, err := json.Marshal(cachedView)
	require.NoError(t, err)
	c.values[key] = string(body)

	got, err = svc.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "FROM_CACHE", got.Status)
}

func TestMutationInvalidatesCache(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()
	view := createOrder(t, svc)

	_, err := svc.GetByID(ctx, view.ID)
	require.NoError(t, err)
	key := c.GenerateKey("get_order", view.ID)
	require.Contains(t, c.values, key)

	require.NoError(t, svc.AddItem(ctx, AddItemCommand{
		Actor:         "alice",
		OrderID:       view.ID,
		CatalogItemID: "sku-1",
		ProductName:   "Keyboard",
		UnitPrice:     50,
		Quantity:      1,
	}))
	assert.NotContains(t, c.values, key)

	got, err := svc.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), got.Status)
	require.Len(t, got.Items, 1)
	assert.InDelta(t, 50, got.Items[0].Total, 1e-9)
}

func TestGetByIDSurvivesCacheOutage(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()
	view := createOrder(t, svc)

	c.getErr = errors.New("redis down")
	got, err := svc.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)
}

func TestQueries(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	first := createOrder(t, svc)
	createOrder(t, svc)

	require.NoError(t, svc.AddItem(ctx, AddItemCommand{
		Actor: "alice", OrderID: first.ID, CatalogItemID: "sku-1",
		ProductName: "Keyboard", UnitPrice: 50, Quantity: 1,
	}))

	byCustomer, err := svc.GetByCustomerID(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, byCustomer, 2)

	pending, err := svc.GetByStatus(ctx, domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
}
