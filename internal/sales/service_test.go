package sales

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/enstockapp/mono-stock/internal/clients"
	"github.com/enstockapp/mono-stock/internal/currency"
	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/stock"
)

type stockRow struct {
	productID int64
	quantity  float64
	price     float64
}

type fakeStore struct {
	clientID  uuid.UUID
	customers map[int64]bool
	stocks    map[int64]*stockRow
	costs     map[int64]stock.CostState
	sales     map[int64]Sale
	nextID    int64
	nextLine  int64
}

func newFakeStore(clientID uuid.UUID) *fakeStore {
	return &fakeStore{
		clientID:  clientID,
		customers: map[int64]bool{},
		stocks:    map[int64]*stockRow{},
		costs:     map[int64]stock.CostState{},
		sales:     map[int64]Sale{},
		nextID:    1,
		nextLine:  1,
	}
}

func (f *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore(f.clientID)
	cp.nextID, cp.nextLine = f.nextID, f.nextLine
	for k, v := range f.customers {
		cp.customers[k] = v
	}
	for k, v := range f.stocks {
		row := *v
		cp.stocks[k] = &row
	}
	for k, v := range f.costs {
		cp.costs[k] = v
	}
	for k, v := range f.sales {
		s := v
		s.Lines = append([]Line(nil), v.Lines...)
		cp.sales[k] = s
	}
	return cp
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	snap := f.snapshot()
	if err := fn(ctx, &fakeTx{store: f}); err != nil {
		f.customers, f.stocks, f.costs, f.sales = snap.customers, snap.stocks, snap.costs, snap.sales
		f.nextID, f.nextLine = snap.nextID, snap.nextLine
		return err
	}
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, clientID uuid.UUID, id int64) (Sale, error) {
	s, ok := f.sales[id]
	if !ok || clientID != f.clientID {
		return Sale{}, fmt.Errorf("%w: sale %d", httpx.ErrNotFound, id)
	}
	return s, nil
}

func (f *fakeStore) List(_ context.Context, clientID uuid.UUID, _ shared.Pagination, includeInactive bool) ([]Sale, error) {
	var out []Sale
	for id := int64(1); id < f.nextID; id++ {
		s, ok := f.sales[id]
		if !ok || clientID != f.clientID {
			continue
		}
		if !includeInactive && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) InsertHeader(_ context.Context, s Sale) (Sale, error) {
	s.ID = t.store.nextID
	t.store.nextID++
	s.IsActive = true
	t.store.sales[s.ID] = s
	return s, nil
}

func (t *fakeTx) InsertLine(_ context.Context, line Line) (Line, error) {
	line.ID = t.store.nextLine
	t.store.nextLine++
	line.IsActive = true
	s := t.store.sales[line.SaleID]
	s.Lines = append(s.Lines, line)
	t.store.sales[line.SaleID] = s
	return line, nil
}

func (t *fakeTx) LoadActive(_ context.Context, clientID uuid.UUID, id int64) (Sale, error) {
	s, ok := t.store.sales[id]
	if !ok || clientID != t.store.clientID || !s.IsActive {
		return Sale{}, fmt.Errorf("%w: active sale %d", httpx.ErrNotFound, id)
	}
	return s, nil
}

func (t *fakeTx) Deactivate(_ context.Context, clientID uuid.UUID, id int64) error {
	s, ok := t.store.sales[id]
	if !ok || clientID != t.store.clientID || !s.IsActive {
		return fmt.Errorf("%w: active sale %d", httpx.ErrNotFound, id)
	}
	s.IsActive = false
	for i := range s.Lines {
		s.Lines[i].IsActive = false
	}
	t.store.sales[id] = s
	return nil
}

func (t *fakeTx) ResolveSKUs(_ context.Context, clientID uuid.UUID, stockIDs []int64) (map[int64]SKU, error) {
	resolved := map[int64]SKU{}
	if clientID != t.store.clientID {
		return resolved, nil
	}
	for _, id := range stockIDs {
		if row, ok := t.store.stocks[id]; ok {
			resolved[id] = SKU{StockID: id, ProductID: row.productID, Price: row.price}
		}
	}
	return resolved, nil
}

func (t *fakeTx) CustomerExists(_ context.Context, clientID uuid.UUID, customerID int64) (bool, error) {
	return clientID == t.store.clientID && t.store.customers[customerID], nil
}

func (t *fakeTx) Ledger() stock.TxLedger {
	return &fakeLedger{store: t.store}
}

type fakeLedger struct {
	store *fakeStore
}

func (l *fakeLedger) ApplyDelta(_ context.Context, stockID int64, quantity float64, dir stock.Direction) (stock.StockLevel, error) {
	row, ok := l.store.stocks[stockID]
	if !ok {
		return stock.StockLevel{}, stock.ErrStockNotFound
	}
	row.quantity += stock.SignedDelta(quantity, dir)
	return stock.StockLevel{StockID: stockID, ProductID: row.productID, Quantity: row.quantity}, nil
}

func (l *fakeLedger) GetProductCostForUpdate(_ context.Context, productID int64) (stock.CostState, error) {
	state, ok := l.store.costs[productID]
	if !ok {
		return stock.CostState{}, stock.ErrProductNotFound
	}
	return state, nil
}

func (l *fakeLedger) UpdateProductCost(_ context.Context, productID int64, state stock.CostState) error {
	l.store.costs[productID] = state
	return nil
}

type fakeDirectory struct {
	client clients.Client
}

func (f *fakeDirectory) Get(_ context.Context, id uuid.UUID) (clients.Client, error) {
	if id != f.client.ID {
		return clients.Client{}, fmt.Errorf("%w: client %s", httpx.ErrNotFound, id)
	}
	return f.client, nil
}

func actorFor(clientID uuid.UUID) shared.Actor {
	return shared.Actor{UserID: 1, ClientID: clientID}
}

func setup(t *testing.T, allowNegative bool) (*fakeStore, *Service, uuid.UUID) {
	t.Helper()
	clientID := uuid.New()
	store := newFakeStore(clientID)
	store.customers[4] = true
	store.stocks[100] = &stockRow{productID: 1, quantity: 10, price: 19.99}
	store.costs[1] = stock.CostState{BaseCost: 5, AverageCost: 5, TotalForAverageCost: 10}
	directory := &fakeDirectory{client: clients.Client{ID: clientID, MainCurrency: currency.USD}}
	svc := NewService(store, directory, nil, allowNegative)
	return store, svc, clientID
}

func TestCreatePricesLinesAtProductPrice(t *testing.T) {
	store, svc, clientID := setup(t, false)

	created, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, created.Lines, 1)
	require.Equal(t, 19.99, created.Lines[0].Amount)
	require.Equal(t, 39.98, created.Total)
	require.Equal(t, 8.0, store.stocks[100].quantity)
}

func TestCreateNeverTouchesCostTriad(t *testing.T) {
	store, svc, clientID := setup(t, false)
	before := store.costs[1]

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, before, store.costs[1])
}

func TestCreateRejectsOversellWhenPolicyForbids(t *testing.T) {
	store, svc, clientID := setup(t, false)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 11}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 10.0, store.stocks[100].quantity)
	require.Empty(t, store.sales)
}

func TestCreateAllowsOversellWhenPolicyPermits(t *testing.T) {
	store, svc, clientID := setup(t, true)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 11}},
	})
	require.NoError(t, err)
	require.Equal(t, -1.0, store.stocks[100].quantity)
}

func TestCreateUnknownCustomer(t *testing.T) {
	_, svc, clientID := setup(t, false)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 99,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Contains(t, err.Error(), "customer")
}

func TestCreateReportsUnresolvedSKUCount(t *testing.T) {
	_, svc, clientID := setup(t, false)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines: []LineInput{
			{StockID: 100, Quantity: 1},
			{StockID: 777, Quantity: 1},
		},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Contains(t, err.Error(), "1 sku(s)")
}

func TestCreateRejectsIncompleteExchange(t *testing.T) {
	_, svc, clientID := setup(t, false)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.EUR,
		Lines:      []LineInput{{StockID: 100, Quantity: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteRestoresQuantityExactly(t *testing.T) {
	store, svc, clientID := setup(t, false)

	created, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines: []LineInput{
			{StockID: 100, Quantity: 2},
			{StockID: 100, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 5.0, store.stocks[100].quantity)

	deleted, err := svc.Delete(context.Background(), actorFor(clientID), created.ID)
	require.NoError(t, err)
	require.False(t, deleted.IsActive)
	require.Equal(t, 10.0, store.stocks[100].quantity)

	_, err = svc.Delete(context.Background(), actorFor(clientID), created.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListFiltersInactiveByDefault(t *testing.T) {
	_, svc, clientID := setup(t, false)

	first, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), actorFor(clientID), CreateInput{
		CustomerID: 4,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), actorFor(clientID), first.ID)
	require.NoError(t, err)

	active, err := svc.List(context.Background(), clientID, shared.Pagination{}, false)
	require.NoError(t, err)
	require.Len(t, active, 1)

	all, err := svc.List(context.Background(), clientID, shared.Pagination{}, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
