package purchases

import (
	"context"
	"fmt"
	"math"
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
	suppliers map[int64]bool
	stocks    map[int64]*stockRow
	costs     map[int64]stock.CostState
	purchases map[int64]Purchase
	nextID    int64
	nextLine  int64
}

func newFakeStore(clientID uuid.UUID) *fakeStore {
	return &fakeStore{
		clientID:  clientID,
		suppliers: map[int64]bool{},
		stocks:    map[int64]*stockRow{},
		costs:     map[int64]stock.CostState{},
		purchases: map[int64]Purchase{},
		nextID:    1,
		nextLine:  1,
	}
}

func (f *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore(f.clientID)
	cp.nextID, cp.nextLine = f.nextID, f.nextLine
	for k, v := range f.suppliers {
		cp.suppliers[k] = v
	}
	for k, v := range f.stocks {
		row := *v
		cp.stocks[k] = &row
	}
	for k, v := range f.costs {
		cp.costs[k] = v
	}
	for k, v := range f.purchases {
		p := v
		p.Lines = append([]Line(nil), v.Lines...)
		cp.purchases[k] = p
	}
	return cp
}

func (f *fakeStore) restore(snap *fakeStore) {
	f.suppliers = snap.suppliers
	f.stocks = snap.stocks
	f.costs = snap.costs
	f.purchases = snap.purchases
	f.nextID, f.nextLine = snap.nextID, snap.nextLine
}

// WithTx mimics an all-or-nothing transaction by restoring a snapshot on error.
func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	snap := f.snapshot()
	if err := fn(ctx, &fakeTx{store: f}); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, clientID uuid.UUID, id int64) (Purchase, error) {
	p, ok := f.purchases[id]
	if !ok || clientID != f.clientID {
		return Purchase{}, fmt.Errorf("%w: purchase %d", httpx.ErrNotFound, id)
	}
	return p, nil
}

func (f *fakeStore) List(_ context.Context, clientID uuid.UUID, _ shared.Pagination, includeInactive bool) ([]Purchase, error) {
	var out []Purchase
	for id := int64(1); id < f.nextID; id++ {
		p, ok := f.purchases[id]
		if !ok || clientID != f.clientID {
			continue
		}
		if !includeInactive && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) InsertHeader(_ context.Context, p Purchase) (Purchase, error) {
	p.ID = t.store.nextID
	t.store.nextID++
	p.IsActive = true
	t.store.purchases[p.ID] = p
	return p, nil
}

func (t *fakeTx) InsertLine(_ context.Context, line Line) (Line, error) {
	line.ID = t.store.nextLine
	t.store.nextLine++
	line.IsActive = true
	p := t.store.purchases[line.PurchaseID]
	p.Lines = append(p.Lines, line)
	t.store.purchases[line.PurchaseID] = p
	return line, nil
}

func (t *fakeTx) LoadActive(_ context.Context, clientID uuid.UUID, id int64) (Purchase, error) {
	p, ok := t.store.purchases[id]
	if !ok || clientID != t.store.clientID || !p.IsActive {
		return Purchase{}, fmt.Errorf("%w: active purchase %d", httpx.ErrNotFound, id)
	}
	return p, nil
}

func (t *fakeTx) Deactivate(_ context.Context, clientID uuid.UUID, id int64) error {
	p, ok := t.store.purchases[id]
	if !ok || clientID != t.store.clientID || !p.IsActive {
		return fmt.Errorf("%w: active purchase %d", httpx.ErrNotFound, id)
	}
	p.IsActive = false
	for i := range p.Lines {
		p.Lines[i].IsActive = false
	}
	t.store.purchases[id] = p
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

func (t *fakeTx) SupplierExists(_ context.Context, clientID uuid.UUID, supplierID int64) (bool, error) {
	return clientID == t.store.clientID && t.store.suppliers[supplierID], nil
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
	if _, ok := l.store.costs[productID]; !ok {
		return stock.ErrProductNotFound
	}
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
	store.suppliers[7] = true
	store.stocks[100] = &stockRow{productID: 1, quantity: 0, price: 20}
	store.costs[1] = stock.CostState{BaseCost: 5, AverageCost: 5, TotalForAverageCost: 10}
	directory := &fakeDirectory{client: clients.Client{ID: clientID, MainCurrency: currency.USD}}
	svc := NewService(store, directory, nil, allowNegative)
	return store, svc, clientID
}

func TestCreateAppliesLedgerAndAccountant(t *testing.T) {
	store, svc, clientID := setup(t, true)

	created, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.USD,
		Lines: []LineInput{
			{StockID: 100, Quantity: 5, Amount: 8.00},
		},
	})
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.Equal(t, 40.00, created.Total)
	require.Len(t, created.Lines, 1)

	require.Equal(t, 5.0, store.stocks[100].quantity)
	cost := store.costs[1]
	require.Equal(t, 15.0, cost.TotalForAverageCost)
	require.Equal(t, 6.00, cost.AverageCost)
	require.Equal(t, 5.0, cost.BaseCost)
}

func TestCreateUpdatesBaseCostWhenFlagged(t *testing.T) {
	store, svc, clientID := setup(t, true)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.USD,
		Lines: []LineInput{
			{StockID: 100, Quantity: 2, Amount: 9.456, UpdateProductBaseCost: true},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 9.46, store.costs[1].BaseCost)
}

func TestCreateConvertsForeignCurrencyAmounts(t *testing.T) {
	store, svc, clientID := setup(t, true)

	// Rate anchored on the transaction currency: 2 EUR per USD, so a 8 EUR
	// unit cost is 4 USD in main currency.
	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.EUR,
		Exchange:   currency.Exchange{From: currency.EUR, To: currency.USD, Rate: 2},
		Lines: []LineInput{
			{StockID: 100, Quantity: 5, Amount: 8.00},
		},
	})
	require.NoError(t, err)

	// (10*5 + 5*4) / 15
	require.Equal(t, 4.67, store.costs[1].AverageCost)
}

func TestCreateRejectsIncompleteExchange(t *testing.T) {
	store, svc, clientID := setup(t, true)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.EUR,
		Lines:      []LineInput{{StockID: 100, Quantity: 1, Amount: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 0.0, store.stocks[100].quantity)
}

func TestCreateUnknownSupplier(t *testing.T) {
	_, svc, clientID := setup(t, true)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 99,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 1, Amount: 1}},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Contains(t, err.Error(), "supplier")
}

func TestCreateReportsUnresolvedSKUCount(t *testing.T) {
	_, svc, clientID := setup(t, true)

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.USD,
		Lines: []LineInput{
			{StockID: 100, Quantity: 1, Amount: 1},
			{StockID: 666, Quantity: 1, Amount: 1},
			{StockID: 667, Quantity: 1, Amount: 1},
		},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Contains(t, err.Error(), "2 sku(s)")
}

func TestCreateRollsBackOnLineFailure(t *testing.T) {
	store, svc, clientID := setup(t, true)
	// Second line's product row is missing from the cost table, so the
	// accountant fails after the first line already mutated state.
	store.stocks[101] = &stockRow{productID: 2, quantity: 0}

	_, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.USD,
		Lines: []LineInput{
			{StockID: 100, Quantity: 5, Amount: 8},
			{StockID: 101, Quantity: 1, Amount: 1},
		},
	})
	require.Error(t, err)
	require.Equal(t, 0.0, store.stocks[100].quantity)
	require.Equal(t, 5.0, store.costs[1].AverageCost)
	require.Empty(t, store.purchases)
}

func TestDeleteReversesCreateExactly(t *testing.T) {
	store, svc, clientID := setup(t, true)
	before := store.costs[1]

	created, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.USD,
		Lines: []LineInput{
			{StockID: 100, Quantity: 5, Amount: 8.00},
			{StockID: 100, Quantity: 3, Amount: 7.25},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 8.0, store.stocks[100].quantity)

	deleted, err := svc.Delete(context.Background(), actorFor(clientID), created.ID)
	require.NoError(t, err)
	require.False(t, deleted.IsActive)
	for _, l := range deleted.Lines {
		require.False(t, l.IsActive)
	}

	require.Equal(t, 0.0, store.stocks[100].quantity)
	after := store.costs[1]
	require.Equal(t, before.TotalForAverageCost, after.TotalForAverageCost)
	require.InDelta(t, before.AverageCost, after.AverageCost, 0.05)

	// Still queryable, just inactive.
	kept, err := svc.GetByID(context.Background(), clientID, created.ID)
	require.NoError(t, err)
	require.False(t, kept.IsActive)
}

func TestDeleteTwiceFails(t *testing.T) {
	_, svc, clientID := setup(t, true)

	created, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 1, Amount: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Delete(context.Background(), actorFor(clientID), created.ID)
	require.NoError(t, err)
	_, err = svc.Delete(context.Background(), actorFor(clientID), created.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteHonoursNegativeStockPolicy(t *testing.T) {
	store, svc, clientID := setup(t, false)

	created, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
		SupplierID: 7,
		Currency:   currency.USD,
		Lines:      []LineInput{{StockID: 100, Quantity: 5, Amount: 8}},
	})
	require.NoError(t, err)

	// Someone consumed the purchased units; reversing would go negative.
	store.stocks[100].quantity = 2

	_, err = svc.Delete(context.Background(), actorFor(clientID), created.ID)
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.Equal(t, 2.0, store.stocks[100].quantity)

	kept, err := svc.GetByID(context.Background(), clientID, created.ID)
	require.NoError(t, err)
	require.True(t, kept.IsActive)
}

func TestRepeatedCreateDeleteCyclesDriftStaysBounded(t *testing.T) {
	store, svc, clientID := setup(t, true)
	start := store.costs[1]

	for i := 0; i < 25; i++ {
		created, err := svc.Create(context.Background(), actorFor(clientID), CreateInput{
			SupplierID: 7,
			Currency:   currency.USD,
			Lines:      []LineInput{{StockID: 100, Quantity: 3, Amount: 7.77}},
		})
		require.NoError(t, err)
		_, err = svc.Delete(context.Background(), actorFor(clientID), created.ID)
		require.NoError(t, err)
	}

	end := store.costs[1]
	require.Equal(t, start.TotalForAverageCost, end.TotalForAverageCost)
	require.LessOrEqual(t, math.Abs(end.AverageCost-start.AverageCost), 0.10)
}
