package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSource struct {
	calls    atomic.Int32
	products []domain.Product
	err      error
	delay    time.Duration
}

func (m *mockSource) ListProducts(context.Context) ([]domain.Product, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Latte", BasePrice: decimal.NewFromInt(55), Category: "Coffee"},
		{ID: "2", Name: "Thai Tea", BasePrice: decimal.NewFromInt(40), Category: "Tea"},
		{ID: "3", Name: "Mocha", BasePrice: decimal.NewFromInt(60), Category: "Coffee"},
		{ID: "4", Name: "Water", BasePrice: decimal.NewFromInt(10)},
	}
}

func TestProducts_CachesUntilTTL(t *testing.T) {
	src := &mockSource{products: sampleProducts()}
	c := New(src, time.Minute, zap.NewNop())
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Products(context.Background())
	require.NoError(t, err)
	_, err = c.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = c.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestProducts_ConcurrentMissesShareOneFetch(t *testing.T) {
	src := &mockSource{products: sampleProducts(), delay: 50 * time.Millisecond}
	c := New(src, time.Minute, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			products, err := c.Products(context.Background())
			assert.NoError(t, err)
			assert.Len(t, products, 4)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestProducts_FailureYieldsEmptyCatalog(t *testing.T) {
	src := &mockSource{err: errors.New("connection refused")}
	c := New(src, time.Minute, zap.NewNop())

	products, err := c.Products(context.Background())

	assert.Error(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProduct_Lookup(t *testing.T) {
	c := New(&mockSource{products: sampleProducts()}, time.Minute, zap.NewNop())

	p, err := c.Product(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Thai Tea", p.Name)

	_, err = c.Product(context.Background(), "99")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	src := &mockSource{products: sampleProducts()}
	c := New(src, time.Hour, zap.NewNop())

	_, _ = c.Products(context.Background())
	c.Invalidate()
	_, _ = c.Products(context.Background())

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCategoriesAndFilter(t *testing.T) {
	products := sampleProducts()

	assert.Equal(t, []string{"Coffee", "Tea"}, Categories(products))
	assert.Len(t, FilterByCategory(products, ""), 4)
	assert.Len(t, FilterByCategory(products, "All"), 4)

	coffee := FilterByCategory(products, "Coffee")
	require.Len(t, coffee, 2)
	assert.Equal(t, "Latte", coffee[0].Name)
	assert.Equal(t, "Mocha", coffee[1].Name)

	assert.Empty(t, FilterByCategory(products, "Bakery"))
	assert.Equal(t, "Tea", CategoryIndex(products)["2"])
}

// gatedSource blocks ListProducts until release is closed.
type gatedSource struct {
	calls    atomic.Int32
	started  chan struct{}
	release  chan struct{}
	products []domain.Product
	fetchErr atomic.Value
}

func newGatedSource(products []domain.Product) *gatedSource {
	return &gatedSource{started: make(chan struct{}), release: make(chan struct{}), products: products}
}

func (g *gatedSource) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		g.fetchErr.Store(err)
		return nil, err
	}
	return g.products, nil
}

func TestProducts_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := newGatedSource(sampleProducts())
	c := New(src, time.Minute, zap.NewNop())

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Products(leaderCtx)
		leaderErr <- err
	}()
	<-src.started

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared fetch")
	}

	type result struct {
		products []domain.Product
		err      error
	}
	follower := make(chan result, 1)
	go func() {
		products, err := c.Products(context.Background())
		follower <- result{products, err}
	}()
	close(src.release)

	select {
	case res := <-follower:
		require.NoError(t, res.err)
		assert.Len(t, res.products, 4)
	case <-time.After(time.Second):
		t.Fatal("live caller did not get the catalog")
	}
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Nil(t, src.fetchErr.Load())
}
