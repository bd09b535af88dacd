package catalog

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrProductNotFound = errors.New("product not found")

// FetchTimeout bounds a shared backend fetch, which outlives the caller that started it.
const FetchTimeout = 15 * time.Second

// AllCategories is the category filter value that disables filtering.
const AllCategories = "all"

// ProductSource is the backend side of the catalog.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Catalog keeps a read-only snapshot of the backend's products for ttl.
type Catalog struct {
	source ProductSource
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	products  []domain.Product
	fetchedAt time.Time

	sfg singleflight.Group // one backend fetch per expired snapshot
}

func New(source ProductSource, ttl time.Duration, logger *zap.Logger) *Catalog {
	return &Catalog{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (c *Catalog) cached() ([]domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.products, true
}

// Products returns the current snapshot. When the backend cannot be reached the
// result is empty and the collaborator error is returned alongside it.
//
// Concurrent misses share one fetch. The fetch is detached from the caller that
// started it, so a caller that goes away only gives up its own wait.
func (c *Catalog) Products(ctx context.Context) ([]domain.Product, error) {
	if products, ok := c.cached(); ok {
		return slices.Clone(products), nil
	}

	ch := c.sfg.DoChan("products", func() (interface{}, error) {
		if products, ok := c.cached(); ok {
			return products, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()

		products, err := c.source.ListProducts(fetchCtx)
		if err != nil {
			c.logger.Warn("catalog fetch failed", zap.Error(err))
			return nil, err
		}

		c.mu.Lock()
		c.products = products
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return products, nil
	})

	select {
	case <-ctx.Done():
		return []domain.Product{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return []domain.Product{}, res.Err
		}
		return slices.Clone(res.Val.([]domain.Product)), nil
	}
}

func (c *Catalog) Product(ctx context.Context, id string) (domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

// Invalidate drops the snapshot so the next read goes to the backend.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.fetchedAt = time.Time{}
}

// Categories returns the distinct non-empty categories, sorted.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories
}

// FilterByCategory keeps products of the given category. "" and AllCategories keep everything.
func FilterByCategory(products []domain.Product, category string) []domain.Product {
	if category == "" || strings.EqualFold(category, AllCategories) {
		return products
	}
	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// CategoryIndex maps product id to category.
func CategoryIndex(products []domain.Product) map[string]string {
	index := make(map[string]string, len(products))
	for _, p := range products {
		index[p.ID] = p.Category
	}
	return index
}
