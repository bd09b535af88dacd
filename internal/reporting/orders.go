package reporting

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Consumers define these interfaces.
type OrderSource interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
}

type ProductSource interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

// FetchTimeout bounds a shared order history fetch.
const FetchTimeout = 15 * time.Second

// Service serves the back-office views. Orders are cached for ttl since the backend
// returns the full history on every call.
type Service struct {
	orders   OrderSource
	products ProductSource
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
	loc      *time.Location

	mu        sync.RWMutex
	cached    []domain.Order
	fetchedAt time.Time

	sfg singleflight.Group
}

func NewService(orders OrderSource, products ProductSource, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		orders:   orders,
		products: products,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		loc:      time.Local,
	}
}

func (s *Service) cachedOrders() ([]domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return s.cached, true
}

// Orders returns the order history in backend order. The shared fetch is detached
// from the caller that started it.
func (s *Service) Orders(ctx context.Context) ([]domain.Order, error) {
	if orders, ok := s.cachedOrders(); ok {
		return slices.Clone(orders), nil
	}

	ch := s.sfg.DoChan("orders", func() (interface{}, error) {
		if orders, ok := s.cachedOrders(); ok {
			return orders, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()

		orders, err := s.orders.ListOrders(fetchCtx)
		if err != nil {
			s.logger.Warn("order history fetch failed", zap.Error(err))
			return nil, err
		}

		s.mu.Lock()
		s.cached = orders
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return orders, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.Order)), nil
	}
}

// Invalidate drops cached orders, e.g. after a checkout went through.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.fetchedAt = time.Time{}
}

// DateLayout is how order dates are shown in the history view.
const DateLayout = "02 Jan 2006, 15:04:05"

type HistoryEntry struct {
	Order       domain.Order
	DisplayDate string
}

// History returns the orders that fall inside r. A zero Range returns everything.
func (s *Service) History(ctx context.Context, r Range) ([]HistoryEntry, error) {
	orders, err := s.Orders(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(orders))
	for _, o := range orders {
		if !r.Contains(o.Date) {
			continue
		}
		entry := HistoryEntry{Order: o}
		if !o.Date.IsZero() {
			entry.DisplayDate = o.Date.In(s.loc).Format(DateLayout)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
