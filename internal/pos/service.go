package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/cart"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/domain"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/journal"
	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrEmptyCart = errors.New("cart is empty")

// Consumers define these interfaces.
type CatalogReader interface {
	Product(ctx context.Context, id string) (domain.Product, error)
}

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order domain.OrderSubmission) (string, error)
}

type Journal interface {
	Record(ctx context.Context, s journal.Submission) (journal.Submission, error)
}

// Receipt describes an order the backend accepted.
type Receipt struct {
	OrderID string
	Total   decimal.Decimal
	Lines   int
}

// sessionLock serializes requests on one session. refs counts the holders and
// waiters so the entry can be dropped once nobody needs it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type Service struct {
	store   session.Store
	catalog CatalogReader
	orders  OrderSubmitter
	journal Journal
	logger  *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

func NewService(store session.Store, catalog CatalogReader, orders OrderSubmitter, j Journal, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		orders:  orders,
		journal: j,
		logger:  logger,
		locks:   make(map[string]*sessionLock),
	}
}

// lock blocks until sessionID is free and returns the matching unlock.
// Requests on other sessions never wait on it.
func (s *Service) lock(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) StartSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := s.store.Save(ctx, id, cart.New()); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	defer s.lock(sessionID)()
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) Cart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.store.Get(ctx, sessionID)
}

// mutate applies fn to the session cart and saves the result.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	defer s.lock(sessionID)()

	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, fmt.Errorf("save session cart: %w", err)
	}
	return c, nil
}

// AddLine resolves the selections against the current catalog and adds a new line
// with quantity 1.
func (s *Service) AddLine(ctx context.Context, sessionID, productID string, selections []domain.Selection) (string, *cart.Cart, error) {
	var lineID string
	c, err := s.mutate(ctx, sessionID, func(c *cart.Cart) error {
		product, err := s.catalog.Product(ctx, productID)
		if err != nil {
			return err
		}
		choices, err := product.ResolveSelections(selections)
		if err != nil {
			return err
		}
		lineID = c.AddLine(product, choices)
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return lineID, c, nil
}

func (s *Service) SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*cart.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) error {
		c.SetQuantity(lineID, quantity)
		return nil
	})
}

func (s *Service) RemoveLine(ctx context.Context, sessionID, lineID string) (*cart.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) error {
		c.RemoveLine(lineID)
		return nil
	})
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// Checkout submits the session cart. The cart is cleared only after the backend
// accepts the order; on any failure it is left exactly as it was.
func (s *Service) Checkout(ctx context.Context, sessionID, terminalID string) (Receipt, error) {
	defer s.lock(sessionID)()

	c, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Receipt{}, err
	}
	if c.IsEmpty() {
		return Receipt{}, ErrEmptyCart
	}

	payload := c.OrderPayload()
	receipt := Receipt{Total: c.Total(), Lines: c.Len()}

	orderID, submitErr := s.orders.SubmitOrder(ctx, payload)
	s.record(ctx, sessionID, terminalID, payload, receipt.Total, orderID, submitErr)
	if submitErr != nil {
		s.logger.Warn("order submission failed",
			zap.String("session_id", sessionID), zap.String("terminal_id", terminalID), zap.Error(submitErr))
		return Receipt{}, submitErr
	}
	receipt.OrderID = orderID

	c.Clear()
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		// The order exists; the terminal must not resubmit it.
		s.logger.Error("failed to clear cart after checkout",
			zap.String("session_id", sessionID), zap.String("order_id", orderID), zap.Error(err))
	}

	s.logger.Info("order submitted",
		zap.String("session_id", sessionID),
		zap.String("order_id", orderID),
		zap.String("display_total", receipt.Total.StringFixed(2)))
	return receipt, nil
}

// record journals a checkout attempt. Journal failures never fail the checkout.
func (s *Service) record(ctx context.Context, sessionID, terminalID string, payload domain.OrderSubmission, total decimal.Decimal, orderID string, submitErr error) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode submission for journal", zap.Error(err))
		return
	}

	entry := journal.Submission{
		SessionID:    sessionID,
		TerminalID:   terminalID,
		Payload:      data,
		DisplayTotal: total,
		Status:       journal.StatusAccepted,
		OrderID:      orderID,
	}
	if submitErr != nil {
		entry.Status = journal.StatusFailed
		entry.Error = submitErr.Error()
	}

	if _, err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to journal submission",
			zap.String("session_id", sessionID), zap.String("status", string(entry.Status)), zap.Error(err))
	}
}
