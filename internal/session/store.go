package session

import (
	"context"
	"errors"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/cart"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps one cart per checkout session. Get returns a private copy: changes
// are only visible to other readers after Save.
type Store interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)

	// Save creates or replaces the session cart and restarts its idle timeout.
	Save(ctx context.Context, sessionID string, c *cart.Cart) error

	// Delete ends the session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error

	Close() error
}
