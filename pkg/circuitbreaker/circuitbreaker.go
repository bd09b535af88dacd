package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrOpen is returned without calling the protected function while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

type Config struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
	// Ignore reports errors that must not count as failures (e.g. client errors).
	Ignore func(err error) bool
	// OnStateChange is called with the old and new state names.
	OnStateChange func(name, from, to string)
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func New(cfg Config) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}
	if cfg.Ignore != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || cfg.Ignore(err)
		}
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Do runs fn through the breaker. The error from fn is returned unchanged.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

func (b *Breaker) State() string {
	return b.cb.State().String()
}
