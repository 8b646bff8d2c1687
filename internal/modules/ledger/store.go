// Package ledger holds the active transaction ledger and loads ledgers from CSV.
package ledger

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// ReplaceListener is called after a new ledger has been published.
type ReplaceListener func(next *domain.Ledger)

// ErrNilLedger is returned when Replace is given no ledger.
var ErrNilLedger = errors.New("ledger cannot be nil")

// Store publishes the active ledger. Replacement is a single pointer swap, so a
// reader holding the result of Current never sees a mix of old and new events.
type Store struct {
	current   atomic.Pointer[domain.Ledger]
	replaceMu sync.Mutex // serializes Replace, swap and notification together
	mu        sync.Mutex
	listeners []ReplaceListener
	log       zerolog.Logger
}

// NewStore creates an empty store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		log: log.With().Str("component", "ledger_store").Logger(),
	}
}

// Current returns the active ledger, or nil before the first Replace.
func (s *Store) Current() *domain.Ledger {
	return s.current.Load()
}

// Replace publishes next wholesale and returns the ledger it replaced.
// Listeners run synchronously in registration order and must not call Replace.
// Concurrent replacements are applied one at a time, so listeners always
// finish on the ledger that Current returns.
func (s *Store) Replace(next *domain.Ledger) (*domain.Ledger, error) {
	if next == nil {
		return nil, ErrNilLedger
	}

	s.replaceMu.Lock()
	defer s.replaceMu.Unlock()

	previous := s.current.Swap(next)

	s.mu.Lock()
	listeners := make([]ReplaceListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	ev := s.log.Info().Int("events", next.Len()).Str("version", next.Version())
	if previous != nil {
		ev = ev.Str("previous_version", previous.Version())
	}
	ev.Msg("Ledger replaced")

	for _, l := range listeners {
		l(next)
	}
	return previous, nil
}

// OnReplace registers a listener for future replacements.
func (s *Store) OnReplace(l ReplaceListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
