// internal/store/session.go
package store

import (
	"context"
	"database/sql"
	"sync"
)

// Handle is a transient connection to exactly one store. It is owned by the
// operation that acquired it and is safe to close more than once.
type Handle struct {
	storeName string
	db        *sql.DB
	once      sync.Once
	closeErr  error
}

// NewHandle wraps an already-open connection. Mostly useful for tests and
// for the always-open global store.
func NewHandle(storeName string, db *sql.DB) *Handle {
	return &Handle{storeName: storeName, db: db}
}

func (h *Handle) StoreName() string { return h.storeName }

func (h *Handle) DB() *sql.DB { return h.db }

// Close releases the underlying connection. Closing twice is a no-op, not an
// error.
func (h *Handle) Close() error {
	h.once.Do(func() {
		if h.db != nil {
			h.closeErr = h.db.Close()
		}
	})
	return h.closeErr
}

// entry serializes concurrent acquisitions of the same store name so a
// double-acquire during fan-out cannot open two connections.
type entry struct {
	once sync.Once
	h    *Handle
	err  error
}

// Session caches handles for the lifetime of a single logical operation,
// deduplicated by store name. It is never shared between unrelated requests.
type Session struct {
	broker  *Broker
	mu      sync.Mutex
	entries map[string]*entry
}

// Acquire returns the handle for storeName, opening it on first use. Repeated
// calls with the same name return the identical handle.
func (s *Session) Acquire(ctx context.Context, storeName string) (*Handle, error) {
	s.mu.Lock()
	e, ok := s.entries[storeName]
	if !ok {
		e = &entry{}
		s.entries[storeName] = e
	}
	s.mu.Unlock()

	e.once.Do(func() {
		db, err := s.broker.openStore(ctx, storeName)
		if err != nil {
			e.err = err
			return
		}
		e.h = &Handle{storeName: storeName, db: db}
	})
	if e.err != nil {
		return nil, e.err
	}
	return e.h, nil
}

// Release closes every handle the session opened. Safe to call multiple
// times; handles themselves close at most once.
func (s *Session) Release() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range entries {
		if e.h != nil {
			if err := e.h.Close(); err != nil {
				s.broker.logger.Warn().Str("store", e.h.StoreName()).Err(err).Msg("handle close failed")
			}
			if s.broker.metrics != nil {
				s.broker.metrics.HandlesReleased.Inc()
			}
		}
	}
}
