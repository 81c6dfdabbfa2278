// internal/store/broker.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/metrics"
)

// Store names double as Postgres database identifiers, so anything outside
// this set is rejected before it reaches a DSN or a CREATE DATABASE.
var storeNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidStoreName reports whether name is usable as a store identifier.
func ValidStoreName(name string) bool {
	return storeNameRe.MatchString(name)
}

// OpenFunc opens and verifies a connection to one store. Tests swap it out.
type OpenFunc func(ctx context.Context, dsn string) (*sql.DB, error)

// Broker knows how to reach the database cluster that hosts every tenant
// store. It hands out operation-scoped Sessions; it never caches connections
// across operations.
type Broker struct {
	host           string
	port           string
	user           string
	password       string
	sslMode        string
	connectTimeout time.Duration
	retryBackoff   time.Duration
	open           OpenFunc
	opens          atomic.Int64
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// BrokerConfig carries the cluster coordinates shared by all stores.
type BrokerConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
	RetryBackoff   time.Duration
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	Open           OpenFunc // nil means the real Postgres opener
}

func NewBroker(cfg BrokerConfig) *Broker {
	b := &Broker{
		host:           cfg.Host,
		port:           cfg.Port,
		user:           cfg.User,
		password:       cfg.Password,
		sslMode:        cfg.SSLMode,
		connectTimeout: cfg.ConnectTimeout,
		retryBackoff:   cfg.RetryBackoff,
		open:           cfg.Open,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
	if b.connectTimeout <= 0 {
		b.connectTimeout = 5 * time.Second
	}
	if b.retryBackoff <= 0 {
		b.retryBackoff = 200 * time.Millisecond
	}
	if b.open == nil {
		b.open = b.openPostgres
	}
	return b
}

// DSN builds the connection string for one store.
func (b *Broker) DSN(storeName string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		b.user, b.password, b.host, b.port, storeName, b.sslMode,
	)
}

// NewSession starts an operation-scoped session. The caller owns it and must
// call Release before the operation ends, on every exit path.
func (b *Broker) NewSession() *Session {
	return &Session{broker: b, entries: make(map[string]*entry)}
}

// Opens returns how many physical connections the broker has opened. Tests
// use it to assert that deduplication bounds opens by distinct store names.
func (b *Broker) Opens() int64 {
	return b.opens.Load()
}

// openStore resolves a store name to a live connection, retrying once with
// backoff before giving up with ErrStoreUnavailable.
func (b *Broker) openStore(ctx context.Context, storeName string) (*sql.DB, error) {
	if !ValidStoreName(storeName) {
		return nil, appErrors.NewStoreUnavailable(storeName, fmt.Errorf("invalid store name"))
	}

	dsn := b.DSN(storeName)
	db, err := b.open(ctx, dsn)
	if err != nil {
		b.logger.Warn().Str("store", storeName).Err(err).Msg("store connect failed, retrying once")
		select {
		case <-time.After(b.retryBackoff):
		case <-ctx.Done():
			return nil, appErrors.NewStoreUnavailable(storeName, ctx.Err())
		}
		db, err = b.open(ctx, dsn)
	}
	if err != nil {
		if b.metrics != nil {
			b.metrics.StoreConnectFailures.Inc()
		}
		return nil, appErrors.NewStoreUnavailable(storeName, err)
	}

	b.opens.Add(1)
	if b.metrics != nil {
		b.metrics.HandlesOpened.Inc()
	}
	return db, nil
}

// release closes a broker-internal connection, keeping the open and release
// counters in step. Session handles do their own counting.
func (b *Broker) release(db *sql.DB) {
	db.Close()
	if b.metrics != nil {
		b.metrics.HandlesReleased.Inc()
	}
}

func (b *Broker) openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, b.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
