// Package federation presents many per-tenant stores as one logical,
// queryable collection: fan the predicate out, join, merge, sort, paginate.
package federation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/metrics"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

// Mode selects the failure policy of a fan-out.
type Mode int

const (
	// Strict fails the whole operation if any tenant query errors. Used for
	// single-account lookups.
	Strict Mode = iota
	// Degraded skips failed tenants and reports them alongside the partial
	// results. Used for multi-account listings.
	Degraded
)

// Session is the slice of the connection broker the executor needs.
type Session interface {
	Acquire(ctx context.Context, storeName string) (*store.Handle, error)
}

// QueryFunc runs the per-tenant predicate against one acquired handle.
type QueryFunc[T any] func(ctx context.Context, account *model.Account, h *store.Handle) (T, error)

// Result pairs a tenant's partial result with its provenance.
type Result[T any] struct {
	Account *model.Account
	Value   T
	Err     error
}

// Executor fans a query out across tenant stores with a bounded worker pool
// and a per-tenant timeout, then joins every outstanding query before
// returning. Handles are acquired through the operation's session, so they
// are deduplicated by store name and released when the session is.
type Executor struct {
	Workers int
	Timeout time.Duration
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Query executes fn once per account, concurrently. In Strict mode the first
// tenant error fails the call; in Degraded mode failed tenants are collected
// into an ErrPartialFederation returned alongside the successful results.
func Query[T any](ctx context.Context, e *Executor, sess Session, accounts []*model.Account, mode Mode, fn QueryFunc[T]) ([]Result[T], *appErrors.ErrPartialFederation, error) {
	if len(accounts) == 0 {
		return []Result[T]{}, nil, nil
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 4
	}

	start := time.Now()
	results := make([]Result[T], len(accounts))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, account := range accounts {
		wg.Add(1)
		go func(i int, account *model.Account) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result[T]{Account: account, Err: ctx.Err()}
				return
			}

			tenantCtx := ctx
			if e.Timeout > 0 {
				var cancel context.CancelFunc
				tenantCtx, cancel = context.WithTimeout(ctx, e.Timeout)
				defer cancel()
			}

			h, err := sess.Acquire(tenantCtx, account.DBName)
			if err != nil {
				results[i] = Result[T]{Account: account, Err: err}
				return
			}

			value, err := fn(tenantCtx, account, h)
			results[i] = Result[T]{Account: account, Value: value, Err: err}
		}(i, account)
	}
	wg.Wait()

	if e.Metrics != nil {
		e.Metrics.FanoutDuration.Observe(time.Since(start).Seconds())
	}

	failed := map[string]error{}
	var firstErr error
	ok := make([]Result[T], 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			e.observe("error")
			e.Logger.Warn().
				Str("account_id", res.Account.ID).
				Str("store", res.Account.DBName).
				Err(res.Err).
				Msg("tenant query failed")
			if firstErr == nil {
				firstErr = res.Err
			}
			failed[res.Account.ID] = res.Err
			continue
		}
		e.observe("ok")
		ok = append(ok, res)
	}

	if len(failed) == 0 {
		return ok, nil, nil
	}

	if mode == Strict {
		return nil, nil, firstErr
	}

	// Degraded: partial results plus an explicit failure report, never a
	// silent drop.
	return ok, appErrors.NewPartialFederation(failed), nil
}

func (e *Executor) observe(outcome string) {
	if e.Metrics != nil {
		e.Metrics.TenantQueriesTotal.WithLabelValues(outcome).Inc()
	}
}
