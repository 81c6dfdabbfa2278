// Package registry maps account identifiers to their physical stores. All
// reads hit the global store; an optional Redis cache fronts Resolve since
// every tenant-scoped request pays a registry lookup first.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/metrics"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/repository"
)

type Registry struct {
	Accounts repository.AccountRepositoryInterface
	Cache    *redis.Client // nil disables caching
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Resolve maps an account ID to its descriptor. Absent and soft-deleted
// accounts are a NotFound, not a fault.
func (r *Registry) Resolve(ctx context.Context, accountID string) (*model.Account, error) {
	if cached := r.fromCache(ctx, accountID); cached != nil {
		return cached, nil
	}

	account, err := r.Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	r.toCache(ctx, account)
	return account, nil
}

// ListOwnedBy returns every active account descriptor owned by ownerID.
func (r *Registry) ListOwnedBy(ctx context.Context, ownerID string) ([]*model.Account, error) {
	return r.Accounts.FindActiveByOwner(ctx, ownerID)
}

// Invalidate drops a cached descriptor. Called after balance adjustments and
// soft-deletes so a stale descriptor never outlives the TTL AND a mutation.
func (r *Registry) Invalidate(ctx context.Context, accountID string) {
	if r.Cache == nil {
		return
	}
	if err := r.Cache.Del(ctx, cacheKey(accountID)).Err(); err != nil {
		r.Logger.Warn().Str("account_id", accountID).Err(err).Msg("account cache invalidation failed")
	}
}

func (r *Registry) fromCache(ctx context.Context, accountID string) *model.Account {
	if r.Cache == nil {
		return nil
	}

	raw, err := r.Cache.Get(ctx, cacheKey(accountID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.Logger.Warn().Err(err).Msg("account cache read failed")
		}
		if r.Metrics != nil {
			r.Metrics.AccountCacheMisses.Inc()
		}
		return nil
	}

	account := &model.Account{}
	if err := json.Unmarshal(raw, account); err != nil {
		r.Logger.Warn().Err(err).Msg("account cache entry corrupt")
		return nil
	}
	if r.Metrics != nil {
		r.Metrics.AccountCacheHits.Inc()
	}
	return account
}

func (r *Registry) toCache(ctx context.Context, account *model.Account) {
	if r.Cache == nil || account == nil {
		return
	}
	raw, err := json.Marshal(account)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, cacheKey(account.ID), raw, r.CacheTTL).Err(); err != nil {
		r.Logger.Warn().Err(err).Msg("account cache write failed")
	}
}

func cacheKey(accountID string) string {
	return "account:" + accountID
}

// IsNotFound reports whether err is the registry's non-fatal miss.
func IsNotFound(err error) bool {
	var nf *appErrors.ErrNotFound
	return errors.As(err, &nf)
}
