package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mtandao/campaignhub-backend/internal/federation"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/registry"
	"github.com/mtandao/campaignhub-backend/internal/repository"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

// ErrInvalidAccountName is returned when an account name cannot be shaped
// into a legal store identifier.
var ErrInvalidAccountName = errors.New("account name cannot form a store identifier")

type AccountService struct {
	Accounts        repository.AccountRepositoryInterface
	Registry        *registry.Registry
	Executor        *federation.Executor
	NewSession      func() Session
	Provision       func(ctx context.Context, storeName string) error
	CampaignRepoFor func(db *sql.DB) repository.CampaignRepositoryInterface
	Logger          zerolog.Logger
}

type CreateAccountInput struct {
	Name    string `json:"name" validate:"required,min=2,max=80"`
	Email   string `json:"email" validate:"required,email"`
	Balance int64  `json:"balance" validate:"gte=0"`
}

// AccountSummary is an account descriptor enriched with its tenant store's
// campaign counts, produced by a fan-out without leaking handles upward.
type AccountSummary struct {
	*model.Account
	CampaignCount    int            `json:"campaign_count"`
	CampaignStatuses map[string]int `json:"campaign_statuses"`
}

// AccountList is the paginated owner view. FailedAccounts records tenants
// that were skipped during a degraded fan-out.
type AccountList struct {
	Data           []AccountSummary  `json:"data"`
	Total          int               `json:"total"`
	Page           int               `json:"page"`
	TotalPages     int               `json:"totalPages"`
	Limit          int               `json:"limit"`
	FailedAccounts map[string]string `json:"failed_accounts,omitempty"`
}

// CreateAccount registers the tenant in the global store and provisions its
// physical database. The store name derives from the account name plus the
// creation date and is immutable afterwards.
func (s *AccountService) CreateAccount(ctx context.Context, ownerID string, in CreateAccountInput) (*model.Account, error) {
	dbName := StoreNameFor(in.Name, time.Now())
	if !store.ValidStoreName(dbName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccountName, in.Name)
	}

	account := &model.Account{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		DBName:    dbName,
		Balance:   in.Balance,
		CreatedAt: time.Now(),
		CreatedBy: ownerID,
	}

	if err := s.Accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	if err := s.Provision(ctx, dbName); err != nil {
		// The registry row must not point at a store that never came up.
		if _, delErr := s.Accounts.SoftDelete(ctx, account.ID, ownerID); delErr != nil {
			s.Logger.Error().Str("account_id", account.ID).Err(delErr).Msg("rollback of unprovisioned account failed")
		}
		return nil, err
	}

	s.Logger.Info().Str("account_id", account.ID).Str("store", dbName).Msg("account created")
	return account, nil
}

// ListAccounts pages through the caller's accounts and enriches each with a
// campaign summary from its tenant store, in degraded mode: one unreachable
// tenant must not hide the rest of the listing.
func (s *AccountService) ListAccounts(ctx context.Context, ownerID string, page, limit int) (*AccountList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	accounts, total, err := s.Accounts.FindAllByOwner(ctx, ownerID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	sess := s.NewSession()
	defer sess.Release()

	results, partial, err := federation.Query(ctx, s.Executor, sess, accounts, federation.Degraded, s.summarize)
	if err != nil {
		return nil, err
	}

	list := &AccountList{
		Data:       make([]AccountSummary, 0, len(results)),
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
		Limit:      limit,
	}
	for _, res := range results {
		list.Data = append(list.Data, res.Value)
	}
	if partial != nil {
		list.FailedAccounts = map[string]string{}
		for id, cause := range partial.Failed {
			list.FailedAccounts[id] = cause.Error()
		}
	}

	return list, nil
}

// GetAccount returns one owned account with its campaign summary. Single
// account, so the fan-out runs strict: a tenant failure fails the lookup.
func (s *AccountService) GetAccount(ctx context.Context, ownerID, accountID string) (*AccountSummary, error) {
	account, err := s.Accounts.FindByIDAndOwner(ctx, accountID, ownerID)
	if err != nil {
		return nil, err
	}

	sess := s.NewSession()
	defer sess.Release()

	results, _, err := federation.Query(ctx, s.Executor, sess, []*model.Account{account}, federation.Strict, s.summarize)
	if err != nil {
		return nil, err
	}

	summary := results[0].Value
	return &summary, nil
}

// DeleteAccount soft-deletes; the tenant store stays, the registry row just
// stops resolving.
func (s *AccountService) DeleteAccount(ctx context.Context, ownerID, accountID string) (*model.Account, error) {
	account, err := s.Accounts.SoftDelete(ctx, accountID, ownerID)
	if err != nil {
		return nil, err
	}
	s.Registry.Invalidate(ctx, accountID)
	return account, nil
}

// AdjustBalance applies a delta atomically, rejecting anything that would
// drive the balance negative before any mutation happens.
func (s *AccountService) AdjustBalance(ctx context.Context, ownerID, accountID string, delta int64) error {
	if _, err := s.Accounts.FindByIDAndOwner(ctx, accountID, ownerID); err != nil {
		return err
	}
	if err := s.Accounts.AdjustBalance(ctx, accountID, delta); err != nil {
		return err
	}
	s.Registry.Invalidate(ctx, accountID)
	return nil
}

func (s *AccountService) summarize(ctx context.Context, account *model.Account, h *store.Handle) (AccountSummary, error) {
	repo := s.campaignRepo(h.DB())
	statuses, count, err := repo.StatusCounts(ctx, account.ID)
	if err != nil {
		return AccountSummary{}, err
	}
	return AccountSummary{Account: account, CampaignCount: count, CampaignStatuses: statuses}, nil
}

func (s *AccountService) campaignRepo(db *sql.DB) repository.CampaignRepositoryInterface {
	if s.CampaignRepoFor != nil {
		return s.CampaignRepoFor(db)
	}
	return &repository.CampaignRepository{DB: db}
}

var storeNameStripRe = regexp.MustCompile(`[^a-z0-9_]+`)

// StoreNameFor derives the tenant store name: sanitized account name plus
// the creation date, e.g. "acme_media_2026_08_29".
func StoreNameFor(accountName string, createdAt time.Time) string {
	name := strings.ToLower(strings.TrimSpace(accountName))
	name = strings.Join(strings.Fields(name), "_")
	name = storeNameStripRe.ReplaceAllString(name, "")
	name = strings.Trim(name, "_")
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		name = "acct_" + name
	}
	return name + "_" + createdAt.Format("2006_01_02")
}
