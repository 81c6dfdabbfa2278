package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/federation"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/registry"
	"github.com/mtandao/campaignhub-backend/internal/repository"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

type CampaignService struct {
	Registry        *registry.Registry
	Executor        *federation.Executor
	NewSession      func() Session
	CampaignRepoFor func(db *sql.DB) repository.CampaignRepositoryInterface
	DetailRepoFor   func(db *sql.DB) repository.DetailRepositoryInterface
	Logger          zerolog.Logger
}

type CreateCampaignInput struct {
	Name        string            `json:"name" validate:"required,min=2,max=120"`
	Recipients  []model.Recipient `json:"recipients" validate:"required,min=1,dive"`
	Template    string            `json:"template" validate:"required"`
	Schedule    *time.Time        `json:"schedule"`
	PhoneSender string            `json:"phone_sender"`
}

// ListQuery is the request-facing listing contract. An empty AccountID means
// "federate across every account the caller owns".
type ListQuery struct {
	AccountID     string
	Page          int
	Limit         int
	Search        string
	Status        string
	SortField     string
	SortDirection int
}

type CampaignListItem struct {
	AccountID      string         `json:"account_id"`
	CampaignID     string         `json:"campaign_id"`
	Name           string         `json:"name"`
	Status         string         `json:"status"`
	Recipients     int            `json:"recipients"`
	Template       string         `json:"template"`
	Schedule       *time.Time     `json:"schedule,omitempty"`
	PhoneSender    string         `json:"phone_sender,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	DetailCount    int            `json:"detail_count"`
	DetailStatuses map[string]int `json:"detail_statuses"`
}

type CampaignList struct {
	Data           []CampaignListItem `json:"data"`
	Total          int                `json:"total"`
	Page           int                `json:"page"`
	TotalPages     int                `json:"totalPages"`
	Limit          int                `json:"limit"`
	StatusSummary  map[string]int     `json:"status_summary"`
	FailedAccounts map[string]string  `json:"failed_accounts,omitempty"`
}

// CreateCampaign writes into the owning account's store, never the global one.
func (s *CampaignService) CreateCampaign(ctx context.Context, accountID string, in CreateCampaignInput) (*model.Campaign, error) {
	account, err := s.Registry.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sess := s.NewSession()
	defer sess.Release()

	h, err := sess.Acquire(ctx, account.DBName)
	if err != nil {
		return nil, err
	}

	campaign := &model.Campaign{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Recipients:  in.Recipients,
		Status:      model.CampaignStatusCreated,
		Template:    in.Template,
		Schedule:    in.Schedule,
		PhoneSender: in.PhoneSender,
		CreatedBy:   account.ID,
		CreatedAt:   time.Now(),
	}
	if err := s.campaignRepo(h.DB()).Create(ctx, campaign); err != nil {
		return nil, err
	}

	s.Logger.Info().Str("campaign_id", campaign.ID).Str("account_id", account.ID).Msg("campaign created")
	return campaign, nil
}

// ListCampaigns federates campaigns across tenant stores: per-tenant
// filtering, then one global sort over the merged set, then pagination.
// A single-account listing runs strict; a multi-account one runs degraded
// so that one broken tenant does not take the whole view down.
func (s *CampaignService) ListCampaigns(ctx context.Context, ownerID string, q ListQuery) (*CampaignList, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.SortField == "" {
		q.SortField = "created_at"
	}
	if q.SortDirection != federation.SortAsc && q.SortDirection != federation.SortDesc {
		q.SortDirection = federation.SortDesc
	}

	var accounts []*model.Account
	mode := federation.Degraded
	if q.AccountID != "" {
		account, err := s.Registry.Resolve(ctx, q.AccountID)
		if err != nil {
			return nil, err
		}
		accounts = []*model.Account{account}
		mode = federation.Strict
	} else {
		owned, err := s.Registry.ListOwnedBy(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if len(owned) == 0 {
			return nil, appErrors.NewNotFound("accounts for owner", ownerID)
		}
		accounts = owned
	}

	sess := s.NewSession()
	defer sess.Release()

	fn := func(ctx context.Context, account *model.Account, h *store.Handle) ([]federation.Record, error) {
		return s.tenantRecords(ctx, account, h, q)
	}
	results, partial, err := federation.Query(ctx, s.Executor, sess, accounts, mode, fn)
	if err != nil {
		return nil, err
	}

	page, histogram := federation.Aggregate(results, q.SortField, q.SortDirection, q.Page, q.Limit)

	list := &CampaignList{
		Data:          make([]CampaignListItem, 0, len(page.Records)),
		Total:         page.Total,
		Page:          q.Page,
		TotalPages:    page.TotalPages,
		Limit:         q.Limit,
		StatusSummary: histogram,
	}
	for _, rec := range page.Records {
		list.Data = append(list.Data, CampaignListItem{
			AccountID:      rec.AccountID,
			CampaignID:     rec.Campaign.ID,
			Name:           rec.Campaign.Name,
			Status:         rec.Campaign.Status,
			Recipients:     len(rec.Campaign.Recipients),
			Template:       rec.Campaign.Template,
			Schedule:       rec.Campaign.Schedule,
			PhoneSender:    rec.Campaign.PhoneSender,
			CreatedAt:      rec.Campaign.CreatedAt,
			DetailCount:    rec.DetailCount,
			DetailStatuses: rec.DetailStatuses,
		})
	}
	if partial != nil {
		list.FailedAccounts = map[string]string{}
		for id, cause := range partial.Failed {
			list.FailedAccounts[id] = cause.Error()
		}
	}

	return list, nil
}

// DeleteCampaign soft-deletes inside the owning tenant store.
func (s *CampaignService) DeleteCampaign(ctx context.Context, accountID, campaignID string) (*model.Campaign, error) {
	account, err := s.Registry.Resolve(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sess := s.NewSession()
	defer sess.Release()

	h, err := sess.Acquire(ctx, account.DBName)
	if err != nil {
		return nil, err
	}

	return s.campaignRepo(h.DB()).SoftDelete(ctx, campaignID, account.ID)
}

// tenantRecords is the per-tenant predicate of the federated listing: match
// campaigns, fetch their detail summaries in one round trip, and tag every
// record with provenance for the aggregator.
func (s *CampaignService) tenantRecords(ctx context.Context, account *model.Account, h *store.Handle, q ListQuery) ([]federation.Record, error) {
	campaigns, err := s.campaignRepo(h.DB()).FindMatching(ctx, repository.CampaignQuery{
		AccountID: account.ID,
		Search:    q.Search,
		Status:    q.Status,
	})
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return []federation.Record{}, nil
	}

	ids := make([]string, len(campaigns))
	for i, c := range campaigns {
		ids[i] = c.ID
	}
	details, err := s.detailRepo(h.DB()).FindByCampaigns(ctx, ids)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	statuses := map[string]map[string]int{}
	for _, d := range details {
		counts[d.CampaignID]++
		if statuses[d.CampaignID] == nil {
			statuses[d.CampaignID] = map[string]int{}
		}
		statuses[d.CampaignID][d.Status]++
	}

	records := make([]federation.Record, len(campaigns))
	for i, c := range campaigns {
		records[i] = federation.Record{
			AccountID:      account.ID,
			Campaign:       c,
			DetailCount:    counts[c.ID],
			DetailStatuses: statuses[c.ID],
		}
	}
	return records, nil
}

func (s *CampaignService) campaignRepo(db *sql.DB) repository.CampaignRepositoryInterface {
	if s.CampaignRepoFor != nil {
		return s.CampaignRepoFor(db)
	}
	return &repository.CampaignRepository{DB: db}
}

func (s *CampaignService) detailRepo(db *sql.DB) repository.DetailRepositoryInterface {
	if s.DetailRepoFor != nil {
		return s.DetailRepoFor(db)
	}
	return &repository.DetailRepository{DB: db}
}
