package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/federation"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/registry"
	"github.com/mtandao/campaignhub-backend/internal/repository"
	"github.com/mtandao/campaignhub-backend/internal/service"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

// fakeSession satisfies service.Session without a database: handles are
// detached and stores listed in down refuse to open.
type fakeSession struct {
	mu       sync.Mutex
	down     map[string]bool
	releases int
}

func (s *fakeSession) Acquire(ctx context.Context, storeName string) (*store.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down[storeName] {
		return nil, appErrors.NewStoreUnavailable(storeName, errors.New("connection refused"))
	}
	return store.NewHandle(storeName, nil), nil
}

func (s *fakeSession) Release() {
	s.mu.Lock()
	s.releases++
	s.mu.Unlock()
}

// mockAccountRepo is an in-memory global store.
type mockAccountRepo struct {
	mu             sync.Mutex
	accounts       map[string]*model.Account
	createErr      error
	balanceCalls   []int64
	softDeleted    []string
}

func newMockAccountRepo(accounts ...*model.Account) *mockAccountRepo {
	m := &mockAccountRepo{accounts: map[string]*model.Account{}}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountRepo) Create(ctx context.Context, a *model.Account) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return nil, appErrors.NewNotFound("account", id)
	}
	return a, nil
}

func (m *mockAccountRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Account, error) {
	a, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CreatedBy != ownerID {
		return nil, appErrors.NewNotFound("account", id)
	}
	return a, nil
}

func (m *mockAccountRepo) FindAllByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Account, int, error) {
	owned, err := m.FindActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	total := len(owned)
	if offset >= total {
		return []*model.Account{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (m *mockAccountRepo) FindActiveByOwner(ctx context.Context, ownerID string) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := []*model.Account{}
	for _, a := range m.accounts {
		if a.CreatedBy == ownerID && a.DeletedAt == nil {
			owned = append(owned, a)
		}
	}
	return owned, nil
}

func (m *mockAccountRepo) AdjustBalance(ctx context.Context, id string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return appErrors.NewNotFound("account", id)
	}
	if a.Balance+delta < 0 {
		return appErrors.NewInsufficientBalance(id, -delta)
	}
	m.balanceCalls = append(m.balanceCalls, delta)
	a.Balance += delta
	return nil
}

func (m *mockAccountRepo) SoftDelete(ctx context.Context, id, ownerID string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil || a.CreatedBy != ownerID {
		return nil, appErrors.NewNotFound("account", id)
	}
	now := time.Now()
	a.DeletedAt = &now
	m.softDeleted = append(m.softDeleted, id)
	return a, nil
}

// mockCampaignRepo holds campaigns per account. The test wiring hands the
// same instance out for every tenant handle; CampaignQuery.AccountID keeps
// the tenants apart.
type mockCampaignRepo struct {
	mu         sync.Mutex
	byAccount  map[string][]*model.Campaign
	findErrFor map[string]error
}

func newMockCampaignRepo() *mockCampaignRepo {
	return &mockCampaignRepo{byAccount: map[string][]*model.Campaign{}, findErrFor: map[string]error{}}
}

func (m *mockCampaignRepo) add(accountID string, c *model.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byAccount[accountID] = append(m.byAccount[accountID], c)
}

func (m *mockCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	m.add(c.CreatedBy, c)
	return nil
}

func (m *mockCampaignRepo) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, campaigns := range m.byAccount {
		for _, c := range campaigns {
			if c.ID == id && c.DeletedAt == nil {
				return c, nil
			}
		}
	}
	return nil, appErrors.NewNotFound("campaign", id)
}

func (m *mockCampaignRepo) FindMatching(ctx context.Context, q repository.CampaignQuery) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.findErrFor[q.AccountID]; err != nil {
		return nil, err
	}
	matched := []*model.Campaign{}
	for _, c := range m.byAccount[q.AccountID] {
		if c.DeletedAt != nil {
			continue
		}
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		// Case-insensitive substring match, like the ILIKE the real
		// repository runs.
		if q.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(q.Search)) {
			continue
		}
		matched = append(matched, c)
	}
	return matched, nil
}

func (m *mockCampaignRepo) SoftDelete(ctx context.Context, id, accountID string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byAccount[accountID] {
		if c.ID == id && c.DeletedAt == nil {
			now := time.Now()
			c.DeletedAt = &now
			return c, nil
		}
	}
	return nil, appErrors.NewNotFound("campaign", id)
}

func (m *mockCampaignRepo) StatusCounts(ctx context.Context, accountID string) (map[string]int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.findErrFor[accountID]; err != nil {
		return nil, 0, err
	}
	counts := map[string]int{}
	total := 0
	for _, c := range m.byAccount[accountID] {
		if c.DeletedAt == nil {
			counts[c.Status]++
			total++
		}
	}
	return counts, total, nil
}

// mockDetailRepo is an in-memory tenant detail table. It enforces the same
// unique (campaign_id, recipient) rule as the real schema; staleCount makes
// CountByCampaign report zero to model a read that raced a concurrent insert.
type mockDetailRepo struct {
	mu         sync.Mutex
	byCampaign map[string][]*model.CampaignDetail
	insertErr  error
	inserted   int
	staleCount bool
}

func newMockDetailRepo() *mockDetailRepo {
	return &mockDetailRepo{byCampaign: map[string][]*model.CampaignDetail{}}
}

func (m *mockDetailRepo) InsertMany(ctx context.Context, details []*model.CampaignDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, d := range details {
		for _, existing := range m.byCampaign[d.CampaignID] {
			if existing.Recipient == d.Recipient {
				return appErrors.NewConflict("campaign details", d.CampaignID)
			}
		}
	}
	for _, d := range details {
		m.byCampaign[d.CampaignID] = append(m.byCampaign[d.CampaignID], d)
	}
	m.inserted += len(details)
	return nil
}

func (m *mockDetailRepo) GetByID(ctx context.Context, id string) (*model.CampaignDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, details := range m.byCampaign {
		for _, d := range details {
			if d.ID == id {
				return d, nil
			}
		}
	}
	return nil, nil
}

func (m *mockDetailRepo) FindByCampaign(ctx context.Context, campaignID string) ([]*model.CampaignDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.CampaignDetail{}, m.byCampaign[campaignID]...), nil
}

func (m *mockDetailRepo) FindByCampaigns(ctx context.Context, campaignIDs []string) ([]*model.CampaignDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*model.CampaignDetail{}
	for _, id := range campaignIDs {
		all = append(all, m.byCampaign[id]...)
	}
	return all, nil
}

func (m *mockDetailRepo) CountByCampaign(ctx context.Context, campaignID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleCount {
		return 0, nil
	}
	return len(m.byCampaign[campaignID]), nil
}

func (m *mockDetailRepo) UpdateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, details := range m.byCampaign {
		for _, d := range details {
			if d.ID == id {
				d.Status = status
				return nil
			}
		}
	}
	return appErrors.NewNotFound("campaign detail", id)
}

// capturingQueue records published jobs.
type capturingQueue struct {
	mu        sync.Mutex
	published []any
}

func (q *capturingQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, payload)
	return nil
}

func (q *capturingQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}

func testRegistry(accounts repository.AccountRepositoryInterface) *registry.Registry {
	return &registry.Registry{Accounts: accounts, Logger: zerolog.Nop()}
}

func testFanout() *federation.Executor {
	return &federation.Executor{Workers: 4, Timeout: time.Second, Logger: zerolog.Nop()}
}

func sessionFactory(sess *fakeSession) func() service.Session {
	return func() service.Session { return sess }
}

var _ repository.AccountRepositoryInterface = (*mockAccountRepo)(nil)
var _ repository.CampaignRepositoryInterface = (*mockCampaignRepo)(nil)
var _ repository.DetailRepositoryInterface = (*mockDetailRepo)(nil)
