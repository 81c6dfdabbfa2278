package service_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/repository"
	"github.com/mtandao/campaignhub-backend/internal/service"
)

func newAccountService(accounts *mockAccountRepo, campaigns *mockCampaignRepo, sess *fakeSession, provision func(ctx context.Context, storeName string) error) *service.AccountService {
	if provision == nil {
		provision = func(ctx context.Context, storeName string) error { return nil }
	}
	return &service.AccountService{
		Accounts:   accounts,
		Registry:   testRegistry(accounts),
		Executor:   testFanout(),
		NewSession: sessionFactory(sess),
		Provision:  provision,
		CampaignRepoFor: func(db *sql.DB) repository.CampaignRepositoryInterface {
			return campaigns
		},
		Logger: zerolog.Nop(),
	}
}

func TestStoreNameFor(t *testing.T) {
	createdAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		want string
	}{
		{"Acme Media", "acme_media_2026_08_29"},
		{"  Savanna   Retail  ", "savanna_retail_2026_08_29"},
		{"Ünïcode & Co.", "ncode__co_2026_08_29"},
		{"9Lives", "acct_9lives_2026_08_29"},
		{"---", "acct__2026_08_29"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, service.StoreNameFor(tc.name, createdAt), "input %q", tc.name)
	}
}

func TestCreateAccountProvisionsStore(t *testing.T) {
	accounts := newMockAccountRepo()
	var provisioned []string
	svc := newAccountService(accounts, newMockCampaignRepo(), &fakeSession{}, func(ctx context.Context, storeName string) error {
		provisioned = append(provisioned, storeName)
		return nil
	})

	account, err := svc.CreateAccount(context.Background(), testOwner, service.CreateAccountInput{
		Name:    "Acme Media",
		Email:   "ops@acme.example",
		Balance: 100,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, testOwner, account.CreatedBy)
	assert.Contains(t, account.DBName, "acme_media_")
	require.Len(t, provisioned, 1)
	assert.Equal(t, account.DBName, provisioned[0])

	stored, err := accounts.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Balance)
}

func TestCreateAccountNameTooLongForStore(t *testing.T) {
	accounts := newMockAccountRepo()
	svc := newAccountService(accounts, newMockCampaignRepo(), &fakeSession{}, nil)

	// 80 characters sanitize past the 63-character identifier limit.
	_, err := svc.CreateAccount(context.Background(), testOwner, service.CreateAccountInput{
		Name:  strings.Repeat("a", 80),
		Email: "ops@acme.example",
	})
	require.ErrorIs(t, err, service.ErrInvalidAccountName)

	owned, listErr := accounts.FindActiveByOwner(context.Background(), testOwner)
	require.NoError(t, listErr)
	assert.Empty(t, owned, "nothing is registered for an unusable name")
}

func TestCreateAccountRollsBackWhenProvisionFails(t *testing.T) {
	accounts := newMockAccountRepo()
	provisionErr := errors.New("permission denied to create database")
	svc := newAccountService(accounts, newMockCampaignRepo(), &fakeSession{}, func(ctx context.Context, storeName string) error {
		return provisionErr
	})

	_, err := svc.CreateAccount(context.Background(), testOwner, service.CreateAccountInput{
		Name:  "Acme Media",
		Email: "ops@acme.example",
	})
	require.ErrorIs(t, err, provisionErr)

	// The registry row must not survive pointing at a store that never
	// came up.
	require.Len(t, accounts.softDeleted, 1)
	owned, listErr := accounts.FindActiveByOwner(context.Background(), testOwner)
	require.NoError(t, listErr)
	assert.Empty(t, owned)
}

func TestListAccountsEnrichesWithCampaignSummaries(t *testing.T) {
	accounts, campaigns, _ := twoAccountFixture()
	svc := newAccountService(accounts, campaigns, &fakeSession{}, nil)

	list, err := svc.ListAccounts(context.Background(), testOwner, 1, 10)
	require.NoError(t, err)

	require.Len(t, list.Data, 2)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 1, list.TotalPages)

	byID := map[string]service.AccountSummary{}
	for _, s := range list.Data {
		byID[s.Account.ID] = s
	}
	assert.Equal(t, 3, byID["acct-a"].CampaignCount)
	assert.Equal(t, map[string]int{"created": 2, "archived": 1}, byID["acct-a"].CampaignStatuses)
	assert.Equal(t, 1, byID["acct-b"].CampaignCount)
	assert.Empty(t, list.FailedAccounts)
}

func TestListAccountsDegradedSkipsUnreachableStore(t *testing.T) {
	accounts, campaigns, _ := twoAccountFixture()
	sess := &fakeSession{down: map[string]bool{"acme_media_2026_08_01": true}}
	svc := newAccountService(accounts, campaigns, sess, nil)

	list, err := svc.ListAccounts(context.Background(), testOwner, 1, 10)
	require.NoError(t, err)

	require.Len(t, list.Data, 1)
	assert.Equal(t, "acct-b", list.Data[0].Account.ID)
	assert.Equal(t, 2, list.Total, "total counts registry rows, reachable or not")
	require.Contains(t, list.FailedAccounts, "acct-a")
}

func TestGetAccountStrictFailure(t *testing.T) {
	accounts, campaigns, _ := twoAccountFixture()
	sess := &fakeSession{down: map[string]bool{"acme_media_2026_08_01": true}}
	svc := newAccountService(accounts, campaigns, sess, nil)

	_, err := svc.GetAccount(context.Background(), testOwner, "acct-a")
	require.Error(t, err)
	var unavailable *appErrors.ErrStoreUnavailable
	assert.ErrorAs(t, err, &unavailable)
}

func TestGetAccountOwnedByAnotherOwner(t *testing.T) {
	accounts, campaigns, _ := twoAccountFixture()
	svc := newAccountService(accounts, campaigns, &fakeSession{}, nil)

	_, err := svc.GetAccount(context.Background(), "stranger", "acct-a")
	var nf *appErrors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestAdjustBalanceGuardsNegative(t *testing.T) {
	accounts := newMockAccountRepo(
		&model.Account{ID: "acct-a", Name: "Acme Media", DBName: "acme_media_2026_08_01", Balance: 10, CreatedBy: testOwner},
	)
	svc := newAccountService(accounts, newMockCampaignRepo(), &fakeSession{}, nil)

	require.NoError(t, svc.AdjustBalance(context.Background(), testOwner, "acct-a", -10))

	err := svc.AdjustBalance(context.Background(), testOwner, "acct-a", -1)
	var insufficient *appErrors.ErrInsufficientBalance
	require.ErrorAs(t, err, &insufficient)

	err = svc.AdjustBalance(context.Background(), "stranger", "acct-a", 5)
	var nf *appErrors.ErrNotFound
	require.ErrorAs(t, err, &nf, "another owner's account reads as not found")

	account, findErr := accounts.FindByID(context.Background(), "acct-a")
	require.NoError(t, findErr)
	assert.Equal(t, int64(0), account.Balance)
}

func TestDeleteAccountStopsResolving(t *testing.T) {
	accounts, campaigns, _ := twoAccountFixture()
	svc := newAccountService(accounts, campaigns, &fakeSession{}, nil)

	deleted, err := svc.DeleteAccount(context.Background(), testOwner, "acct-a")
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)

	_, err = accounts.FindByID(context.Background(), "acct-a")
	var nf *appErrors.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}
