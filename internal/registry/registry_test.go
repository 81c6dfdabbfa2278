package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/registry"
)

type stubAccountRepo struct {
	accounts map[string]*model.Account
	lookups  int
}

func (s *stubAccountRepo) Create(ctx context.Context, a *model.Account) error { return nil }

func (s *stubAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	s.lookups++
	a, ok := s.accounts[id]
	if !ok {
		return nil, appErrors.NewNotFound("account", id)
	}
	return a, nil
}

func (s *stubAccountRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Account, error) {
	return s.FindByID(ctx, id)
}

func (s *stubAccountRepo) FindAllByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Account, int, error) {
	return nil, 0, nil
}

func (s *stubAccountRepo) FindActiveByOwner(ctx context.Context, ownerID string) ([]*model.Account, error) {
	owned := []*model.Account{}
	for _, a := range s.accounts {
		if a.CreatedBy == ownerID {
			owned = append(owned, a)
		}
	}
	return owned, nil
}

func (s *stubAccountRepo) AdjustBalance(ctx context.Context, id string, delta int64) error {
	return nil
}

func (s *stubAccountRepo) SoftDelete(ctx context.Context, id, ownerID string) (*model.Account, error) {
	return nil, nil
}

func TestResolveWithoutCacheHitsGlobalStore(t *testing.T) {
	repo := &stubAccountRepo{accounts: map[string]*model.Account{
		"a1": {ID: "a1", DBName: "acme_media_2026_08_01", CreatedBy: "owner-1"},
	}}
	reg := &registry.Registry{Accounts: repo, Logger: zerolog.Nop()}

	account, err := reg.Resolve(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "acme_media_2026_08_01", account.DBName)

	_, err = reg.Resolve(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lookups, "with no cache every resolve hits the store")
}

func TestResolveUnknownAccount(t *testing.T) {
	reg := &registry.Registry{Accounts: &stubAccountRepo{accounts: map[string]*model.Account{}}, Logger: zerolog.Nop()}

	_, err := reg.Resolve(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, registry.IsNotFound(err))
	assert.False(t, registry.IsNotFound(errors.New("timeout")))
}

func TestListOwnedBy(t *testing.T) {
	repo := &stubAccountRepo{accounts: map[string]*model.Account{
		"a1": {ID: "a1", CreatedBy: "owner-1"},
		"a2": {ID: "a2", CreatedBy: "owner-1"},
		"b1": {ID: "b1", CreatedBy: "owner-2"},
	}}
	reg := &registry.Registry{Accounts: repo, Logger: zerolog.Nop()}

	owned, err := reg.ListOwnedBy(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestInvalidateWithoutCacheIsNoOp(t *testing.T) {
	reg := &registry.Registry{Accounts: &stubAccountRepo{}, Logger: zerolog.Nop()}
	reg.Invalidate(context.Background(), "a1") // must not panic
}
