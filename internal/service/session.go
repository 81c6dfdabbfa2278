package service

import (
	"context"

	"github.com/mtandao/campaignhub-backend/internal/store"
)

// Session is the operation-scoped connection session a service works
// through. Satisfied by *store.Session; tests substitute fakes.
type Session interface {
	Acquire(ctx context.Context, storeName string) (*store.Handle, error)
	Release()
}
