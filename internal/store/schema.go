// internal/store/schema.go
package store

import (
	"context"
	"fmt"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
)

// GlobalSchema is the DDL for the registry ("global") store.
const GlobalSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    db_name TEXT NOT NULL UNIQUE,
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_by TEXT NOT NULL,
    deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_accounts_created_by ON accounts(created_by);
`

// TenantSchema is the DDL applied to every per-account store.
const TenantSchema = `
CREATE TABLE IF NOT EXISTS campaigns (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    recipients JSONB NOT NULL DEFAULT '[]',
    status TEXT NOT NULL,
    template TEXT NOT NULL,
    schedule TIMESTAMPTZ,
    phone_sender TEXT,
    created_by UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS campaign_details (
    id UUID PRIMARY KEY,
    campaign_id UUID NOT NULL REFERENCES campaigns(id),
    name TEXT NOT NULL,
    recipient TEXT NOT NULL,
    region TEXT NOT NULL,
    message TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'Pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ,
    UNIQUE (campaign_id, recipient)
);
CREATE INDEX IF NOT EXISTS idx_campaign_details_campaign ON campaign_details(campaign_id);
`

// Provision creates the physical database for a new tenant store and applies
// the tenant schema. The maintenance database is used only for the CREATE.
func (b *Broker) Provision(ctx context.Context, storeName string) error {
	if !ValidStoreName(storeName) {
		return appErrors.NewStoreUnavailable(storeName, fmt.Errorf("invalid store name"))
	}

	maint, err := b.openStore(ctx, "postgres")
	if err != nil {
		return err
	}
	defer b.release(maint)

	// Name is validated above; CREATE DATABASE cannot take placeholders.
	if _, err := maint.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", storeName)); err != nil {
		return appErrors.NewStoreUnavailable(storeName, err)
	}

	tenant, err := b.openStore(ctx, storeName)
	if err != nil {
		return err
	}
	defer b.release(tenant)

	if _, err := tenant.ExecContext(ctx, TenantSchema); err != nil {
		return appErrors.NewStoreUnavailable(storeName, err)
	}

	b.logger.Info().Str("store", storeName).Msg("provisioned tenant store")
	return nil
}
