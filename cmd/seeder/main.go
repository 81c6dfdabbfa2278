// cmd/seeder/main.go
//
// Seeds the registry store plus two provisioned tenant stores with sample
// campaigns, enough to exercise a federated listing locally.
package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mtandao/campaignhub-backend/internal/config"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/repository"
	"github.com/mtandao/campaignhub-backend/internal/service"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

const seedOwner = "seed-owner"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config load failed")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := context.Background()

	broker := store.NewBroker(store.BrokerConfig{
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		SSLMode:        cfg.DBSSLMode,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
	})

	sess := broker.NewSession()
	defer sess.Release()

	global, err := sess.Acquire(ctx, cfg.GlobalDBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("global store unreachable")
	}
	if _, err := global.DB().Exec(store.GlobalSchema); err != nil {
		logger.Fatal().Err(err).Msg("global schema failed")
	}

	accounts := &repository.AccountRepository{DB: global.DB()}

	seeds := []struct {
		name     string
		email    string
		balance  int64
		campaign string
		audience []model.Recipient
	}{
		{
			name:     "Acme Media",
			email:    "ops@acmemedia.example",
			balance:  500,
			campaign: "August Promo",
			audience: []model.Recipient{
				{Name: "Alice Wanjiru", Phone: "254701000001"},
				{Name: "Brian Otieno", Phone: "254701000002"},
				{Name: "Carol Njeri", Phone: "254701000003"},
			},
		},
		{
			name:     "Savanna Retail",
			email:    "marketing@savanna.example",
			balance:  200,
			campaign: "Back To School",
			audience: []model.Recipient{
				{Name: "David Kiprop", Phone: "254702000001"},
				{Name: "Esther Achieng", Phone: "254702000002"},
			},
		},
	}

	for _, s := range seeds {
		dbName := service.StoreNameFor(s.name, time.Now())
		account := &model.Account{
			ID:        uuid.NewString(),
			Name:      s.name,
			Email:     s.email,
			DBName:    dbName,
			Balance:   s.balance,
			CreatedAt: time.Now(),
			CreatedBy: seedOwner,
		}
		if err := accounts.Create(ctx, account); err != nil {
			logger.Fatal().Str("account", s.name).Err(err).Msg("account seed failed")
		}
		if err := broker.Provision(ctx, dbName); err != nil {
			logger.Fatal().Str("store", dbName).Err(err).Msg("tenant provision failed")
		}

		tenant, err := sess.Acquire(ctx, dbName)
		if err != nil {
			logger.Fatal().Str("store", dbName).Err(err).Msg("tenant store unreachable")
		}
		campaigns := &repository.CampaignRepository{DB: tenant.DB()}
		err = campaigns.Create(ctx, &model.Campaign{
			ID:         uuid.NewString(),
			Name:       s.campaign,
			Recipients: s.audience,
			Status:     model.CampaignStatusCreated,
			Template:   "Hello {name}, we have an offer for you!",
			CreatedBy:  account.ID,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			logger.Fatal().Str("campaign", s.campaign).Err(err).Msg("campaign seed failed")
		}

		logger.Info().Str("account", s.name).Str("store", dbName).Msg("seeded")
	}

	logger.Info().Msg("database seeding completed successfully")
}
