// cmd/worker/main.go
//
// Delivery worker: consumes detail delivery jobs from RabbitMQ and advances
// each campaign detail from Pending to Sent or Failed inside its tenant
// store.
package main

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/mtandao/campaignhub-backend/internal/config"
	"github.com/mtandao/campaignhub-backend/internal/queue"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config load failed")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	broker := store.NewBroker(store.BrokerConfig{
		Host:           cfg.DBHost,
		Port:           cfg.DBPort,
		User:           cfg.DBUser,
		Password:       cfg.DBPassword,
		SSLMode:        cfg.DBSSLMode,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
	})

	q, err := queue.NewAMQPQueue(cfg.AMQPURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer q.Close()

	if err := queue.StartDeliverySubscriber(q, broker, queue.MockSender, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to start delivery subscriber")
	}

	logger.Info().Msg("worker running, waiting for delivery jobs")
	forever := make(chan bool)
	<-forever
}
