package queue

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/repository"
	"github.com/mtandao/campaignhub-backend/internal/store"
)

// SendFunc delivers one rendered message to one recipient.
type SendFunc func(recipient, message string) error

// StartDeliverySubscriber consumes delivery jobs and advances each detail
// from Pending to Sent or Failed. Every job opens its own broker session
// against the tenant store named in the job and releases it when done.
func StartDeliverySubscriber(q Queue, broker *store.Broker, send SendFunc, logger zerolog.Logger) error {
	return q.Subscribe(TopicDetailDeliveries, func(payload any) error {
		job, ok := payload.(DeliveryJob)
		if !ok {
			logger.Warn().Msg("invalid payload type, expected DeliveryJob")
			return nil // no retry for garbage
		}

		ctx := context.Background()
		sess := broker.NewSession()
		defer sess.Release()

		h, err := sess.Acquire(ctx, job.StoreName)
		if err != nil {
			return err
		}

		details := &repository.DetailRepository{DB: h.DB()}
		detail, err := details.GetByID(ctx, job.DetailID)
		if err != nil {
			return err
		}
		if detail == nil {
			logger.Warn().Str("detail_id", job.DetailID).Msg("detail not found, dropping job")
			return nil // no retry
		}

		if err := send(detail.Recipient, detail.Message); err != nil {
			if updateErr := details.UpdateStatus(ctx, detail.ID, model.DetailStatusFailed); updateErr != nil {
				logger.Warn().Str("detail_id", detail.ID).Err(updateErr).Msg("status update failed")
			}
			return err // triggers retry in queue
		}

		if err := details.UpdateStatus(ctx, detail.ID, model.DetailStatusSent); err != nil {
			return err // retry
		}

		logger.Info().Str("detail_id", detail.ID).Str("store", job.StoreName).Msg("detail delivered")
		return nil
	})
}

// MockSender simulates delivery with 90% success.
func MockSender(recipient, message string) error {
	if rand.Float64() < 0.9 {
		return nil
	}
	return fmt.Errorf("mock sending failed")
}
