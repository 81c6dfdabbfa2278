package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/model"
	"github.com/mtandao/campaignhub-backend/internal/queue"
	"github.com/mtandao/campaignhub-backend/internal/registry"
	"github.com/mtandao/campaignhub-backend/internal/repository"
)

// ErrNoRecipients is returned when detail generation is requested for a
// campaign whose audience is empty.
var ErrNoRecipients = errors.New("campaign has no recipients")

// ErrUnknownStatus is returned for a delivery status outside the enum.
var ErrUnknownStatus = errors.New("unknown detail status")

type DetailService struct {
	Registry         *registry.Registry
	Accounts         repository.AccountRepositoryInterface
	Queue            queue.Queue
	NewSession       func() Session
	CampaignRepoFor  func(db *sql.DB) repository.CampaignRepositoryInterface
	DetailRepoFor    func(db *sql.DB) repository.DetailRepositoryInterface
	CostPerRecipient int64
	Logger           zerolog.Logger
}

type CampaignHeader struct {
	CampaignID  string     `json:"campaign_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Recipients  int        `json:"recipients"`
	Template    string     `json:"template"`
	Schedule    *time.Time `json:"schedule,omitempty"`
	PhoneSender string     `json:"phone_sender,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CampaignDetailView struct {
	Campaign       CampaignHeader          `json:"campaign"`
	Details        []*model.CampaignDetail `json:"details"`
	DetailStatuses map[string]int          `json:"detail_statuses"`
}

// GenerateDetails creates one detail per recipient, at most once per
// campaign, billed at CostPerRecipient units per recipient. The deduction
// happens before any insert and the insert is all-or-nothing; a failed
// insert refunds the deduction.
func (s *DetailService) GenerateDetails(ctx context.Context, accountID, campaignID string) ([]*model.CampaignDetail, error) {
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

	campaign, err := s.campaignRepo(h.DB()).FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(campaign.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	details := s.detailRepo(h.DB())
	existing, err := details.CountByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, appErrors.NewConflict("campaign details", campaignID)
	}

	cost := s.CostPerRecipient * int64(len(campaign.Recipients))
	if cost > 0 {
		if err := s.Accounts.AdjustBalance(ctx, account.ID, -cost); err != nil {
			return nil, err
		}
		s.Registry.Invalidate(ctx, account.ID)
	}

	batch := make([]*model.CampaignDetail, len(campaign.Recipients))
	now := time.Now()
	for i, r := range campaign.Recipients {
		batch[i] = &model.CampaignDetail{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			Name:       r.Name,
			Recipient:  r.Phone,
			Region:     RegionForPhone(r.Phone),
			Message:    RenderTemplate(campaign.Template, map[string]string{"name": r.Name, "phone": r.Phone}),
			Status:     model.DetailStatusPending,
			CreatedAt:  now,
		}
	}

	if err := details.InsertMany(ctx, batch); err != nil {
		// The batch never landed; give the units back.
		if cost > 0 {
			if refundErr := s.Accounts.AdjustBalance(ctx, account.ID, cost); refundErr != nil {
				s.Logger.Error().Str("account_id", account.ID).Int64("units", cost).Err(refundErr).Msg("refund after failed insert did not apply")
			}
			s.Registry.Invalidate(ctx, account.ID)
		}
		return nil, err
	}

	if s.Queue != nil {
		for _, d := range batch {
			job := queue.DeliveryJob{StoreName: account.DBName, DetailID: d.ID}
			if err := s.Queue.Publish(queue.TopicDetailDeliveries, job); err != nil {
				s.Logger.Warn().Str("detail_id", d.ID).Err(err).Msg("failed to enqueue delivery")
			}
		}
	}

	s.Logger.Info().
		Str("campaign_id", campaign.ID).
		Str("account_id", account.ID).
		Int("details", len(batch)).
		Int64("units", cost).
		Msg("campaign details generated")
	return batch, nil
}

// GetCampaignDetail returns the campaign header, its details, and a status
// histogram over all of them.
func (s *DetailService) GetCampaignDetail(ctx context.Context, accountID, campaignID string) (*CampaignDetailView, error) {
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

	campaign, err := s.campaignRepo(h.DB()).FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	details, err := s.detailRepo(h.DB()).FindByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	histogram := map[string]int{}
	for _, d := range details {
		histogram[d.Status]++
	}

	return &CampaignDetailView{
		Campaign: CampaignHeader{
			CampaignID:  campaign.ID,
			Name:        campaign.Name,
			Status:      campaign.Status,
			Recipients:  len(campaign.Recipients),
			Template:    campaign.Template,
			Schedule:    campaign.Schedule,
			PhoneSender: campaign.PhoneSender,
			CreatedAt:   campaign.CreatedAt,
		},
		Details:        details,
		DetailStatuses: histogram,
	}, nil
}

// MarkDetailStatus advances one detail's delivery status.
func (s *DetailService) MarkDetailStatus(ctx context.Context, accountID, detailID, status string) error {
	valid := false
	for _, st := range model.DetailStatuses {
		if st == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, status)
	}

	account, err := s.Registry.Resolve(ctx, accountID)
	if err != nil {
		return err
	}

	sess := s.NewSession()
	defer sess.Release()

	h, err := sess.Acquire(ctx, account.DBName)
	if err != nil {
		return err
	}

	repo := s.detailRepo(h.DB())
	detail, err := repo.GetByID(ctx, detailID)
	if err != nil {
		return err
	}
	if detail == nil {
		return appErrors.NewNotFound("campaign detail", detailID)
	}
	return repo.UpdateStatus(ctx, detailID, status)
}

func (s *DetailService) campaignRepo(db *sql.DB) repository.CampaignRepositoryInterface {
	if s.CampaignRepoFor != nil {
		return s.CampaignRepoFor(db)
	}
	return &repository.CampaignRepository{DB: db}
}

func (s *DetailService) detailRepo(db *sql.DB) repository.DetailRepositoryInterface {
	if s.DetailRepoFor != nil {
		return s.DetailRepoFor(db)
	}
	return &repository.DetailRepository{DB: db}
}

var regions = []string{"central", "coast", "north", "rift", "west"}

// RegionForPhone buckets a recipient into a delivery region. Deterministic
// on the phone number so regeneration assigns the same region.
func RegionForPhone(phone string) string {
	sum := 0
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			sum += int(c - '0')
		}
	}
	return regions[sum%len(regions)]
}
