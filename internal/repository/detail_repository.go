package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/model"
)

// DetailRepositoryInterface is the per-tenant campaign-detail collaborator.
type DetailRepositoryInterface interface {
	InsertMany(ctx context.Context, details []*model.CampaignDetail) error
	GetByID(ctx context.Context, id string) (*model.CampaignDetail, error)
	FindByCampaign(ctx context.Context, campaignID string) ([]*model.CampaignDetail, error)
	FindByCampaigns(ctx context.Context, campaignIDs []string) ([]*model.CampaignDetail, error)
	CountByCampaign(ctx context.Context, campaignID string) (int, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type DetailRepository struct {
	DB *sql.DB
}

const detailColumns = `id, campaign_id, name, recipient, region, message, status, created_at, updated_at`

// InsertMany inserts the whole batch in one transaction. Either every detail
// lands or none does; a unique (campaign_id, recipient) violation means a
// concurrent generation won the race and surfaces as Conflict.
func (r *DetailRepository) InsertMany(ctx context.Context, details []*model.CampaignDetail) error {
	if len(details) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO campaign_details (id, campaign_id, name, recipient, region, message, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range details {
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now()
		}
		if d.Status == "" {
			d.Status = model.DetailStatusPending
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.CampaignID, d.Name, d.Recipient, d.Region, d.Message, d.Status, d.CreatedAt); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return appErrors.NewConflict("campaign details", d.CampaignID)
			}
			return err
		}
	}

	return tx.Commit()
}

func (r *DetailRepository) GetByID(ctx context.Context, id string) (*model.CampaignDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM campaign_details WHERE id=$1`
	row := r.DB.QueryRowContext(ctx, query, id)

	d := &model.CampaignDetail{}
	err := row.Scan(&d.ID, &d.CampaignID, &d.Name, &d.Recipient, &d.Region, &d.Message, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return d, nil
}

func (r *DetailRepository) FindByCampaign(ctx context.Context, campaignID string) ([]*model.CampaignDetail, error) {
	return r.FindByCampaigns(ctx, []string{campaignID})
}

// FindByCampaigns fetches the details of several campaigns in one round trip.
func (r *DetailRepository) FindByCampaigns(ctx context.Context, campaignIDs []string) ([]*model.CampaignDetail, error) {
	if len(campaignIDs) == 0 {
		return []*model.CampaignDetail{}, nil
	}

	query := `SELECT ` + detailColumns + ` FROM campaign_details WHERE campaign_id = ANY($1)`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(campaignIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []*model.CampaignDetail{}
	for rows.Next() {
		d := &model.CampaignDetail{}
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.Name, &d.Recipient, &d.Region, &d.Message, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (r *DetailRepository) CountByCampaign(ctx context.Context, campaignID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM campaign_details WHERE campaign_id=$1`
	if err := r.DB.QueryRowContext(ctx, query, campaignID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DetailRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE campaign_details SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

var _ DetailRepositoryInterface = (*DetailRepository)(nil)
