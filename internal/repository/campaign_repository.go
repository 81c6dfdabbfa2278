package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/mtandao/campaignhub-backend/internal/errors"
	"github.com/mtandao/campaignhub-backend/internal/model"
)

// CampaignQuery is the per-tenant predicate of a federated listing. Search
// and Status are applied inside each tenant store, before the merge.
type CampaignQuery struct {
	AccountID string
	Search    string
	Status    string
}

// CampaignRepositoryInterface is the per-tenant campaign collaborator. A
// repository instance is bound to one tenant store handle.
type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	FindMatching(ctx context.Context, q CampaignQuery) ([]*model.Campaign, error)
	SoftDelete(ctx context.Context, id, accountID string) (*model.Campaign, error)
	StatusCounts(ctx context.Context, accountID string) (map[string]int, int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, recipients, status, template, schedule, phone_sender, created_by, created_at, deleted_at`

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusCreated
	}
	recipients, err := json.Marshal(c.Recipients)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO campaigns (id, name, recipients, status, template, schedule, phone_sender, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = r.DB.ExecContext(ctx, query,
		c.ID, c.Name, recipients, c.Status, c.Template, c.Schedule, c.PhoneSender, c.CreatedBy, c.CreatedAt,
	)
	return err
}

func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1 AND deleted_at IS NULL`
	row := r.DB.QueryRowContext(ctx, query, id)

	c, err := scanCampaign(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("campaign", id)
		}
		return nil, err
	}
	return c, nil
}

// FindMatching returns every active campaign of the account that matches the
// predicate. No ordering: a global sort happens after the merge, never here.
func (r *CampaignRepository) FindMatching(ctx context.Context, q CampaignQuery) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE created_by=$1 AND deleted_at IS NULL`
	args := []interface{}{q.AccountID}
	argPos := 2

	if q.Search != "" {
		query += ` AND name ILIKE '%' || $2 || '%'`
		args = append(args, q.Search)
		argPos++
	}
	if q.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, q.Status)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows.Scan)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) SoftDelete(ctx context.Context, id, accountID string) (*model.Campaign, error) {
	campaign, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.CreatedBy != accountID {
		return nil, appErrors.NewNotFound("campaign", id)
	}

	now := time.Now()
	query := `UPDATE campaigns SET deleted_at=$1 WHERE id=$2 AND deleted_at IS NULL`
	if _, err := r.DB.ExecContext(ctx, query, now, id); err != nil {
		return nil, err
	}
	campaign.DeletedAt = &now
	return campaign, nil
}

// StatusCounts returns the campaign status histogram and total for one
// account, computed inside the tenant store.
func (r *CampaignRepository) StatusCounts(ctx context.Context, accountID string) (map[string]int, int, error) {
	query := `
        SELECT status, COUNT(*)
        FROM campaigns
        WHERE created_by=$1 AND deleted_at IS NULL
        GROUP BY status
    `
	rows, err := r.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := map[string]int{}
	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, 0, err
		}
		counts[status] = count
		total += count
	}
	return counts, total, rows.Err()
}

func scanCampaign(scan func(dest ...interface{}) error) (*model.Campaign, error) {
	c := &model.Campaign{}
	var recipients []byte
	err := scan(&c.ID, &c.Name, &recipients, &c.Status, &c.Template, &c.Schedule, &c.PhoneSender, &c.CreatedBy, &c.CreatedAt, &c.DeletedAt)
	if err != nil {
		return nil, err
	}
	if len(recipients) > 0 {
		if err := json.Unmarshal(recipients, &c.Recipients); err != nil {
			return nil, err
		}
	}
	return c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
