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

// AccountRepositoryInterface is the account collaborator over the global store.
type AccountRepositoryInterface interface {
	Create(ctx context.Context, a *model.Account) error
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Account, error)
	FindAllByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Account, int, error)
	FindActiveByOwner(ctx context.Context, ownerID string) ([]*model.Account, error)
	AdjustBalance(ctx context.Context, id string, delta int64) error
	SoftDelete(ctx context.Context, id, ownerID string) (*model.Account, error)
}

type AccountRepository struct {
	DB *sql.DB
}

const accountColumns = `id, name, email, db_name, balance, created_at, created_by, deleted_at`

func (r *AccountRepository) Create(ctx context.Context, a *model.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO accounts (id, name, email, db_name, balance, created_at, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.ExecContext(ctx, query, a.ID, a.Name, a.Email, a.DBName, a.Balance, a.CreatedAt, a.CreatedBy)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return appErrors.NewConflict("account", a.Name)
		}
		return err
	}
	return nil
}

// FindByID returns an active account regardless of owner. Soft-deleted
// accounts count as not found.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1 AND deleted_at IS NULL`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id), id)
}

func (r *AccountRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1 AND created_by=$2 AND deleted_at IS NULL`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, id, ownerID), id)
}

func (r *AccountRepository) FindAllByOwner(ctx context.Context, ownerID string, offset, limit int) ([]*model.Account, int, error) {
	query := `
        SELECT ` + accountColumns + `
        FROM accounts
        WHERE created_by=$1 AND deleted_at IS NULL
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := []*model.Account{}
	for rows.Next() {
		a := &model.Account{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.DBName, &a.Balance, &a.CreatedAt, &a.CreatedBy, &a.DeletedAt); err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM accounts WHERE created_by=$1 AND deleted_at IS NULL`
	if err := r.DB.QueryRowContext(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	return accounts, total, nil
}

// FindActiveByOwner returns every active account of one owner, without
// pagination. Federated listings resolve their tenant set through this.
func (r *AccountRepository) FindActiveByOwner(ctx context.Context, ownerID string) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE created_by=$1 AND deleted_at IS NULL ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*model.Account{}
	for rows.Next() {
		a := &model.Account{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.DBName, &a.Balance, &a.CreatedAt, &a.CreatedBy, &a.DeletedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AdjustBalance applies delta atomically. A delta that would drive the
// balance negative fails with ErrInsufficientBalance before any mutation.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id string, delta int64) error {
	query := `
        UPDATE accounts
        SET balance = balance + $1
        WHERE id=$2 AND deleted_at IS NULL AND balance + $1 >= 0
    `
	res, err := r.DB.ExecContext(ctx, query, delta, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return appErrors.NewInsufficientBalance(id, -delta)
	}
	return nil
}

func (r *AccountRepository) SoftDelete(ctx context.Context, id, ownerID string) (*model.Account, error) {
	account, err := r.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `UPDATE accounts SET deleted_at=$1 WHERE id=$2 AND deleted_at IS NULL`
	if _, err := r.DB.ExecContext(ctx, query, now, id); err != nil {
		return nil, err
	}
	account.DeletedAt = &now
	return account, nil
}

func (r *AccountRepository) scanOne(row *sql.Row, id string) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.DBName, &a.Balance, &a.CreatedAt, &a.CreatedBy, &a.DeletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("account", id)
		}
		return nil, err
	}
	return a, nil
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
