// internal/model/account.go
package model

import "time"

// Account is the tenant descriptor kept in the global store. DBName is the
// generated name of the account's own database and is immutable once assigned.
type Account struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Email     string     `db:"email" json:"email"`
	DBName    string     `db:"db_name" json:"db_name"`
	Balance   int64      `db:"balance" json:"balance"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	CreatedBy string     `db:"created_by" json:"created_by"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
