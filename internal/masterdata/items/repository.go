package items

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a missing item.
var ErrNotFound = errors.New("items: not found")

// DB is the pgx subset used by the repository; satisfied by a pool or a tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads item master data.
type Repository struct {
	db DB
}

// NewRepository binds the repository to a pool or transaction.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// Get loads one item.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	var item Item
	var account *int64
	err := r.db.QueryRow(ctx, `SELECT id, code, name, label, unit, chart_of_account_id,
require_expiry_date, require_production_number FROM items WHERE id = $1`, id).
		Scan(&item.ID, &item.Code, &item.Name, &item.Label, &item.Unit, &account,
			&item.RequireExpiryDate, &item.RequireProductionNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	if account != nil {
		item.ChartOfAccountID = *account
	}
	return item, nil
}

// Cogs returns the current unit cost basis of an item. It is read at posting
// time, never cached on the document.
func (r *Repository) Cogs(ctx context.Context, id int64) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRow(ctx, `SELECT COALESCE(cogs, 0)::text FROM items WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}
