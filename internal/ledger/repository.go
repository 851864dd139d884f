package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgx subset used by the store; satisfied by *pgxpool.Pool and
// pgx.Tx, so the same store type serves both reads and transactional writes.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists ledger entries in the inventories table.
type PGStore struct {
	db DB
}

// NewStore binds a store to a pool or an open transaction.
func NewStore(db DB) *PGStore {
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

// Insert appends one entry.
func (s *PGStore) Insert(ctx context.Context, entry Entry) error {
	_, err := s.db.Exec(ctx, `INSERT INTO inventories
(form_id, form_date, warehouse_id, item_id, quantity, unit, converter, production_number, expiry_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.FormID, entry.FormDate, entry.WarehouseID, entry.ItemID,
		entry.Quantity, entry.Unit, entry.Converter, entry.ProductionNumber, entry.ExpiryDate)
	return err
}

// LockLot takes a transaction-scoped advisory lock on the lot key, serialising
// the sufficiency check against concurrent decreases of the same lot.
func (s *PGStore) LockLot(ctx context.Context, key LotKey) error {
	_, err := s.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String())
	return err
}

// SumLot computes the signed base-unit sum for one lot.
func (s *PGStore) SumLot(ctx context.Context, key LotKey, asOf time.Time, excludeFormID int64) (float64, error) {
	query := `SELECT COALESCE(SUM(quantity * converter), 0) FROM inventories
WHERE item_id = $1 AND warehouse_id = $2
AND production_number IS NOT DISTINCT FROM $3
AND expiry_date IS NOT DISTINCT FROM $4`
	args := []any{key.ItemID, key.WarehouseID, key.ProductionNumber, key.ExpiryDate}
	if !asOf.IsZero() {
		args = append(args, asOf)
		query += ` AND form_date < $5`
		if excludeFormID != 0 {
			args = append(args, excludeFormID)
			query += ` AND form_id <> $6`
		}
	} else if excludeFormID != 0 {
		args = append(args, excludeFormID)
		query += ` AND form_id <> $5`
	}
	var sum float64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// DeleteByForm removes every entry tied to the form.
func (s *PGStore) DeleteByForm(ctx context.Context, formID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM inventories WHERE form_id = $1`, formID)
	return err
}

// ListByForm returns the form's entries, oldest first.
func (s *PGStore) ListByForm(ctx context.Context, formID int64) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, form_id, form_date, warehouse_id, item_id,
quantity, unit, converter, production_number, expiry_date, created_at
FROM inventories WHERE form_id = $1 ORDER BY id`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.FormID, &e.FormDate, &e.WarehouseID, &e.ItemID,
			&e.Quantity, &e.Unit, &e.Converter, &e.ProductionNumber, &e.ExpiryDate, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
