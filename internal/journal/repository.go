package journal

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DB is the pgx subset used by the store; satisfied by a pool or a tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists journal rows in the journals table.
type PGStore struct {
	db DB
}

// NewStore binds a store to a pool or an open transaction.
func NewStore(db DB) *PGStore {
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

// Insert appends one journal row.
func (s *PGStore) Insert(ctx context.Context, entry Entry) error {
	_, err := s.db.Exec(ctx, `INSERT INTO journals
(form_id, journalable_type, journalable_id, chart_of_account_id, debit, credit)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.FormID, entry.JournalableType, entry.JournalableID,
		entry.ChartOfAccountID, entry.Debit.String(), entry.Credit.String())
	return err
}

// DeleteByForm removes every journal row tied to the form.
func (s *PGStore) DeleteByForm(ctx context.Context, formID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM journals WHERE form_id = $1`, formID)
	return err
}

// ListByForm returns the form's journal rows, oldest first.
func (s *PGStore) ListByForm(ctx context.Context, formID int64) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, form_id, journalable_type, journalable_id,
chart_of_account_id, debit::text, credit::text, created_at
FROM journals WHERE form_id = $1 ORDER BY id`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var debit, credit string
		if err := rows.Scan(&e.ID, &e.FormID, &e.JournalableType, &e.JournalableID,
			&e.ChartOfAccountID, &debit, &credit, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, err
		}
		if e.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
