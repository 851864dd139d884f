package forms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx used by the store. Both *pgxpool.Pool and pgx.Tx
// satisfy it, so the store can run inside a caller's transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists forms.
type Store struct {
	db DB
}

// NewStore binds a store to a pool or an open transaction.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const formColumns = `id, number, edited_number, date, formable_type, formable_id,
approval_status, approval_by, approval_at, approval_reason,
cancellation_status, cancellation_requested_by, cancellation_reason,
cancellation_approval_by, cancellation_approval_at, cancellation_approval_reason,
close_status, close_reason, close_approval_by, close_approval_at,
done, request_approval_to, increment, increment_group, created_by, created_at`

// NextIncrement reserves the next increment within a monthly group.
func (s *Store) NextIncrement(ctx context.Context, group int) (int, error) {
	var next int
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(increment), 0) + 1 FROM forms WHERE increment_group = $1`, group).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Insert persists a new form. A duplicate number maps to ErrNumberTaken.
func (s *Store) Insert(ctx context.Context, form Form) (Form, error) {
	err := s.db.QueryRow(ctx, `INSERT INTO forms
(number, edited_number, date, formable_type, formable_id, approval_status, approval_reason,
 done, request_approval_to, increment, increment_group, created_by)
VALUES (NULLIF($1,''), NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id, created_at`,
		form.Number, form.EditedNumber, form.Date, form.FormableType, form.FormableID,
		form.ApprovalStatus, form.ApprovalReason, form.Done, form.RequestApprovalTo,
		form.Increment, form.IncrementGroup, form.CreatedBy,
	).Scan(&form.ID, &form.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Form{}, ErrNumberTaken
		}
		return Form{}, err
	}
	return form, nil
}

// Get loads a form by id.
func (s *Store) Get(ctx context.Context, id int64) (Form, error) {
	row := s.db.QueryRow(ctx, `SELECT `+formColumns+` FROM forms WHERE id = $1`, id)
	return scanForm(row)
}

// GetByFormable loads the form of a document version. Archived versions keep
// their form with a cleared number, so no number filter applies here.
func (s *Store) GetByFormable(ctx context.Context, formableType string, formableID int64) (Form, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+formColumns+` FROM forms
WHERE formable_type = $1 AND formable_id = $2 ORDER BY id DESC LIMIT 1`,
		formableType, formableID)
	return scanForm(row)
}

// Archive moves the form's number to edited_number and clears number, making
// room for the replacement version created by an edit.
func (s *Store) Archive(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE forms SET edited_number = number, number = NULL WHERE id = $1 AND number IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Update persists the mutable workflow fields of a form.
func (s *Store) Update(ctx context.Context, form Form) error {
	tag, err := s.db.Exec(ctx, `UPDATE forms SET
approval_status = $2, approval_by = $3, approval_at = $4, approval_reason = $5,
cancellation_status = $6, cancellation_requested_by = $7, cancellation_reason = $8,
cancellation_approval_by = $9, cancellation_approval_at = $10, cancellation_approval_reason = $11,
close_status = $12, close_reason = $13, close_approval_by = $14, close_approval_at = $15,
done = $16, request_approval_to = $17
WHERE id = $1`,
		form.ID,
		form.ApprovalStatus, zeroNull(form.ApprovalBy), form.ApprovalAt, form.ApprovalReason,
		form.CancellationStatus, zeroNull(form.CancellationRequestedBy), form.CancellationReason,
		zeroNull(form.CancellationApprovalBy), form.CancellationApprovalAt, form.CancellationApprovalReason,
		form.CloseStatus, form.CloseReason, zeroNull(form.CloseApprovalBy), form.CloseApprovalAt,
		form.Done, zeroNull(form.RequestApprovalTo),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanForm(row pgx.Row) (Form, error) {
	var f Form
	var number, editedNumber *string
	var approvalBy, cancellationRequestedBy, cancellationApprovalBy, closeApprovalBy, requestApprovalTo *int64
	err := row.Scan(
		&f.ID, &number, &editedNumber, &f.Date, &f.FormableType, &f.FormableID,
		&f.ApprovalStatus, &approvalBy, &f.ApprovalAt, &f.ApprovalReason,
		&f.CancellationStatus, &cancellationRequestedBy, &f.CancellationReason,
		&cancellationApprovalBy, &f.CancellationApprovalAt, &f.CancellationApprovalReason,
		&f.CloseStatus, &f.CloseReason, &closeApprovalBy, &f.CloseApprovalAt,
		&f.Done, &requestApprovalTo, &f.Increment, &f.IncrementGroup, &f.CreatedBy, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Form{}, ErrNotFound
		}
		return Form{}, err
	}
	if number != nil {
		f.Number = *number
	}
	if editedNumber != nil {
		f.EditedNumber = *editedNumber
	}
	f.ApprovalBy = deref(approvalBy)
	f.CancellationRequestedBy = deref(cancellationRequestedBy)
	f.CancellationApprovalBy = deref(cancellationApprovalBy)
	f.CloseApprovalBy = deref(closeApprovalBy)
	f.RequestApprovalTo = deref(requestApprovalTo)
	return f, nil
}

func zeroNull(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
