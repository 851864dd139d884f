package forms

import (
	"errors"
	"fmt"
	"time"
)

// Status is shared by the approval, cancellation and close tracks.
type Status int

const (
	// StatusPending marks a form waiting for a decision.
	StatusPending Status = 0
	// StatusApproved marks an approved form.
	StatusApproved Status = 1
	// StatusRejected marks a rejected form.
	StatusRejected Status = -1
)

// Formable is implemented by every document variant that owns a form.
type Formable interface {
	FormableType() string
	FormableID() int64
}

// Form is the numbering and approval envelope wrapping a movement document.
// Exactly one form exists per document version; Number is empty on archived
// (superseded) versions, which keep the old number in EditedNumber.
type Form struct {
	ID           int64
	Number       string
	EditedNumber string
	Date         time.Time
	FormableType string
	FormableID   int64

	ApprovalStatus Status
	ApprovalBy     int64
	ApprovalAt     *time.Time
	ApprovalReason string

	CancellationStatus         *Status
	CancellationRequestedBy    int64
	CancellationReason         string
	CancellationApprovalBy     int64
	CancellationApprovalAt     *time.Time
	CancellationApprovalReason string

	CloseStatus     *Status
	CloseReason     string
	CloseApprovalBy int64
	CloseApprovalAt *time.Time

	Done bool

	RequestApprovalTo int64
	Increment         int
	IncrementGroup    int

	CreatedBy int64
	CreatedAt time.Time
}

// ErrNumberTaken indicates the generated form number already exists.
var ErrNumberTaken = errors.New("forms: number already taken")

// ErrNotFound indicates a missing form row.
var ErrNotFound = errors.New("forms: not found")

// IncrementGroup derives the monthly numbering group for a form date.
func IncrementGroup(date time.Time) int {
	return date.Year()*100 + int(date.Month())
}

// BuildNumber renders a document number from its prefix, date and increment,
// e.g. TI-202608-00042.
func BuildNumber(prefix string, date time.Time, increment int) string {
	return fmt.Sprintf("%s-%d%02d-%05d", prefix, date.Year(), int(date.Month()), increment)
}

// IsCancellationRequested reports whether cancellation has been requested and
// not yet decided.
func (f Form) IsCancellationRequested() bool {
	return f.CancellationStatus != nil && *f.CancellationStatus == StatusPending
}

// IsCancellationApproved reports whether the form's cancellation was approved.
func (f Form) IsCancellationApproved() bool {
	return f.CancellationStatus != nil && *f.CancellationStatus == StatusApproved
}

// IsCloseApproved reports whether the form has been closed.
func (f Form) IsCloseApproved() bool {
	return f.CloseStatus != nil && *f.CloseStatus == StatusApproved
}

// StatusRef returns a pointer to s, for the nullable cancellation/close tracks.
func StatusRef(s Status) *Status {
	return &s
}
