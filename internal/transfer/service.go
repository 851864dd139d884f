package transfer

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/journal"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

// Service implements the movement document lifecycle: create, edit-as-archive,
// approval, cancellation and close for transfer, receive and direct-customer
// documents.
type Service struct {
	repo       RepositoryPort
	warehouses WarehousePort
	customers  CustomerPort
	audit      AuditPort
	notifier   NotifierPort
	log        *slog.Logger
	now        func() time.Time
}

// NewService wires the service. audit and notifier may be nil; their failures
// are logged and never fail the business operation.
func NewService(repo RepositoryPort, warehouses WarehousePort, customers CustomerPort, audit AuditPort, notifier NotifierPort, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:       repo,
		warehouses: warehouses,
		customers:  customers,
		audit:      audit,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// GetTransferItem loads one transfer document with its lines and form.
func (s *Service) GetTransferItem(ctx context.Context, id int64) (TransferItem, error) {
	return s.repo.GetTransferItem(ctx, id)
}

// ListTransferItems pages over active transfer documents, newest first.
func (s *Service) ListTransferItems(ctx context.Context, filter ListFilter) ([]TransferItem, error) {
	return s.repo.ListTransferItems(ctx, filter)
}

// CreateTransfer creates a pending TransferItem. No stock or journal effect
// happens here; both are deferred to approval.
func (s *Service) CreateTransfer(ctx context.Context, in CreateTransferInput) (TransferItem, error) {
	if len(in.Items) == 0 {
		return TransferItem{}, ErrNoLines
	}
	if _, err := s.warehouses.Get(ctx, in.WarehouseID); err != nil {
		return TransferItem{}, err
	}
	if _, err := s.warehouses.Get(ctx, in.ToWarehouseID); err != nil {
		return TransferItem{}, err
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := s.buildOutgoingLines(ctx, tx, in.WarehouseID, in.Items, 0)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}
		id, err := tx.InsertTransferItem(ctx, TransferItem{
			WarehouseID:   in.WarehouseID,
			ToWarehouseID: in.ToWarehouseID,
			Driver:        in.Driver,
			Notes:         NormalizeNotes(in.Notes),
			Items:         lines,
		})
		if err != nil {
			return err
		}
		if _, err := s.issueForm(ctx, tx, NumberPrefixTransferItem, FormableTypeTransferItem, id, in.Date, in.RequestApprovalTo, actor.ID); err != nil {
			return err
		}
		doc, err = tx.GetTransferItem(ctx, id)
		return err
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "created", doc.Form)
	s.requestApproval(ctx, doc.Form)
	return doc, nil
}

// UpdateTransfer replaces a pending transfer with a new version. The old form
// is archived (its number moves to edited_number) and the new version reuses
// the old document number and increment.
func (s *Service) UpdateTransfer(ctx context.Context, in UpdateTransferInput) (TransferItem, error) {
	if len(in.Items) == 0 {
		return TransferItem{}, ErrNoLines
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		if err := s.guardTransferEdit(ctx, tx, existing); err != nil {
			return err
		}
		lines, err := s.buildOutgoingLines(ctx, tx, in.WarehouseID, in.Items, existing.Form.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}
		if err := tx.Forms().Archive(ctx, existing.Form.ID); err != nil {
			return err
		}
		id, err := tx.InsertTransferItem(ctx, TransferItem{
			WarehouseID:   in.WarehouseID,
			ToWarehouseID: in.ToWarehouseID,
			Driver:        in.Driver,
			Notes:         NormalizeNotes(in.Notes),
			Items:         lines,
		})
		if err != nil {
			return err
		}
		if _, err := s.reissueForm(ctx, tx, existing.Form, FormableTypeTransferItem, id, in.Date, in.RequestApprovalTo, actor.ID); err != nil {
			return err
		}
		doc, err = tx.GetTransferItem(ctx, id)
		return err
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "updated", doc.Form)
	s.requestApproval(ctx, doc.Form)
	return doc, nil
}

func (s *Service) guardTransferEdit(ctx context.Context, tx TxRepository, doc TransferItem) error {
	if doc.Form.IsCancellationApproved() {
		return ErrAlreadyCancelled
	}
	referenced, err := tx.HasReceiveItems(ctx, doc.ID)
	if err != nil {
		return err
	}
	if referenced {
		return ErrEditReferencedByReceive
	}
	if doc.Form.IsCloseApproved() {
		return ErrEditFormClosed
	}
	if doc.Form.ApprovalStatus == forms.StatusApproved {
		return ErrAlreadyApproved
	}
	return nil
}

// DeleteTransfer requests cancellation of a transfer. The document stays in
// place until the cancellation is approved; a done transfer cannot be deleted.
func (s *Service) DeleteTransfer(ctx context.Context, in DecisionInput) error {
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var form forms.Form
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form = doc.Form
		if form.Done {
			return ErrDeleteFormDone
		}
		if form.IsCancellationApproved() {
			return ErrAlreadyCancelled
		}
		form.CancellationStatus = forms.StatusRef(forms.StatusPending)
		form.CancellationRequestedBy = actor.ID
		form.CancellationReason = in.Reason
		return tx.Forms().Update(ctx, form)
	})
	if err != nil {
		return err
	}
	s.recordActivity(ctx, "cancellation requested", form)
	return nil
}

// ApproveTransfer posts the transfer: stock leaves the source warehouse into
// the distribution warehouse, and a balanced journal pair is written per item
// at the item's current cost basis. Sufficiency is re-checked under a lot lock
// inside the same transaction.
func (s *Service) ApproveTransfer(ctx context.Context, in DecisionInput) (TransferItem, error) {
	actor := shared.ActorFromContext(ctx)
	distribution, err := s.warehouses.Distribution(ctx)
	if err != nil {
		return TransferItem{}, err
	}
	var doc TransferItem
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err = tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.ApprovalStatus == forms.StatusApproved {
			return ErrAlreadyApproved
		}
		if form.IsCancellationApproved() {
			return ErrAlreadyCancelled
		}
		journalLines := make([]journal.Line, 0, len(doc.Items))
		for _, line := range doc.Items {
			item, err := tx.Items().Get(ctx, line.ItemID)
			if err != nil {
				return err
			}
			opts := ledger.LotOptions{ProductionNumber: line.ProductionNumber, ExpiryDate: line.ExpiryDate}
			if err := tx.Ledger().Decrease(ctx, form, doc.WarehouseID, item, line.Quantity, line.Unit, line.Converter, opts); err != nil {
				return err
			}
			if err := tx.Ledger().Increase(ctx, form, distribution.ID, item, line.Quantity, line.Unit, line.Converter, opts); err != nil {
				return err
			}
			cogs, err := tx.Items().Cogs(ctx, line.ItemID)
			if err != nil {
				return err
			}
			journalLines = append(journalLines, journal.Line{Item: item, Quantity: line.BaseQuantity(), Cogs: cogs})
		}
		if err := tx.Journal().PostTransfer(ctx, form.ID, journalLines); err != nil {
			return err
		}
		now := s.now()
		form.ApprovalStatus = forms.StatusApproved
		form.ApprovalBy = actor.ID
		form.ApprovalAt = &now
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "approved", doc.Form)
	return doc, nil
}

// RejectTransfer rejects a pending transfer with a reason. Nothing was posted
// yet, so no reversal is needed.
func (s *Service) RejectTransfer(ctx context.Context, in DecisionInput) (TransferItem, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return TransferItem{}, ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.ApprovalStatus == forms.StatusApproved {
			return ErrAlreadyApproved
		}
		now := s.now()
		form.ApprovalStatus = forms.StatusRejected
		form.ApprovalBy = actor.ID
		form.ApprovalAt = &now
		form.ApprovalReason = in.Reason
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "rejected", doc.Form)
	return doc, nil
}

// ApproveTransferCancellation reverses the document's postings (if any) by
// deleting its ledger and journal rows, then marks the cancellation approved.
func (s *Service) ApproveTransferCancellation(ctx context.Context, in DecisionInput) (TransferItem, error) {
	actor := shared.ActorFromContext(ctx)
	var doc TransferItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.IsCancellationApproved() {
			return ErrAlreadyCancelled
		}
		if form.CancellationStatus == nil {
			return ErrCancellationNotRequested
		}
		if err := tx.Journal().DeleteByForm(ctx, form.ID); err != nil {
			return err
		}
		if err := tx.Ledger().DeleteByForm(ctx, form.ID); err != nil {
			return err
		}
		now := s.now()
		form.CancellationStatus = forms.StatusRef(forms.StatusApproved)
		form.CancellationApprovalBy = actor.ID
		form.CancellationApprovalAt = &now
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "cancellation approved", doc.Form)
	return doc, nil
}

// RejectTransferCancellation declines a pending cancellation request.
func (s *Service) RejectTransferCancellation(ctx context.Context, in DecisionInput) (TransferItem, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return TransferItem{}, ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.IsCancellationApproved() {
			return ErrAlreadyCancelled
		}
		if form.CancellationStatus == nil {
			return ErrCancellationNotRequested
		}
		now := s.now()
		form.CancellationStatus = forms.StatusRef(forms.StatusRejected)
		form.CancellationApprovalBy = actor.ID
		form.CancellationApprovalAt = &now
		form.CancellationApprovalReason = in.Reason
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "cancellation rejected", doc.Form)
	return doc, nil
}

// CloseTransfer requests closing a transfer whose shipment will never be fully
// received. A done transfer cannot be closed.
func (s *Service) CloseTransfer(ctx context.Context, in DecisionInput) (TransferItem, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return TransferItem{}, ErrReasonRequired
	}
	var doc TransferItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.Done {
			return ErrCloseFormDone
		}
		if form.IsCloseApproved() {
			return ErrAlreadyClosed
		}
		form.CloseStatus = forms.StatusRef(forms.StatusPending)
		form.CloseReason = in.Reason
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "close requested", doc.Form)
	return doc, nil
}

// ApproveTransferClose closes the transfer: each declared sent/received
// difference is written off from the distribution warehouse, lot by lot along
// the lines the transfer shipped, and expensed against the difference-stock
// account, then the form is marked done.
func (s *Service) ApproveTransferClose(ctx context.Context, in CloseApproveInput) (TransferItem, error) {
	actor := shared.ActorFromContext(ctx)
	distribution, err := s.warehouses.Distribution(ctx)
	if err != nil {
		return TransferItem{}, err
	}
	var doc TransferItem
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err = tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.IsCloseApproved() {
			return ErrAlreadyClosed
		}
		if form.CloseStatus == nil {
			return ErrCloseNotRequested
		}
		journalLines := make([]journal.Line, 0, len(in.Items))
		for _, diff := range in.Items {
			if diff.Difference <= 0 {
				continue
			}
			item, err := tx.Items().Get(ctx, diff.ItemID)
			if err != nil {
				return err
			}
			if err := writeOffDifference(ctx, tx, form, distribution.ID, item, doc.Items, diff.Difference); err != nil {
				return err
			}
			cogs, err := tx.Items().Cogs(ctx, diff.ItemID)
			if err != nil {
				return err
			}
			journalLines = append(journalLines, journal.Line{Item: item, Quantity: diff.Difference, Cogs: cogs})
		}
		if err := tx.Journal().PostDifference(ctx, form.ID, journalLines); err != nil {
			return err
		}
		now := s.now()
		form.CloseStatus = forms.StatusRef(forms.StatusApproved)
		form.CloseApprovalBy = actor.ID
		form.CloseApprovalAt = &now
		form.Done = true
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "close approved", doc.Form)
	return doc, nil
}

// RejectTransferClose declines a pending close request.
func (s *Service) RejectTransferClose(ctx context.Context, in DecisionInput) (TransferItem, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return TransferItem{}, ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetTransferItem(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.IsCloseApproved() {
			return ErrAlreadyClosed
		}
		if form.CloseStatus == nil {
			return ErrCloseNotRequested
		}
		now := s.now()
		form.CloseStatus = forms.StatusRef(forms.StatusRejected)
		form.CloseReason = in.Reason
		form.CloseApprovalBy = actor.ID
		form.CloseApprovalAt = &now
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return TransferItem{}, err
	}
	s.recordActivity(ctx, "close rejected", doc.Form)
	return doc, nil
}

// writeOffDifference removes a declared lost quantity from the distribution
// warehouse, spread over the lots the transfer's lines shipped under. Each lot
// absorbs up to its live distribution stock; receives posted under the same
// lot keys already net themselves out of those sums. The difference must be
// fully absorbed or the close fails.
func writeOffDifference(ctx context.Context, tx TxRepository, form forms.Form, distributionID int64, item items.Item, sent []Line, difference float64) error {
	remaining := difference
	for _, line := range sent {
		if line.ItemID != item.ID || remaining <= balanceEpsilon {
			continue
		}
		opts := ledger.LotOptions{ProductionNumber: line.ProductionNumber, ExpiryDate: line.ExpiryDate}
		stock, err := tx.Ledger().CurrentStock(ctx, item, time.Time{}, distributionID, opts)
		if err != nil {
			return err
		}
		if stock <= 0 {
			continue
		}
		qty := remaining
		if stock < qty {
			qty = stock
		}
		if err := tx.Ledger().Decrease(ctx, form, distributionID, item, qty, item.Unit, 1, opts); err != nil {
			return err
		}
		remaining -= qty
	}
	if remaining > balanceEpsilon {
		return &ledger.StockNotEnoughError{Item: item, Stock: difference - remaining}
	}
	return nil
}

// Histories lists the recorded workflow activity of one document.
func (s *Service) Histories(ctx context.Context, formableType string, formableID int64) ([]shared.AuditLog, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.List(ctx, formableType, strconv.FormatInt(formableID, 10))
}

// buildOutgoingLines expands, validates and converts submitted lines for a
// document that decreases warehouse stock. Zero-quantity lines are dropped.
func (s *Service) buildOutgoingLines(ctx context.Context, tx TxRepository, warehouseID int64, inputs []LineInput, excludeFormID int64) ([]Line, error) {
	var lines []Line
	for _, in := range inputs {
		item, err := tx.Items().Get(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		expanded, err := expandLots(item, in, lotOutgoing)
		if err != nil {
			return nil, err
		}
		for _, exp := range expanded {
			if exp.Quantity == 0 {
				continue
			}
			if err := validateOutgoingLine(ctx, tx.Ledger(), item, warehouseID, exp, excludeFormID); err != nil {
				return nil, err
			}
			lines = append(lines, toLine(item, exp))
		}
	}
	return lines, nil
}

// issueForm reserves the next increment in the date's monthly group and
// inserts a pending form with the rendered document number.
func (s *Service) issueForm(ctx context.Context, tx TxRepository, prefix, formableType string, formableID int64, date time.Time, requestApprovalTo, createdBy int64) (forms.Form, error) {
	group := forms.IncrementGroup(date)
	increment, err := tx.Forms().NextIncrement(ctx, group)
	if err != nil {
		return forms.Form{}, err
	}
	return tx.Forms().Insert(ctx, forms.Form{
		Number:            forms.BuildNumber(prefix, date, increment),
		Date:              date,
		FormableType:      formableType,
		FormableID:        formableID,
		ApprovalStatus:    forms.StatusPending,
		RequestApprovalTo: requestApprovalTo,
		Increment:         increment,
		IncrementGroup:    group,
		CreatedBy:         createdBy,
	})
}

// reissueForm inserts the replacement form of an edited document, carrying
// over the archived version's number and increment.
func (s *Service) reissueForm(ctx context.Context, tx TxRepository, old forms.Form, formableType string, formableID int64, date time.Time, requestApprovalTo, createdBy int64) (forms.Form, error) {
	return tx.Forms().Insert(ctx, forms.Form{
		Number:            old.Number,
		Date:              date,
		FormableType:      formableType,
		FormableID:        formableID,
		ApprovalStatus:    forms.StatusPending,
		RequestApprovalTo: requestApprovalTo,
		Increment:         old.Increment,
		IncrementGroup:    old.IncrementGroup,
		CreatedBy:         createdBy,
	})
}

func (s *Service) recordActivity(ctx context.Context, action string, form forms.Form) {
	if s.audit == nil {
		return
	}
	actor := shared.ActorFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   form.FormableType,
		EntityID: strconv.FormatInt(form.FormableID, 10),
		Meta:     map[string]any{"form_id": form.ID, "number": form.Number},
		At:       s.now(),
	})
	if err != nil {
		s.log.Warn("audit record failed", "action", action, "form_id", form.ID, "error", err)
	}
}

func (s *Service) requestApproval(ctx context.Context, form forms.Form) {
	if s.notifier == nil || form.RequestApprovalTo == 0 {
		return
	}
	err := s.notifier.NotifyApprovalRequest(ctx, ApprovalRequest{
		FormID:            form.ID,
		Number:            form.Number,
		DocumentType:      form.FormableType,
		RequestApprovalTo: form.RequestApprovalTo,
	})
	if err != nil {
		s.log.Warn("approval notification failed", "form_id", form.ID, "error", err)
	}
}
