package transfer

import (
	"context"
	"strings"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/journal"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

// GetReceiveItem loads one receive document with its lines and form.
func (s *Service) GetReceiveItem(ctx context.Context, id int64) (ReceiveItem, error) {
	return s.repo.GetReceiveItem(ctx, id)
}

// ListReceiveItems pages over active receive documents, newest first.
func (s *Service) ListReceiveItems(ctx context.Context, filter ListFilter) ([]ReceiveItem, error) {
	return s.repo.ListReceiveItems(ctx, filter)
}

// CreateReceive creates a pending ReceiveItem against an approved transfer.
// Its warehouses must agree with the transfer: warehouse_id receives what
// to_warehouse_id was promised, from_warehouse_id names the original source.
func (s *Service) CreateReceive(ctx context.Context, in CreateReceiveInput) (ReceiveItem, error) {
	if len(in.Items) == 0 {
		return ReceiveItem{}, ErrNoLines
	}
	actor := shared.ActorFromContext(ctx)
	var doc ReceiveItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		parent, err := tx.GetTransferItem(ctx, in.TransferItemID)
		if err != nil {
			return err
		}
		if err := guardReceiveAgainstTransfer(parent, in.WarehouseID, in.FromWarehouseID); err != nil {
			return err
		}
		lines, err := s.buildReceiveLines(ctx, tx, parent, in.Items)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}
		id, err := tx.InsertReceiveItem(ctx, ReceiveItem{
			TransferItemID:  in.TransferItemID,
			WarehouseID:     in.WarehouseID,
			FromWarehouseID: in.FromWarehouseID,
			Driver:          in.Driver,
			Notes:           NormalizeNotes(in.Notes),
			Items:           lines,
		})
		if err != nil {
			return err
		}
		if _, err := s.issueForm(ctx, tx, NumberPrefixReceiveItem, FormableTypeReceiveItem, id, in.Date, in.RequestApprovalTo, actor.ID); err != nil {
			return err
		}
		doc, err = tx.GetReceiveItem(ctx, id)
		return err
	})
	if err != nil {
		return ReceiveItem{}, err
	}
	s.recordActivity(ctx, "created", doc.Form)
	s.requestApproval(ctx, doc.Form)
	return doc, nil
}

// UpdateReceive replaces a pending receive with a new version, reusing the
// archived version's number.
func (s *Service) UpdateReceive(ctx context.Context, in UpdateReceiveInput) (ReceiveItem, error) {
	if len(in.Items) == 0 {
		return ReceiveItem{}, ErrNoLines
	}
	actor := shared.ActorFromContext(ctx)
	var doc ReceiveItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetReceiveItem(ctx, in.ID)
		if err != nil {
			return err
		}
		if existing.Form.IsCancellationApproved() {
			return ErrAlreadyCancelled
		}
		if existing.Form.ApprovalStatus == forms.StatusApproved {
			return ErrAlreadyApproved
		}
		parent, err := tx.GetTransferItem(ctx, in.TransferItemID)
		if err != nil {
			return err
		}
		if err := guardReceiveAgainstTransfer(parent, in.WarehouseID, in.FromWarehouseID); err != nil {
			return err
		}
		lines, err := s.buildReceiveLines(ctx, tx, parent, in.Items)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}
		if err := tx.Forms().Archive(ctx, existing.Form.ID); err != nil {
			return err
		}
		id, err := tx.InsertReceiveItem(ctx, ReceiveItem{
			TransferItemID:  in.TransferItemID,
			WarehouseID:     in.WarehouseID,
			FromWarehouseID: in.FromWarehouseID,
			Driver:          in.Driver,
			Notes:           NormalizeNotes(in.Notes),
			Items:           lines,
		})
		if err != nil {
			return err
		}
		if _, err := s.reissueForm(ctx, tx, existing.Form, FormableTypeReceiveItem, id, in.Date, in.RequestApprovalTo, actor.ID); err != nil {
			return err
		}
		doc, err = tx.GetReceiveItem(ctx, id)
		return err
	})
	if err != nil {
		return ReceiveItem{}, err
	}
	s.recordActivity(ctx, "updated", doc.Form)
	s.requestApproval(ctx, doc.Form)
	return doc, nil
}

// DeleteReceive requests cancellation of a receive document.
func (s *Service) DeleteReceive(ctx context.Context, in DecisionInput) error {
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var form forms.Form
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetReceiveItem(ctx, in.ID)
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

// ApproveReceive posts the receive: stock moves out of the distribution
// warehouse into the receiving warehouse, with a balanced journal pair per
// item. FormSendDone marks the parent transfer fully received.
func (s *Service) ApproveReceive(ctx context.Context, in ReceiveApproveInput) (ReceiveItem, error) {
	actor := shared.ActorFromContext(ctx)
	distribution, err := s.warehouses.Distribution(ctx)
	if err != nil {
		return ReceiveItem{}, err
	}
	var doc ReceiveItem
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err = tx.GetReceiveItem(ctx, in.ID)
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
		parent, err := tx.GetTransferItem(ctx, doc.TransferItemID)
		if err != nil {
			return err
		}
		journalLines := make([]journal.Line, 0, len(doc.Items))
		sentRemaining := sentByItem(parent.Items)
		for _, line := range doc.Items {
			if err := lineWithinTransfer(line, sentRemaining); err != nil {
				return err
			}
			item, err := tx.Items().Get(ctx, line.ItemID)
			if err != nil {
				return err
			}
			opts := ledger.LotOptions{ProductionNumber: line.ProductionNumber, ExpiryDate: line.ExpiryDate}
			if err := tx.Ledger().Decrease(ctx, form, distribution.ID, item, line.Quantity, line.Unit, line.Converter, opts); err != nil {
				return err
			}
			if err := tx.Ledger().Increase(ctx, form, doc.WarehouseID, item, line.Quantity, line.Unit, line.Converter, opts); err != nil {
				return err
			}
			cogs, err := tx.Items().Cogs(ctx, line.ItemID)
			if err != nil {
				return err
			}
			journalLines = append(journalLines, journal.Line{Item: item, Quantity: line.BaseQuantity(), Cogs: cogs})
		}
		if err := tx.Journal().PostReceive(ctx, form.ID, journalLines); err != nil {
			return err
		}
		now := s.now()
		form.ApprovalStatus = forms.StatusApproved
		form.ApprovalBy = actor.ID
		form.ApprovalAt = &now
		if err := tx.Forms().Update(ctx, form); err != nil {
			return err
		}
		if in.FormSendDone && !parent.Form.Done {
			parent.Form.Done = true
			if err := tx.Forms().Update(ctx, parent.Form); err != nil {
				return err
			}
		}
		doc.Form = form
		return nil
	})
	if err != nil {
		return ReceiveItem{}, err
	}
	s.recordActivity(ctx, "approved", doc.Form)
	return doc, nil
}

// RejectReceive rejects a pending receive with a reason.
func (s *Service) RejectReceive(ctx context.Context, in DecisionInput) (ReceiveItem, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return ReceiveItem{}, ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var doc ReceiveItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetReceiveItem(ctx, in.ID)
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
		return ReceiveItem{}, err
	}
	s.recordActivity(ctx, "rejected", doc.Form)
	return doc, nil
}

// ApproveReceiveCancellation reverses the receive's postings by deleting its
// ledger and journal rows, and clears the parent transfer's done flag set by
// this receive.
func (s *Service) ApproveReceiveCancellation(ctx context.Context, in DecisionInput) (ReceiveItem, error) {
	actor := shared.ActorFromContext(ctx)
	var doc ReceiveItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetReceiveItem(ctx, in.ID)
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
		parent, err := tx.GetTransferItem(ctx, doc.TransferItemID)
		if err != nil {
			return err
		}
		if parent.Form.Done {
			parent.Form.Done = false
			if err := tx.Forms().Update(ctx, parent.Form); err != nil {
				return err
			}
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
		return ReceiveItem{}, err
	}
	s.recordActivity(ctx, "cancellation approved", doc.Form)
	return doc, nil
}

// RejectReceiveCancellation declines a pending cancellation request.
func (s *Service) RejectReceiveCancellation(ctx context.Context, in DecisionInput) (ReceiveItem, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return ReceiveItem{}, ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var doc ReceiveItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetReceiveItem(ctx, in.ID)
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
		return ReceiveItem{}, err
	}
	s.recordActivity(ctx, "cancellation rejected", doc.Form)
	return doc, nil
}

// guardReceiveAgainstTransfer enforces that only an approved transfer can be
// received, at the warehouses the transfer names.
func guardReceiveAgainstTransfer(parent TransferItem, warehouseID, fromWarehouseID int64) error {
	if parent.Form.ApprovalStatus != forms.StatusApproved {
		return ErrTransferNotApproved
	}
	if parent.Form.IsCancellationApproved() {
		return ErrAlreadyCancelled
	}
	if warehouseID != parent.ToWarehouseID {
		return &WarehouseMismatchError{Side: "warehouse_id"}
	}
	if fromWarehouseID != parent.WarehouseID {
		return &WarehouseMismatchError{Side: "from_warehouse_id"}
	}
	return nil
}

// buildReceiveLines expands, validates and converts submitted lines against
// the parent transfer's lines.
func (s *Service) buildReceiveLines(ctx context.Context, tx TxRepository, parent TransferItem, inputs []LineInput) ([]Line, error) {
	var lines []Line
	remaining := sentByItem(parent.Items)
	for _, in := range inputs {
		item, err := tx.Items().Get(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		expanded, err := expandLots(item, in, lotIncoming)
		if err != nil {
			return nil, err
		}
		for _, exp := range expanded {
			if exp.Quantity == 0 {
				continue
			}
			if err := validateReceiveLine(exp, remaining); err != nil {
				return nil, err
			}
			lines = append(lines, toLine(item, exp))
		}
	}
	return lines, nil
}

// lineWithinTransfer re-checks a stored receive line against the transfer's
// remaining per-item budget, guarding the approval-time posting. Accepted
// quantities are drawn down from remaining.
func lineWithinTransfer(line Line, remaining map[int64]float64) error {
	if line.Quantity == 0 {
		return nil
	}
	left, ok := remaining[line.ItemID]
	if !ok {
		return ErrItemNotInTransfer
	}
	if line.BaseQuantity() > left+balanceEpsilon {
		return ErrQuantityOverTransfer
	}
	remaining[line.ItemID] = left - line.BaseQuantity()
	return nil
}
