package transfer

import (
	"context"
	"strings"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/journal"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

// GetCustomerTransfer loads one direct-customer document with its lines and
// form.
func (s *Service) GetCustomerTransfer(ctx context.Context, id int64) (TransferItemCustomer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// ListCustomerTransfers pages over active direct-customer documents, newest
// first.
func (s *Service) ListCustomerTransfers(ctx context.Context, filter ListFilter) ([]TransferItemCustomer, error) {
	return s.repo.ListCustomers(ctx, filter)
}

// CreateCustomerTransfer creates a direct-customer shipment. Unlike plain
// transfers, stock and journal effects are posted immediately: the goods are
// on the truck the moment the document exists.
func (s *Service) CreateCustomerTransfer(ctx context.Context, in CreateCustomerInput) (TransferItemCustomer, error) {
	if len(in.Items) == 0 {
		return TransferItemCustomer{}, ErrNoLines
	}
	if _, err := s.warehouses.Get(ctx, in.WarehouseID); err != nil {
		return TransferItemCustomer{}, err
	}
	if _, err := s.customers.Get(ctx, in.CustomerID); err != nil {
		return TransferItemCustomer{}, err
	}
	if in.ExpeditionID != 0 {
		if _, err := s.customers.GetExpedition(ctx, in.ExpeditionID); err != nil {
			return TransferItemCustomer{}, err
		}
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItemCustomer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines, err := s.buildOutgoingLines(ctx, tx, in.WarehouseID, in.Items, 0)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}
		id, err := tx.InsertCustomer(ctx, TransferItemCustomer{
			WarehouseID:  in.WarehouseID,
			CustomerID:   in.CustomerID,
			ExpeditionID: in.ExpeditionID,
			CarPlate:     in.CarPlate,
			Stnk:         in.Stnk,
			DriverPhone:  in.DriverPhone,
			Notes:        NormalizeNotes(in.Notes),
			Items:        lines,
		})
		if err != nil {
			return err
		}
		form, err := s.issueForm(ctx, tx, NumberPrefixCustomer, FormableTypeCustomer, id, in.Date, in.RequestApprovalTo, actor.ID)
		if err != nil {
			return err
		}
		if err := s.postCustomerMovement(ctx, tx, form, in.WarehouseID, lines); err != nil {
			return err
		}
		doc, err = tx.GetCustomer(ctx, id)
		return err
	})
	if err != nil {
		return TransferItemCustomer{}, err
	}
	s.recordActivity(ctx, "created", doc.Form)
	s.requestApproval(ctx, doc.Form)
	return doc, nil
}

// UpdateCustomerTransfer replaces a direct-customer document with a new
// version. The old version's postings are reversed before the new version is
// validated and posted, so the lot stock seen by validation is already net of
// the edit.
func (s *Service) UpdateCustomerTransfer(ctx context.Context, in UpdateCustomerInput) (TransferItemCustomer, error) {
	if len(in.Items) == 0 {
		return TransferItemCustomer{}, ErrNoLines
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItemCustomer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetCustomer(ctx, in.ID)
		if err != nil {
			return err
		}
		if existing.Form.IsCancellationApproved() {
			return ErrAlreadyCancelled
		}
		if existing.Form.ApprovalStatus == forms.StatusApproved {
			return ErrAlreadyApproved
		}
		if err := tx.Journal().DeleteByForm(ctx, existing.Form.ID); err != nil {
			return err
		}
		if err := tx.Ledger().DeleteByForm(ctx, existing.Form.ID); err != nil {
			return err
		}
		lines, err := s.buildOutgoingLines(ctx, tx, in.WarehouseID, in.Items, 0)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrNoLines
		}
		if err := tx.Forms().Archive(ctx, existing.Form.ID); err != nil {
			return err
		}
		id, err := tx.InsertCustomer(ctx, TransferItemCustomer{
			WarehouseID:  in.WarehouseID,
			CustomerID:   in.CustomerID,
			ExpeditionID: in.ExpeditionID,
			CarPlate:     in.CarPlate,
			Stnk:         in.Stnk,
			DriverPhone:  in.DriverPhone,
			Notes:        NormalizeNotes(in.Notes),
			Items:        lines,
		})
		if err != nil {
			return err
		}
		form, err := s.reissueForm(ctx, tx, existing.Form, FormableTypeCustomer, id, in.Date, in.RequestApprovalTo, actor.ID)
		if err != nil {
			return err
		}
		if err := s.postCustomerMovement(ctx, tx, form, in.WarehouseID, lines); err != nil {
			return err
		}
		doc, err = tx.GetCustomer(ctx, id)
		return err
	})
	if err != nil {
		return TransferItemCustomer{}, err
	}
	s.recordActivity(ctx, "updated", doc.Form)
	s.requestApproval(ctx, doc.Form)
	return doc, nil
}

// DeleteCustomerTransfer requests cancellation of a direct-customer document.
func (s *Service) DeleteCustomerTransfer(ctx context.Context, in DecisionInput) error {
	if strings.TrimSpace(in.Reason) == "" {
		return ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var form forms.Form
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetCustomer(ctx, in.ID)
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

// ApproveCustomerTransfer marks the document approved. The stock and journal
// effects were already posted at creation, so this is a status-only move.
func (s *Service) ApproveCustomerTransfer(ctx context.Context, in DecisionInput) (TransferItemCustomer, error) {
	actor := shared.ActorFromContext(ctx)
	var doc TransferItemCustomer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetCustomer(ctx, in.ID)
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
		return TransferItemCustomer{}, err
	}
	s.recordActivity(ctx, "approved", doc.Form)
	return doc, nil
}

// RejectCustomerTransfer rejects the document and reverses the postings made
// at creation, returning the goods to warehouse stock.
func (s *Service) RejectCustomerTransfer(ctx context.Context, in DecisionInput) (TransferItemCustomer, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return TransferItemCustomer{}, ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItemCustomer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetCustomer(ctx, in.ID)
		if err != nil {
			return err
		}
		form := doc.Form
		if form.ApprovalStatus == forms.StatusApproved {
			return ErrAlreadyApproved
		}
		if err := tx.Journal().DeleteByForm(ctx, form.ID); err != nil {
			return err
		}
		if err := tx.Ledger().DeleteByForm(ctx, form.ID); err != nil {
			return err
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
		return TransferItemCustomer{}, err
	}
	s.recordActivity(ctx, "rejected", doc.Form)
	return doc, nil
}

// ApproveCustomerCancellation reverses the document's postings and marks the
// cancellation approved.
func (s *Service) ApproveCustomerCancellation(ctx context.Context, in DecisionInput) (TransferItemCustomer, error) {
	actor := shared.ActorFromContext(ctx)
	var doc TransferItemCustomer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetCustomer(ctx, in.ID)
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
		return TransferItemCustomer{}, err
	}
	s.recordActivity(ctx, "cancellation approved", doc.Form)
	return doc, nil
}

// RejectCustomerCancellation declines a pending cancellation request; the
// postings stay in place.
func (s *Service) RejectCustomerCancellation(ctx context.Context, in DecisionInput) (TransferItemCustomer, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return TransferItemCustomer{}, ErrReasonRequired
	}
	actor := shared.ActorFromContext(ctx)
	var doc TransferItemCustomer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, err = tx.GetCustomer(ctx, in.ID)
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
		return TransferItemCustomer{}, err
	}
	s.recordActivity(ctx, "cancellation rejected", doc.Form)
	return doc, nil
}

// postCustomerMovement decreases warehouse stock and writes the journal pairs
// for a direct-customer shipment.
func (s *Service) postCustomerMovement(ctx context.Context, tx TxRepository, form forms.Form, warehouseID int64, lines []Line) error {
	journalLines := make([]journal.Line, 0, len(lines))
	for _, line := range lines {
		item, err := tx.Items().Get(ctx, line.ItemID)
		if err != nil {
			return err
		}
		opts := ledger.LotOptions{ProductionNumber: line.ProductionNumber, ExpiryDate: line.ExpiryDate}
		if err := tx.Ledger().Decrease(ctx, form, warehouseID, item, line.Quantity, line.Unit, line.Converter, opts); err != nil {
			return err
		}
		cogs, err := tx.Items().Cogs(ctx, line.ItemID)
		if err != nil {
			return err
		}
		journalLines = append(journalLines, journal.Line{Item: item, Quantity: line.BaseQuantity(), Cogs: cogs})
	}
	return tx.Journal().PostTransfer(ctx, form.ID, journalLines)
}
