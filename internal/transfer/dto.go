package transfer

import (
	"strings"
	"time"
)

// LotAllocation is one production-number/expiry-date split of a line, entered
// by the client against the lot's remaining stock.
type LotAllocation struct {
	Quantity         float64   `json:"quantity" validate:"gte=0"`
	ProductionNumber string    `json:"production_number"`
	ExpiryDate       time.Time `json:"expiry_date"`
	Remaining        float64   `json:"remaining" validate:"gte=0"`
}

// LineInput is one submitted item row. For lot-tracked items the Lots slice is
// mandatory and the line is expanded into one line per allocation.
type LineInput struct {
	ItemID           int64           `json:"item_id" validate:"required"`
	ItemName         string          `json:"item_name"`
	Quantity         float64         `json:"quantity" validate:"gte=0"`
	Unit             string          `json:"unit" validate:"required"`
	Converter        float64         `json:"converter" validate:"gt=0"`
	Stock            float64         `json:"stock"`
	Balance          float64         `json:"balance"`
	ProductionNumber *string         `json:"production_number"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
	Notes            string          `json:"notes"`
	Lots             []LotAllocation `json:"dna" validate:"dive"`
}

// CreateTransferInput creates a TransferItem document.
type CreateTransferInput struct {
	Date              time.Time   `json:"date" validate:"required"`
	WarehouseID       int64       `json:"warehouse_id" validate:"required"`
	ToWarehouseID     int64       `json:"to_warehouse_id" validate:"required"`
	Driver            string      `json:"driver"`
	Notes             string      `json:"notes" validate:"max=255"`
	RequestApprovalTo int64       `json:"request_approval_to" validate:"required"`
	Items             []LineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateTransferInput replaces a pending TransferItem with a new version.
type UpdateTransferInput struct {
	ID int64 `json:"-" validate:"required"`
	CreateTransferInput
}

// CreateReceiveInput creates a ReceiveItem against an approved TransferItem.
type CreateReceiveInput struct {
	Date              time.Time   `json:"date" validate:"required"`
	TransferItemID    int64       `json:"transfer_item_id" validate:"required"`
	WarehouseID       int64       `json:"warehouse_id" validate:"required"`
	FromWarehouseID   int64       `json:"from_warehouse_id" validate:"required"`
	Driver            string      `json:"driver"`
	Notes             string      `json:"notes" validate:"max=255"`
	RequestApprovalTo int64       `json:"request_approval_to" validate:"required"`
	Items             []LineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateReceiveInput replaces a pending ReceiveItem with a new version.
type UpdateReceiveInput struct {
	ID int64 `json:"-" validate:"required"`
	CreateReceiveInput
}

// CreateCustomerInput creates a TransferItemCustomer document. Its stock and
// journal effects are posted immediately.
type CreateCustomerInput struct {
	Date              time.Time   `json:"date" validate:"required"`
	WarehouseID       int64       `json:"warehouse_id" validate:"required"`
	CustomerID        int64       `json:"customer_id" validate:"required"`
	ExpeditionID      int64       `json:"expedition_id"`
	CarPlate          string      `json:"plat"`
	Stnk              string      `json:"stnk"`
	DriverPhone       string      `json:"phone"`
	Notes             string      `json:"notes" validate:"max=255"`
	RequestApprovalTo int64       `json:"request_approval_to" validate:"required"`
	Items             []LineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateCustomerInput replaces a TransferItemCustomer, reversing the old
// version's postings and reposting the new ones.
type UpdateCustomerInput struct {
	ID int64 `json:"-" validate:"required"`
	CreateCustomerInput
}

// DecisionInput approves or rejects one of a form's workflow tracks.
type DecisionInput struct {
	ID     int64  `json:"-" validate:"required"`
	Reason string `json:"reason" validate:"max=255"`
}

// ReceiveApproveInput approves a ReceiveItem. FormSendDone marks the parent
// transfer fully received.
type ReceiveApproveInput struct {
	ID           int64 `json:"-" validate:"required"`
	FormSendDone bool  `json:"form_send_done"`
}

// DifferenceLine is one sent/received discrepancy declared when closing a
// transfer.
type DifferenceLine struct {
	ItemID     int64   `json:"item_id" validate:"required"`
	Difference float64 `json:"difference" validate:"gte=0"`
}

// CloseApproveInput closes a transfer, expensing the declared differences.
type CloseApproveInput struct {
	ID    int64            `json:"-" validate:"required"`
	Items []DifferenceLine `json:"items" validate:"dive"`
}

// NormalizeNotes collapses runs of whitespace and trims the ends, so stored
// notes compare stably across edits.
func NormalizeNotes(notes string) string {
	return strings.Join(strings.Fields(notes), " ")
}
