package transfer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/journal"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/customers"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/warehouses"
	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

// RepositoryPort is the persistence boundary of the transfer service. Reads
// run against the pool; every state transition runs through WithTx so the
// document, form, ledger and journal move in one transaction.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	GetTransferItem(ctx context.Context, id int64) (TransferItem, error)
	GetReceiveItem(ctx context.Context, id int64) (ReceiveItem, error)
	GetCustomer(ctx context.Context, id int64) (TransferItemCustomer, error)

	ListTransferItems(ctx context.Context, filter ListFilter) ([]TransferItem, error)
	ListReceiveItems(ctx context.Context, filter ListFilter) ([]ReceiveItem, error)
	ListCustomers(ctx context.Context, filter ListFilter) ([]TransferItemCustomer, error)
}

// ListFilter narrows index queries.
type ListFilter struct {
	Limit  int
	Offset int
	// ApprovalStatus filters by the form's approval track when non-nil.
	ApprovalStatus *forms.Status
}

// TxRepository is the transaction-scoped view handed to WithTx callbacks.
// Forms, Ledger and Journal are bound to the same open transaction as the
// document writes.
type TxRepository interface {
	Forms() FormStore
	Ledger() *ledger.Ledger
	Journal() *journal.Poster
	Items() ItemReader

	InsertTransferItem(ctx context.Context, doc TransferItem) (int64, error)
	GetTransferItem(ctx context.Context, id int64) (TransferItem, error)
	HasReceiveItems(ctx context.Context, transferItemID int64) (bool, error)

	InsertReceiveItem(ctx context.Context, doc ReceiveItem) (int64, error)
	GetReceiveItem(ctx context.Context, id int64) (ReceiveItem, error)

	InsertCustomer(ctx context.Context, doc TransferItemCustomer) (int64, error)
	GetCustomer(ctx context.Context, id int64) (TransferItemCustomer, error)
}

// FormStore is the subset of the forms store used here; *forms.Store
// satisfies it.
type FormStore interface {
	NextIncrement(ctx context.Context, group int) (int, error)
	Insert(ctx context.Context, form forms.Form) (forms.Form, error)
	Get(ctx context.Context, id int64) (forms.Form, error)
	GetByFormable(ctx context.Context, formableType string, formableID int64) (forms.Form, error)
	Archive(ctx context.Context, id int64) error
	Update(ctx context.Context, form forms.Form) error
}

// ItemReader reads item master data inside the transaction; *items.Repository
// satisfies it.
type ItemReader interface {
	Get(ctx context.Context, id int64) (items.Item, error)
	Cogs(ctx context.Context, id int64) (decimal.Decimal, error)
}

// WarehousePort reads warehouse master data; *warehouses.Repository satisfies
// it.
type WarehousePort interface {
	Get(ctx context.Context, id int64) (warehouses.Warehouse, error)
	Distribution(ctx context.Context) (warehouses.Warehouse, error)
}

// CustomerPort reads customer master data; *customers.Repository satisfies it.
type CustomerPort interface {
	Get(ctx context.Context, id int64) (customers.Customer, error)
	GetExpedition(ctx context.Context, id int64) (customers.Expedition, error)
}

// AuditPort records and reads workflow activity; *shared.AuditLogger
// satisfies it.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
	List(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error)
}

// ApprovalRequest is handed to the notifier when a form wants a decision.
type ApprovalRequest struct {
	FormID            int64
	Number            string
	DocumentType      string
	RequestApprovalTo int64
}

// NotifierPort delivers approval-request notifications; typically backed by
// the async job queue.
type NotifierPort interface {
	NotifyApprovalRequest(ctx context.Context, req ApprovalRequest) error
}
