package journal

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
)

// Setting-journal mapping keys consumed by the poster.
const (
	FeatureTransferItem            = "transfer item"
	AccountInventoryInDistribution = "inventory in distribution"
	AccountDifferenceStockExpenses = "difference stock expenses"
)

// JournalableTypeItem tags entries referencing a master item.
const JournalableTypeItem = "Item"

// Entry is one journal row. Exactly one of Debit and Credit is non-zero.
type Entry struct {
	ID               int64
	FormID           int64
	JournalableType  string
	JournalableID    int64
	ChartOfAccountID int64
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	CreatedAt        time.Time
}

// Line is one item movement to be valued and posted as a debit/credit pair.
// Cogs is read at posting time, never from the document snapshot.
type Line struct {
	Item     items.Item
	Quantity float64
	Cogs     decimal.Decimal
}

// AccountNotConfiguredError reports a missing setting-journal mapping.
type AccountNotConfiguredError struct {
	Feature string
	Name    string
}

func (e *AccountNotConfiguredError) Error() string {
	return "Journal " + e.Feature + " account - " + e.Name + " not found"
}

// ErrItemAccountNotSet reports an item without its own chart of account.
var ErrItemAccountNotSet = errors.New("Please set item account!")
