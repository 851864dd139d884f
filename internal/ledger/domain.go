package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
)

// Entry is one signed stock movement in the append-only ledger. Positive
// quantities increase stock, negative quantities decrease it. Quantity is
// expressed in the entry's unit; Converter is the unit-to-base multiplier.
type Entry struct {
	ID               int64
	FormID           int64
	FormDate         time.Time
	WarehouseID      int64
	ItemID           int64
	Quantity         float64
	Unit             string
	Converter        float64
	ProductionNumber *string
	ExpiryDate       *time.Time
	CreatedAt        time.Time
}

// BaseQuantity returns the signed movement in base units.
func (e Entry) BaseQuantity() float64 {
	return e.Quantity * e.Converter
}

// LotKey identifies a tracked sub-stock. ProductionNumber and ExpiryDate are
// nil for untracked items.
type LotKey struct {
	ItemID           int64
	WarehouseID      int64
	ProductionNumber *string
	ExpiryDate       *time.Time
}

// String renders a stable key used for lot locking and in-memory grouping.
func (k LotKey) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d", k.ItemID, k.WarehouseID)
	if k.ProductionNumber != nil {
		b.WriteString(":pid=")
		b.WriteString(*k.ProductionNumber)
	}
	if k.ExpiryDate != nil {
		b.WriteString(":ed=")
		b.WriteString(k.ExpiryDate.Format("2006-01-02"))
	}
	return b.String()
}

// LotOptions qualifies a ledger call with lot attributes and, during document
// edits, the form whose own entries must be ignored when recomputing stock.
type LotOptions struct {
	ProductionNumber *string
	ExpiryDate       *time.Time
	ExcludeFormID    int64
}

// Key builds the lot key for an item/warehouse pair under these options.
func (o LotOptions) Key(itemID, warehouseID int64) LotKey {
	return LotKey{
		ItemID:           itemID,
		WarehouseID:      warehouseID,
		ProductionNumber: o.ProductionNumber,
		ExpiryDate:       o.ExpiryDate,
	}
}

// StockNotEnoughError reports an attempted decrease below the lot's stock.
type StockNotEnoughError struct {
	Item    items.Item
	Options LotOptions
	Stock   float64
}

func (e *StockNotEnoughError) Error() string {
	var qualifiers string
	if e.Options.ProductionNumber != nil {
		qualifiers += " (PID:" + *e.Options.ProductionNumber + ")"
	}
	if e.Options.ExpiryDate != nil {
		qualifiers += " (E/D:" + e.Options.ExpiryDate.Format("2006-01-02") + ")"
	}
	return "Stock " + e.Item.Label + qualifiers + " not enough! Current stock = " +
		strconv.FormatFloat(e.Stock, 'f', -1, 64) + " " + e.Item.Unit
}

// ErrInvalidQuantity indicates a negative quantity argument.
var ErrInvalidQuantity = errors.New("ledger: quantity must not be negative")

// ErrInvalidConverter indicates a non-positive unit converter.
var ErrInvalidConverter = errors.New("ledger: converter must be positive")
