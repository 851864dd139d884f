package transfer

import (
	"context"
	"math"
	"time"

	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
)

// balanceEpsilon absorbs float rounding in client-declared balances.
const balanceEpsilon = 1e-9

// validateOutgoingLine checks one expanded line of an outgoing document: the
// declared balance must equal declared stock minus quantity, and the quantity
// must not exceed the lot's live ledger stock. excludeFormID nets out the
// document's own prior postings during an edit.
func validateOutgoingLine(ctx context.Context, led *ledger.Ledger, item items.Item, warehouseID int64, line LineInput, excludeFormID int64) error {
	if line.Quantity == 0 {
		return nil
	}
	if math.Abs(line.Balance-(line.Stock-line.Quantity)) > balanceEpsilon {
		return ErrBalanceMismatch
	}
	opts := ledger.LotOptions{
		ProductionNumber: line.ProductionNumber,
		ExpiryDate:       line.ExpiryDate,
		ExcludeFormID:    excludeFormID,
	}
	stock, err := led.CurrentStock(ctx, item, time.Time{}, warehouseID, opts)
	if err != nil {
		return err
	}
	if line.Quantity*line.Converter > stock+balanceEpsilon {
		return ErrQuantityOverStock
	}
	return nil
}

// sentByItem sums a transfer's sent base quantities per item, the budget its
// receive lines draw down.
func sentByItem(sent []Line) map[int64]float64 {
	totals := make(map[int64]float64, len(sent))
	for _, s := range sent {
		totals[s.ItemID] += s.BaseQuantity()
	}
	return totals
}

// validateReceiveLine checks one expanded line of a receive document: the
// declared balance must equal declared stock plus quantity, and the quantity
// must fit the transfer's remaining budget for the item. Accepted quantities
// are drawn down from remaining so sibling lines of the same item cannot
// jointly exceed what was sent.
func validateReceiveLine(line LineInput, remaining map[int64]float64) error {
	if line.Quantity == 0 {
		return nil
	}
	if math.Abs(line.Balance-(line.Stock+line.Quantity)) > balanceEpsilon {
		return ErrBalanceMismatch
	}
	left, ok := remaining[line.ItemID]
	if !ok {
		return ErrItemNotInTransfer
	}
	if line.Quantity*line.Converter > left+balanceEpsilon {
		return ErrQuantityOverTransfer
	}
	remaining[line.ItemID] = left - line.Quantity*line.Converter
	return nil
}
