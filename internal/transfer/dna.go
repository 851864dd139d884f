package transfer

import (
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
)

// lotDirection selects the balance rule an expanded line declares: outgoing
// lines leave the lot, incoming lines land on it.
type lotDirection int

const (
	lotOutgoing lotDirection = iota
	lotIncoming
)

// expandLots turns one submitted line into its stored lines. Untracked items
// pass through unchanged. Lot-tracked items must carry allocations; each
// allocation with a positive quantity becomes its own line with the lot's
// remaining stock as the declared snapshot and the balance the direction's
// rule implies. Zero-quantity allocations are dropped.
func expandLots(item items.Item, in LineInput, dir lotDirection) ([]LineInput, error) {
	if !item.RequiresLotTracking() {
		return []LineInput{in}, nil
	}
	if len(in.Lots) == 0 {
		return nil, ErrLotAllocationEmpty
	}
	var out []LineInput
	for _, lot := range in.Lots {
		if lot.Quantity <= 0 {
			continue
		}
		line := in
		line.Lots = nil
		line.Quantity = lot.Quantity
		line.Stock = lot.Remaining
		if dir == lotIncoming {
			line.Balance = lot.Remaining + lot.Quantity
		} else {
			line.Balance = lot.Remaining - lot.Quantity
		}
		if item.RequireProductionNumber {
			pid := lot.ProductionNumber
			line.ProductionNumber = &pid
		}
		if item.RequireExpiryDate {
			ed := lot.ExpiryDate
			line.ExpiryDate = &ed
		}
		out = append(out, line)
	}
	return out, nil
}

// toLine converts a validated input line to its stored form, resolving the
// item name from master data when the client omitted it.
func toLine(item items.Item, in LineInput) Line {
	name := in.ItemName
	if name == "" {
		name = item.Name
	}
	return Line{
		ItemID:           in.ItemID,
		ItemName:         name,
		Quantity:         in.Quantity,
		Unit:             in.Unit,
		Converter:        in.Converter,
		Stock:            in.Stock,
		Balance:          in.Balance,
		ProductionNumber: in.ProductionNumber,
		ExpiryDate:       in.ExpiryDate,
		Notes:            NormalizeNotes(in.Notes),
	}
}
