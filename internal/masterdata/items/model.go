package items

import "github.com/shopspring/decimal"

// Item carries the master data consulted while moving stock.
type Item struct {
	ID                      int64
	Code                    string
	Name                    string
	Label                   string
	Unit                    string
	ChartOfAccountID        int64
	RequireExpiryDate       bool
	RequireProductionNumber bool
}

// Cogs is the unit cost basis used to value journal amounts.
type Cogs = decimal.Decimal

// RequiresLotTracking reports whether movements of this item must carry
// production-number/expiry-date lot allocations.
func (i Item) RequiresLotTracking() bool {
	return i.RequireExpiryDate || i.RequireProductionNumber
}
