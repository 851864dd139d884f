package ledger

import (
	"context"
	"time"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
)

// Store persists ledger entries. Implementations bound to an open transaction
// make every call part of the caller's atomic state transition.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	// LockLot serialises concurrent writers of one lot until the enclosing
	// transaction ends.
	LockLot(ctx context.Context, key LotKey) error
	// SumLot returns the signed base-unit sum for a lot. A zero asOf means
	// all entries; otherwise only entries whose form date is strictly before
	// asOf count. excludeFormID, when non-zero, nets out that form's rows.
	SumLot(ctx context.Context, key LotKey, asOf time.Time, excludeFormID int64) (float64, error)
	DeleteByForm(ctx context.Context, formID int64) error
	ListByForm(ctx context.Context, formID int64) ([]Entry, error)
}

// Ledger appends signed movements and answers point-in-time stock questions.
// All mutating calls must run inside the caller's transaction.
type Ledger struct {
	store Store
}

// New constructs a Ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Increase appends a positive movement. Zero-quantity lines are skipped.
func (l *Ledger) Increase(ctx context.Context, form forms.Form, warehouseID int64, item items.Item, quantity float64, unit string, converter float64, opts LotOptions) error {
	return l.post(ctx, form, warehouseID, item, quantity, unit, converter, opts, false)
}

// Decrease appends a negative movement after verifying the lot holds enough
// stock. Zero-quantity lines are skipped.
func (l *Ledger) Decrease(ctx context.Context, form forms.Form, warehouseID int64, item items.Item, quantity float64, unit string, converter float64, opts LotOptions) error {
	return l.post(ctx, form, warehouseID, item, quantity, unit, converter, opts, true)
}

func (l *Ledger) post(ctx context.Context, form forms.Form, warehouseID int64, item items.Item, quantity float64, unit string, converter float64, opts LotOptions, decrease bool) error {
	if quantity == 0 {
		return nil
	}
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if converter <= 0 {
		return ErrInvalidConverter
	}
	signed := quantity
	if decrease {
		key := opts.Key(item.ID, warehouseID)
		if err := l.store.LockLot(ctx, key); err != nil {
			return err
		}
		stock, err := l.store.SumLot(ctx, key, time.Time{}, opts.ExcludeFormID)
		if err != nil {
			return err
		}
		if stock < quantity*converter {
			return &StockNotEnoughError{Item: item, Options: opts, Stock: stock}
		}
		signed = -quantity
	}
	return l.store.Insert(ctx, Entry{
		FormID:           form.ID,
		FormDate:         form.Date,
		WarehouseID:      warehouseID,
		ItemID:           item.ID,
		Quantity:         signed,
		Unit:             unit,
		Converter:        converter,
		ProductionNumber: opts.ProductionNumber,
		ExpiryDate:       opts.ExpiryDate,
	})
}

// CurrentStock returns the lot's base-unit stock. A zero asOf means the
// running total; otherwise only entries dated strictly before asOf count.
// Pass opts.ExcludeFormID to ignore the document currently being edited.
func (l *Ledger) CurrentStock(ctx context.Context, item items.Item, asOf time.Time, warehouseID int64, opts LotOptions) (float64, error) {
	return l.store.SumLot(ctx, opts.Key(item.ID, warehouseID), asOf, opts.ExcludeFormID)
}

// DeleteByForm removes every entry posted under the form, reversing its stock
// effect. Used on rejection after approval and on cancellation approval.
func (l *Ledger) DeleteByForm(ctx context.Context, formID int64) error {
	return l.store.DeleteByForm(ctx, formID)
}

// EntriesByForm lists the entries posted under a form, oldest first.
func (l *Ledger) EntriesByForm(ctx context.Context, formID int64) ([]Entry, error) {
	return l.store.ListByForm(ctx, formID)
}
