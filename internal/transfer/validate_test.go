package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
)

func seededLedger(t *testing.T, entries ...ledger.Entry) *ledger.Ledger {
	t.Helper()
	store := &memoryLedgerStore{}
	for _, e := range entries {
		require.NoError(t, store.Insert(context.Background(), e))
	}
	return ledger.New(store)
}

func TestValidateOutgoingLine(t *testing.T) {
	item := items.Item{ID: 1, Label: "Syringe 5ml", Unit: "pcs"}
	led := seededLedger(t, ledger.Entry{
		FormID: 1, FormDate: time.Now(), WarehouseID: 1, ItemID: 1,
		Quantity: 50, Unit: "pcs", Converter: 1,
	})

	ok := LineInput{ItemID: 1, Quantity: 10, Unit: "pcs", Converter: 1, Stock: 50, Balance: 40}
	require.NoError(t, validateOutgoingLine(context.Background(), led, item, 1, ok, 0))

	mismatch := ok
	mismatch.Balance = 41
	err := validateOutgoingLine(context.Background(), led, item, 1, mismatch, 0)
	require.ErrorIs(t, err, ErrBalanceMismatch)
	require.EqualError(t, err, "The balance value does not match.")

	over := LineInput{ItemID: 1, Quantity: 60, Unit: "pcs", Converter: 1, Stock: 60, Balance: 0}
	err = validateOutgoingLine(context.Background(), led, item, 1, over, 0)
	require.ErrorIs(t, err, ErrQuantityOverStock)
	require.EqualError(t, err, "The quantity cannot be greater than stock warehouse")

	// Converter counts: 6 boxes of 10 exceed 50 base units.
	boxed := LineInput{ItemID: 1, Quantity: 6, Unit: "box", Converter: 10, Stock: 6, Balance: 0}
	require.ErrorIs(t, validateOutgoingLine(context.Background(), led, item, 1, boxed, 0), ErrQuantityOverStock)

	// Zero quantity lines skip all checks.
	zero := LineInput{ItemID: 1, Quantity: 0, Balance: 99}
	require.NoError(t, validateOutgoingLine(context.Background(), led, item, 1, zero, 0))
}

func TestValidateOutgoingLineExcludesOwnForm(t *testing.T) {
	item := items.Item{ID: 1, Label: "Syringe 5ml", Unit: "pcs"}
	led := seededLedger(t,
		ledger.Entry{FormID: 1, FormDate: time.Now(), WarehouseID: 1, ItemID: 1, Quantity: 50, Unit: "pcs", Converter: 1},
		ledger.Entry{FormID: 7, FormDate: time.Now(), WarehouseID: 1, ItemID: 1, Quantity: -30, Unit: "pcs", Converter: 1},
	)

	// 40 > 20 live, but the edit of form 7 nets its own -30 back out.
	line := LineInput{ItemID: 1, Quantity: 40, Unit: "pcs", Converter: 1, Stock: 50, Balance: 10}
	require.ErrorIs(t, validateOutgoingLine(context.Background(), led, item, 1, line, 0), ErrQuantityOverStock)
	require.NoError(t, validateOutgoingLine(context.Background(), led, item, 1, line, 7))
}

func TestValidateOutgoingLineIsLotScoped(t *testing.T) {
	item := items.Item{ID: 1, Label: "Vaccine", Unit: "vial", RequireProductionNumber: true}
	pidA, pidB := "PN-A", "PN-B"
	led := seededLedger(t, ledger.Entry{
		FormID: 1, FormDate: time.Now(), WarehouseID: 1, ItemID: 1,
		Quantity: 10, Unit: "vial", Converter: 1, ProductionNumber: &pidA,
	})

	inLot := LineInput{ItemID: 1, Quantity: 5, Unit: "vial", Converter: 1, Stock: 10, Balance: 5, ProductionNumber: &pidA}
	require.NoError(t, validateOutgoingLine(context.Background(), led, item, 1, inLot, 0))

	otherLot := LineInput{ItemID: 1, Quantity: 5, Unit: "vial", Converter: 1, Stock: 5, Balance: 0, ProductionNumber: &pidB}
	require.ErrorIs(t, validateOutgoingLine(context.Background(), led, item, 1, otherLot, 0), ErrQuantityOverStock)
}

func TestValidateReceiveLine(t *testing.T) {
	sent := []Line{
		{ItemID: 1, Quantity: 6, Converter: 1},
		{ItemID: 1, Quantity: 4, Converter: 1},
		{ItemID: 2, Quantity: 3, Converter: 1},
	}

	ok := LineInput{ItemID: 1, Quantity: 10, Converter: 1, Stock: 0, Balance: 10}
	require.NoError(t, validateReceiveLine(ok, sentByItem(sent)))

	mismatch := ok
	mismatch.Balance = 9
	require.ErrorIs(t, validateReceiveLine(mismatch, sentByItem(sent)), ErrBalanceMismatch)

	over := LineInput{ItemID: 1, Quantity: 11, Converter: 1, Stock: 0, Balance: 11}
	err := validateReceiveLine(over, sentByItem(sent))
	require.ErrorIs(t, err, ErrQuantityOverTransfer)
	require.EqualError(t, err, "The quantity cannot be greater than the quantity of the transfer item.")

	stranger := LineInput{ItemID: 9, Quantity: 1, Converter: 1, Stock: 0, Balance: 1}
	require.ErrorIs(t, validateReceiveLine(stranger, sentByItem(sent)), ErrItemNotInTransfer)

	zero := LineInput{ItemID: 9, Quantity: 0}
	require.NoError(t, validateReceiveLine(zero, sentByItem(sent)))
}

func TestValidateReceiveLinesShareItemBudget(t *testing.T) {
	sent := []Line{{ItemID: 1, Quantity: 10, Converter: 1}}
	remaining := sentByItem(sent)

	// Each line fits the total on its own, together they exceed it.
	first := LineInput{ItemID: 1, Quantity: 6, Converter: 1, Stock: 0, Balance: 6}
	require.NoError(t, validateReceiveLine(first, remaining))

	second := LineInput{ItemID: 1, Quantity: 6, Converter: 1, Stock: 6, Balance: 12}
	require.ErrorIs(t, validateReceiveLine(second, remaining), ErrQuantityOverTransfer)

	// The rest of the budget is still available.
	rest := LineInput{ItemID: 1, Quantity: 4, Converter: 1, Stock: 6, Balance: 10}
	require.NoError(t, validateReceiveLine(rest, remaining))
}
