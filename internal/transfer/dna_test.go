package transfer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
)

func TestExpandLotsPassesUntrackedThrough(t *testing.T) {
	item := items.Item{ID: 1, Name: "Gauze", Unit: "pcs"}
	in := LineInput{ItemID: 1, Quantity: 5, Unit: "pcs", Converter: 1, Stock: 20, Balance: 15}

	out, err := expandLots(item, in, lotOutgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, in, out[0])
}

func TestExpandLotsRequiresAllocations(t *testing.T) {
	item := items.Item{ID: 1, Name: "Vaccine", RequireProductionNumber: true, RequireExpiryDate: true}
	_, err := expandLots(item, LineInput{ItemID: 1, Quantity: 5}, lotOutgoing)
	require.ErrorIs(t, err, ErrLotAllocationEmpty)
	require.EqualError(t, err, "DNA item cannot be empty!")
}

func TestExpandLotsSplitsPerAllocation(t *testing.T) {
	item := items.Item{ID: 1, Name: "Vaccine", RequireProductionNumber: true, RequireExpiryDate: true}
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	in := LineInput{
		ItemID: 1, Quantity: 7, Unit: "vial", Converter: 1,
		Lots: []LotAllocation{
			{Quantity: 4, ProductionNumber: "PN-A", ExpiryDate: expiry, Remaining: 10},
			{Quantity: 0, ProductionNumber: "PN-SKIP", ExpiryDate: expiry, Remaining: 2},
			{Quantity: 3, ProductionNumber: "PN-B", ExpiryDate: expiry, Remaining: 3},
		},
	}

	out, err := expandLots(item, in, lotOutgoing)
	require.NoError(t, err)
	require.Len(t, out, 2, "zero-quantity allocations are dropped")

	require.InDelta(t, 4, out[0].Quantity, 1e-9)
	require.Equal(t, "PN-A", *out[0].ProductionNumber)
	require.True(t, out[0].ExpiryDate.Equal(expiry))
	require.InDelta(t, 10, out[0].Stock, 1e-9)
	require.InDelta(t, 6, out[0].Balance, 1e-9)
	require.Nil(t, out[0].Lots)

	require.InDelta(t, 3, out[1].Quantity, 1e-9)
	require.Equal(t, "PN-B", *out[1].ProductionNumber)
	require.InDelta(t, 0, out[1].Balance, 1e-9)
}

func TestExpandLotsIncomingAddsToRemaining(t *testing.T) {
	item := items.Item{ID: 1, Name: "Vaccine", RequireProductionNumber: true, RequireExpiryDate: true}
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	in := LineInput{
		ItemID: 1, Quantity: 4, Unit: "vial", Converter: 1,
		Lots: []LotAllocation{{Quantity: 4, ProductionNumber: "PN-A", ExpiryDate: expiry, Remaining: 2}},
	}

	// A receiving line lands on the lot: balance grows past remaining.
	out, err := expandLots(item, in, lotIncoming)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.InDelta(t, 2, out[0].Stock, 1e-9)
	require.InDelta(t, 6, out[0].Balance, 1e-9)
}

func TestExpandLotsOnlySetsTrackedAttributes(t *testing.T) {
	item := items.Item{ID: 1, Name: "Serum", RequireProductionNumber: true}
	in := LineInput{
		ItemID: 1, Unit: "vial", Converter: 1,
		Lots: []LotAllocation{{Quantity: 2, ProductionNumber: "PN-C", Remaining: 5}},
	}
	out, err := expandLots(item, in, lotOutgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].ProductionNumber)
	require.Nil(t, out[0].ExpiryDate)
}

func TestToLineResolvesNameAndNormalizesNotes(t *testing.T) {
	item := items.Item{ID: 1, Name: "Syringe 5ml"}
	line := toLine(item, LineInput{ItemID: 1, Quantity: 2, Unit: "pcs", Converter: 1, Notes: "  rush   order "})
	require.Equal(t, "Syringe 5ml", line.ItemName)
	require.Equal(t, "rush order", line.Notes)

	line = toLine(item, LineInput{ItemID: 1, ItemName: "client name", Quantity: 2, Unit: "pcs", Converter: 1})
	require.Equal(t, "client name", line.ItemName)
}
