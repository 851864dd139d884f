package journal

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/settings"
)

type fakeStore struct {
	entries []Entry
	nextID  int64
}

func (s *fakeStore) Insert(ctx context.Context, entry Entry) error {
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) DeleteByForm(ctx context.Context, formID int64) error {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.FormID != formID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func (s *fakeStore) ListByForm(ctx context.Context, formID int64) ([]Entry, error) {
	var out []Entry
	for _, e := range s.entries {
		if e.FormID == formID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeResolver map[string]int64

func (r fakeResolver) ResolveAccount(ctx context.Context, feature, name string) (int64, error) {
	id, ok := r[feature+"/"+name]
	if !ok {
		return 0, settings.ErrMappingNotFound
	}
	return id, nil
}

func configuredResolver() fakeResolver {
	return fakeResolver{
		FeatureTransferItem + "/" + AccountInventoryInDistribution: 210,
		FeatureTransferItem + "/" + AccountDifferenceStockExpenses: 220,
	}
}

var syringe = items.Item{ID: 1, Name: "Syringe 5ml", ChartOfAccountID: 110}

func requireBalanced(t *testing.T, entries []Entry) {
	t.Helper()
	debit, credit := decimal.Zero, decimal.Zero
	for _, e := range entries {
		require.False(t, e.Debit.IsPositive() && e.Credit.IsPositive(), "one side per row")
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	require.True(t, debit.Equal(credit), "debit %s != credit %s", debit, credit)
}

func TestPostTransferPairsDistributionAgainstItem(t *testing.T) {
	store := &fakeStore{}
	poster := NewPoster(store, configuredResolver())
	ctx := context.Background()

	err := poster.PostTransfer(ctx, 1, []Line{{Item: syringe, Quantity: 10, Cogs: decimal.NewFromInt(1000)}})
	require.NoError(t, err)
	require.Len(t, store.entries, 2)
	requireBalanced(t, store.entries)

	require.Equal(t, int64(210), store.entries[0].ChartOfAccountID)
	require.True(t, store.entries[0].Debit.Equal(decimal.NewFromInt(10000)))
	require.Equal(t, int64(110), store.entries[1].ChartOfAccountID)
	require.True(t, store.entries[1].Credit.Equal(decimal.NewFromInt(10000)))
	require.Equal(t, JournalableTypeItem, store.entries[0].JournalableType)
	require.Equal(t, syringe.ID, store.entries[0].JournalableID)
}

func TestPostReceiveInvertsThePair(t *testing.T) {
	store := &fakeStore{}
	poster := NewPoster(store, configuredResolver())

	err := poster.PostReceive(context.Background(), 2, []Line{{Item: syringe, Quantity: 10, Cogs: decimal.NewFromInt(1000)}})
	require.NoError(t, err)
	require.Len(t, store.entries, 2)
	requireBalanced(t, store.entries)
	require.Equal(t, int64(110), store.entries[0].ChartOfAccountID)
	require.Equal(t, int64(210), store.entries[1].ChartOfAccountID)
}

func TestPostDifferenceExpensesAgainstDistribution(t *testing.T) {
	store := &fakeStore{}
	poster := NewPoster(store, configuredResolver())

	err := poster.PostDifference(context.Background(), 3, []Line{{Item: syringe, Quantity: 3, Cogs: decimal.NewFromInt(1000)}})
	require.NoError(t, err)
	require.Len(t, store.entries, 2)
	requireBalanced(t, store.entries)
	require.Equal(t, int64(220), store.entries[0].ChartOfAccountID)
	require.True(t, store.entries[0].Debit.Equal(decimal.NewFromInt(3000)))
	require.Equal(t, int64(210), store.entries[1].ChartOfAccountID)
}

func TestZeroQuantityLinesAreSkipped(t *testing.T) {
	store := &fakeStore{}
	poster := NewPoster(store, configuredResolver())

	err := poster.PostTransfer(context.Background(), 1, []Line{
		{Item: syringe, Quantity: 0, Cogs: decimal.NewFromInt(1000)},
		{Item: syringe, Quantity: 2, Cogs: decimal.NewFromInt(1000)},
	})
	require.NoError(t, err)
	require.Len(t, store.entries, 2)
}

func TestMissingMappingIsReportedByName(t *testing.T) {
	store := &fakeStore{}
	poster := NewPoster(store, fakeResolver{})

	err := poster.PostTransfer(context.Background(), 1, []Line{{Item: syringe, Quantity: 1, Cogs: decimal.NewFromInt(1)}})
	var notConfigured *AccountNotConfiguredError
	require.ErrorAs(t, err, &notConfigured)
	require.EqualError(t, err, "Journal transfer item account - inventory in distribution not found")
	require.Empty(t, store.entries)
}

func TestItemWithoutAccountIsRefused(t *testing.T) {
	store := &fakeStore{}
	poster := NewPoster(store, configuredResolver())
	bare := items.Item{ID: 2, Name: "Unmapped"}

	err := poster.PostTransfer(context.Background(), 1, []Line{{Item: bare, Quantity: 1, Cogs: decimal.NewFromInt(1)}})
	require.ErrorIs(t, err, ErrItemAccountNotSet)
	require.EqualError(t, err, "Please set item account!")
}

func TestDeleteByFormRemovesBothSides(t *testing.T) {
	store := &fakeStore{}
	poster := NewPoster(store, configuredResolver())
	ctx := context.Background()

	require.NoError(t, poster.PostTransfer(ctx, 1, []Line{{Item: syringe, Quantity: 1, Cogs: decimal.NewFromInt(1000)}}))
	require.NoError(t, poster.PostTransfer(ctx, 2, []Line{{Item: syringe, Quantity: 1, Cogs: decimal.NewFromInt(1000)}}))
	require.NoError(t, poster.DeleteByForm(ctx, 1))

	gone, err := poster.EntriesByForm(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, gone)
	kept, err := poster.EntriesByForm(ctx, 2)
	require.NoError(t, err)
	require.Len(t, kept, 2)
}
