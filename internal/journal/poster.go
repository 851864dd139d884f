package journal

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/stockpoint-erp/stockpoint-erp/internal/settings"
)

// Store persists journal rows. Implementations bound to an open transaction
// make posting part of the caller's atomic state transition.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
	DeleteByForm(ctx context.Context, formID int64) error
	ListByForm(ctx context.Context, formID int64) ([]Entry, error)
}

// Resolver resolves a setting-journal mapping to a chart of account.
type Resolver interface {
	ResolveAccount(ctx context.Context, feature, name string) (int64, error)
}

// Poster writes matched debit/credit pairs for a form. Debit and credit totals
// are equal by construction: both rows of a pair carry the same amount.
type Poster struct {
	store    Store
	accounts Resolver
}

// NewPoster constructs a Poster.
func NewPoster(store Store, accounts Resolver) *Poster {
	return &Poster{store: store, accounts: accounts}
}

// PostTransfer values each line at cogs*quantity and posts a debit against the
// "inventory in distribution" account with a credit against the item's own
// account. Used when goods leave a warehouse towards distribution.
func (p *Poster) PostTransfer(ctx context.Context, formID int64, lines []Line) error {
	distribution, err := p.mappedAccount(ctx, FeatureTransferItem, AccountInventoryInDistribution)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		if line.Item.ChartOfAccountID == 0 {
			return ErrItemAccountNotSet
		}
		amount := line.Cogs.Mul(decimal.NewFromFloat(line.Quantity))
		if err := p.pair(ctx, formID, line.Item.ID, distribution, line.Item.ChartOfAccountID, amount); err != nil {
			return err
		}
	}
	return nil
}

// PostReceive is the inverse pair of PostTransfer: goods arriving from
// distribution debit the item's own account and credit distribution.
func (p *Poster) PostReceive(ctx context.Context, formID int64, lines []Line) error {
	distribution, err := p.mappedAccount(ctx, FeatureTransferItem, AccountInventoryInDistribution)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		if line.Item.ChartOfAccountID == 0 {
			return ErrItemAccountNotSet
		}
		amount := line.Cogs.Mul(decimal.NewFromFloat(line.Quantity))
		if err := p.pair(ctx, formID, line.Item.ID, line.Item.ChartOfAccountID, distribution, amount); err != nil {
			return err
		}
	}
	return nil
}

// PostDifference expenses a sent/received discrepancy: debit "difference stock
// expenses", credit "inventory in distribution", valued at cogs*difference.
func (p *Poster) PostDifference(ctx context.Context, formID int64, lines []Line) error {
	expenses, err := p.mappedAccount(ctx, FeatureTransferItem, AccountDifferenceStockExpenses)
	if err != nil {
		return err
	}
	distribution, err := p.mappedAccount(ctx, FeatureTransferItem, AccountInventoryInDistribution)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if line.Quantity == 0 {
			continue
		}
		amount := line.Cogs.Mul(decimal.NewFromFloat(line.Quantity))
		if err := p.pair(ctx, formID, line.Item.ID, expenses, distribution, amount); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByForm removes every journal row tied to the form.
func (p *Poster) DeleteByForm(ctx context.Context, formID int64) error {
	return p.store.DeleteByForm(ctx, formID)
}

// EntriesByForm lists the form's journal rows, oldest first.
func (p *Poster) EntriesByForm(ctx context.Context, formID int64) ([]Entry, error) {
	return p.store.ListByForm(ctx, formID)
}

func (p *Poster) pair(ctx context.Context, formID, itemID, debitAccount, creditAccount int64, amount decimal.Decimal) error {
	err := p.store.Insert(ctx, Entry{
		FormID:           formID,
		JournalableType:  JournalableTypeItem,
		JournalableID:    itemID,
		ChartOfAccountID: debitAccount,
		Debit:            amount,
	})
	if err != nil {
		return err
	}
	return p.store.Insert(ctx, Entry{
		FormID:           formID,
		JournalableType:  JournalableTypeItem,
		JournalableID:    itemID,
		ChartOfAccountID: creditAccount,
		Credit:           amount,
	})
}

func (p *Poster) mappedAccount(ctx context.Context, feature, name string) (int64, error) {
	accountID, err := p.accounts.ResolveAccount(ctx, feature, name)
	if err != nil {
		if errors.Is(err, settings.ErrMappingNotFound) {
			return 0, &AccountNotConfiguredError{Feature: feature, Name: name}
		}
		return 0, err
	}
	if accountID == 0 {
		return 0, &AccountNotConfiguredError{Feature: feature, Name: name}
	}
	return accountID, nil
}
