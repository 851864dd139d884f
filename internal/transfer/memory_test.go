package transfer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/journal"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/customers"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/warehouses"
	"github.com/stockpoint-erp/stockpoint-erp/internal/settings"
	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

// memoryRepo backs the service with plain maps; WithTx runs the callback
// directly, without transactional rollback.
type memoryRepo struct {
	forms     *memoryForms
	ledger    *memoryLedgerStore
	journal   *memoryJournalStore
	items     *memoryItems
	accounts  memoryAccounts
	transfers map[int64]TransferItem
	receives  map[int64]ReceiveItem
	customers map[int64]TransferItemCustomer
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		forms:     newMemoryForms(),
		ledger:    &memoryLedgerStore{},
		journal:   &memoryJournalStore{},
		items:     &memoryItems{items: map[int64]items.Item{}, cogs: map[int64]decimal.Decimal{}},
		accounts:  memoryAccounts{},
		transfers: map[int64]TransferItem{},
		receives:  map[int64]ReceiveItem{},
		customers: map[int64]TransferItemCustomer{},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetTransferItem(ctx context.Context, id int64) (TransferItem, error) {
	return (&memoryTx{repo: r}).GetTransferItem(ctx, id)
}

func (r *memoryRepo) GetReceiveItem(ctx context.Context, id int64) (ReceiveItem, error) {
	return (&memoryTx{repo: r}).GetReceiveItem(ctx, id)
}

func (r *memoryRepo) GetCustomer(ctx context.Context, id int64) (TransferItemCustomer, error) {
	return (&memoryTx{repo: r}).GetCustomer(ctx, id)
}

func (r *memoryRepo) ListTransferItems(ctx context.Context, filter ListFilter) ([]TransferItem, error) {
	var docs []TransferItem
	for id := range r.transfers {
		doc, err := r.GetTransferItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc.Form.Number != "" {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *memoryRepo) ListReceiveItems(ctx context.Context, filter ListFilter) ([]ReceiveItem, error) {
	var docs []ReceiveItem
	for id := range r.receives {
		doc, err := r.GetReceiveItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc.Form.Number != "" {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *memoryRepo) ListCustomers(ctx context.Context, filter ListFilter) ([]TransferItemCustomer, error) {
	var docs []TransferItemCustomer
	for id := range r.customers {
		doc, err := r.GetCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc.Form.Number != "" {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) Forms() FormStore       { return t.repo.forms }
func (t *memoryTx) Ledger() *ledger.Ledger { return ledger.New(t.repo.ledger) }
func (t *memoryTx) Journal() *journal.Poster {
	return journal.NewPoster(t.repo.journal, t.repo.accounts)
}
func (t *memoryTx) Items() ItemReader { return t.repo.items }

func (t *memoryTx) InsertTransferItem(ctx context.Context, doc TransferItem) (int64, error) {
	t.repo.nextID++
	doc.ID = t.repo.nextID
	t.repo.transfers[doc.ID] = doc
	return doc.ID, nil
}

func (t *memoryTx) GetTransferItem(ctx context.Context, id int64) (TransferItem, error) {
	doc, ok := t.repo.transfers[id]
	if !ok {
		return TransferItem{}, ErrNotFound
	}
	form, err := t.repo.forms.GetByFormable(ctx, FormableTypeTransferItem, id)
	if err != nil {
		return TransferItem{}, ErrNotFound
	}
	doc.Form = form
	return doc, nil
}

func (t *memoryTx) HasReceiveItems(ctx context.Context, transferItemID int64) (bool, error) {
	for _, r := range t.repo.receives {
		if r.TransferItemID == transferItemID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) InsertReceiveItem(ctx context.Context, doc ReceiveItem) (int64, error) {
	t.repo.nextID++
	doc.ID = t.repo.nextID
	t.repo.receives[doc.ID] = doc
	return doc.ID, nil
}

func (t *memoryTx) GetReceiveItem(ctx context.Context, id int64) (ReceiveItem, error) {
	doc, ok := t.repo.receives[id]
	if !ok {
		return ReceiveItem{}, ErrNotFound
	}
	form, err := t.repo.forms.GetByFormable(ctx, FormableTypeReceiveItem, id)
	if err != nil {
		return ReceiveItem{}, ErrNotFound
	}
	doc.Form = form
	return doc, nil
}

func (t *memoryTx) InsertCustomer(ctx context.Context, doc TransferItemCustomer) (int64, error) {
	t.repo.nextID++
	doc.ID = t.repo.nextID
	t.repo.customers[doc.ID] = doc
	return doc.ID, nil
}

func (t *memoryTx) GetCustomer(ctx context.Context, id int64) (TransferItemCustomer, error) {
	doc, ok := t.repo.customers[id]
	if !ok {
		return TransferItemCustomer{}, ErrNotFound
	}
	form, err := t.repo.forms.GetByFormable(ctx, FormableTypeCustomer, id)
	if err != nil {
		return TransferItemCustomer{}, ErrNotFound
	}
	doc.Form = form
	return doc, nil
}

// memoryForms is an in-memory FormStore.
type memoryForms struct {
	forms  map[int64]forms.Form
	nextID int64
}

func newMemoryForms() *memoryForms {
	return &memoryForms{forms: map[int64]forms.Form{}}
}

func (s *memoryForms) NextIncrement(ctx context.Context, group int) (int, error) {
	maxInc := 0
	for _, f := range s.forms {
		if f.IncrementGroup == group && f.Increment > maxInc {
			maxInc = f.Increment
		}
	}
	return maxInc + 1, nil
}

func (s *memoryForms) Insert(ctx context.Context, form forms.Form) (forms.Form, error) {
	s.nextID++
	form.ID = s.nextID
	form.CreatedAt = time.Now()
	s.forms[form.ID] = form
	return form, nil
}

func (s *memoryForms) Get(ctx context.Context, id int64) (forms.Form, error) {
	form, ok := s.forms[id]
	if !ok {
		return forms.Form{}, forms.ErrNotFound
	}
	return form, nil
}

func (s *memoryForms) GetByFormable(ctx context.Context, formableType string, formableID int64) (forms.Form, error) {
	var found forms.Form
	var ok bool
	for _, f := range s.forms {
		if f.FormableType == formableType && f.FormableID == formableID && f.ID > found.ID {
			found, ok = f, true
		}
	}
	if !ok {
		return forms.Form{}, forms.ErrNotFound
	}
	return found, nil
}

func (s *memoryForms) Archive(ctx context.Context, id int64) error {
	form, ok := s.forms[id]
	if !ok || form.Number == "" {
		return forms.ErrNotFound
	}
	form.EditedNumber = form.Number
	form.Number = ""
	s.forms[id] = form
	return nil
}

func (s *memoryForms) Update(ctx context.Context, form forms.Form) error {
	if _, ok := s.forms[form.ID]; !ok {
		return forms.ErrNotFound
	}
	s.forms[form.ID] = form
	return nil
}

// memoryLedgerStore is an in-memory ledger.Store.
type memoryLedgerStore struct {
	entries []ledger.Entry
	nextID  int64
}

func (s *memoryLedgerStore) Insert(ctx context.Context, entry ledger.Entry) error {
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryLedgerStore) LockLot(ctx context.Context, key ledger.LotKey) error {
	return nil
}

func (s *memoryLedgerStore) SumLot(ctx context.Context, key ledger.LotKey, asOf time.Time, excludeFormID int64) (float64, error) {
	sum := 0.0
	for _, e := range s.entries {
		entryKey := ledger.LotOptions{ProductionNumber: e.ProductionNumber, ExpiryDate: e.ExpiryDate}.Key(e.ItemID, e.WarehouseID)
		if entryKey.String() != key.String() {
			continue
		}
		if !asOf.IsZero() && !e.FormDate.Before(asOf) {
			continue
		}
		if excludeFormID != 0 && e.FormID == excludeFormID {
			continue
		}
		sum += e.BaseQuantity()
	}
	return sum, nil
}

func (s *memoryLedgerStore) DeleteByForm(ctx context.Context, formID int64) error {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.FormID != formID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func (s *memoryLedgerStore) ListByForm(ctx context.Context, formID int64) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range s.entries {
		if e.FormID == formID {
			out = append(out, e)
		}
	}
	return out, nil
}

// memoryJournalStore is an in-memory journal.Store.
type memoryJournalStore struct {
	entries []journal.Entry
	nextID  int64
}

func (s *memoryJournalStore) Insert(ctx context.Context, entry journal.Entry) error {
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryJournalStore) DeleteByForm(ctx context.Context, formID int64) error {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.FormID != formID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func (s *memoryJournalStore) ListByForm(ctx context.Context, formID int64) ([]journal.Entry, error) {
	var out []journal.Entry
	for _, e := range s.entries {
		if e.FormID == formID {
			out = append(out, e)
		}
	}
	return out, nil
}

// memoryItems is an in-memory ItemReader.
type memoryItems struct {
	items map[int64]items.Item
	cogs  map[int64]decimal.Decimal
}

func (s *memoryItems) Get(ctx context.Context, id int64) (items.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return items.Item{}, items.ErrNotFound
	}
	return item, nil
}

func (s *memoryItems) Cogs(ctx context.Context, id int64) (decimal.Decimal, error) {
	if _, ok := s.items[id]; !ok {
		return decimal.Zero, items.ErrNotFound
	}
	return s.cogs[id], nil
}

// memoryAccounts maps "feature/name" to an account id.
type memoryAccounts map[string]int64

func (a memoryAccounts) ResolveAccount(ctx context.Context, feature, name string) (int64, error) {
	id, ok := a[feature+"/"+name]
	if !ok {
		return 0, settings.ErrMappingNotFound
	}
	return id, nil
}

// memoryWarehouses is an in-memory WarehousePort.
type memoryWarehouses map[int64]warehouses.Warehouse

func (m memoryWarehouses) Get(ctx context.Context, id int64) (warehouses.Warehouse, error) {
	w, ok := m[id]
	if !ok {
		return warehouses.Warehouse{}, warehouses.ErrNotFound
	}
	return w, nil
}

func (m memoryWarehouses) Distribution(ctx context.Context) (warehouses.Warehouse, error) {
	for _, w := range m {
		if w.IsDistribution {
			return w, nil
		}
	}
	return warehouses.Warehouse{}, warehouses.ErrNoDistributionWarehouse
}

// memoryCustomers is an in-memory CustomerPort.
type memoryCustomers struct {
	customers   map[int64]customers.Customer
	expeditions map[int64]customers.Expedition
}

func (m *memoryCustomers) Get(ctx context.Context, id int64) (customers.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return customers.Customer{}, customers.ErrNotFound
	}
	return c, nil
}

func (m *memoryCustomers) GetExpedition(ctx context.Context, id int64) (customers.Expedition, error) {
	e, ok := m.expeditions[id]
	if !ok {
		return customers.Expedition{}, customers.ErrNotFound
	}
	return e, nil
}

// memoryAudit records activity in memory.
type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func (a *memoryAudit) List(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error) {
	var out []shared.AuditLog
	for _, l := range a.logs {
		if l.Entity == entity && l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

// memoryNotifier captures approval requests.
type memoryNotifier struct {
	requests []ApprovalRequest
}

func (n *memoryNotifier) NotifyApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	n.requests = append(n.requests, req)
	return nil
}
