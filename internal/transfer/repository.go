package transfer

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockpoint-erp/stockpoint-erp/internal/forms"
	"github.com/stockpoint-erp/stockpoint-erp/internal/journal"
	"github.com/stockpoint-erp/stockpoint-erp/internal/ledger"
	"github.com/stockpoint-erp/stockpoint-erp/internal/masterdata/items"
	"github.com/stockpoint-erp/stockpoint-erp/internal/platform/db"
)

// pgDB is the pgx subset shared by pool- and tx-bound query code.
type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the pgx-backed RepositoryPort.
type Repository struct {
	pool     *pgxpool.Pool
	accounts journal.Resolver
	queries
}

// NewRepository constructs the repository. accounts is the journal mapping
// resolver shared with the poster built inside each transaction.
func NewRepository(pool *pgxpool.Pool, accounts journal.Resolver) *Repository {
	return &Repository{pool: pool, accounts: accounts, queries: queries{db: pool}}
}

var _ RepositoryPort = (*Repository)(nil)

// WithTx runs fn inside a repeatable-read transaction. The TxRepository it
// receives binds document, form, ledger and journal writes to that
// transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			queries: queries{db: tx},
			forms:   forms.NewStore(tx),
			ledger:  ledger.New(ledger.NewStore(tx)),
			journal: journal.NewPoster(journal.NewStore(tx), r.accounts),
			items:   items.NewRepository(tx),
		})
	})
}

// txRepository is the transaction-scoped TxRepository.
type txRepository struct {
	queries
	forms   *forms.Store
	ledger  *ledger.Ledger
	journal *journal.Poster
	items   *items.Repository
}

var _ TxRepository = (*txRepository)(nil)

func (t *txRepository) Forms() FormStore       { return t.forms }
func (t *txRepository) Ledger() *ledger.Ledger { return t.ledger }
func (t *txRepository) Journal() *journal.Poster {
	return t.journal
}
func (t *txRepository) Items() ItemReader { return t.items }

// queries holds the SQL shared by the pool-bound repository and the
// tx-bound view.
type queries struct {
	db pgDB
}

func (q queries) InsertTransferItem(ctx context.Context, doc TransferItem) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO transfer_items
(warehouse_id, to_warehouse_id, driver, notes) VALUES ($1, $2, $3, $4) RETURNING id`,
		doc.WarehouseID, doc.ToWarehouseID, doc.Driver, doc.Notes).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := q.insertLines(ctx, "transfer_item_items", "transfer_item_id", id, doc.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func (q queries) GetTransferItem(ctx context.Context, id int64) (TransferItem, error) {
	var doc TransferItem
	err := q.db.QueryRow(ctx, `SELECT id, warehouse_id, to_warehouse_id, driver, notes
FROM transfer_items WHERE id = $1`, id).
		Scan(&doc.ID, &doc.WarehouseID, &doc.ToWarehouseID, &doc.Driver, &doc.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransferItem{}, ErrNotFound
		}
		return TransferItem{}, err
	}
	if doc.Items, err = q.listLines(ctx, "transfer_item_items", "transfer_item_id", id); err != nil {
		return TransferItem{}, err
	}
	if doc.Form, err = q.formOf(ctx, FormableTypeTransferItem, id); err != nil {
		return TransferItem{}, err
	}
	return doc, nil
}

func (q queries) HasReceiveItems(ctx context.Context, transferItemID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM receive_items WHERE transfer_item_id = $1)`,
		transferItemID).Scan(&exists)
	return exists, err
}

func (q queries) InsertReceiveItem(ctx context.Context, doc ReceiveItem) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO receive_items
(transfer_item_id, warehouse_id, from_warehouse_id, driver, notes)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		doc.TransferItemID, doc.WarehouseID, doc.FromWarehouseID, doc.Driver, doc.Notes).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := q.insertLines(ctx, "receive_item_items", "receive_item_id", id, doc.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func (q queries) GetReceiveItem(ctx context.Context, id int64) (ReceiveItem, error) {
	var doc ReceiveItem
	err := q.db.QueryRow(ctx, `SELECT id, transfer_item_id, warehouse_id, from_warehouse_id, driver, notes
FROM receive_items WHERE id = $1`, id).
		Scan(&doc.ID, &doc.TransferItemID, &doc.WarehouseID, &doc.FromWarehouseID, &doc.Driver, &doc.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReceiveItem{}, ErrNotFound
		}
		return ReceiveItem{}, err
	}
	if doc.Items, err = q.listLines(ctx, "receive_item_items", "receive_item_id", id); err != nil {
		return ReceiveItem{}, err
	}
	if doc.Form, err = q.formOf(ctx, FormableTypeReceiveItem, id); err != nil {
		return ReceiveItem{}, err
	}
	return doc, nil
}

func (q queries) InsertCustomer(ctx context.Context, doc TransferItemCustomer) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, `INSERT INTO transfer_item_customers
(warehouse_id, customer_id, expedition_id, car_plate, stnk, driver_phone, notes)
VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7) RETURNING id`,
		doc.WarehouseID, doc.CustomerID, doc.ExpeditionID,
		doc.CarPlate, doc.Stnk, doc.DriverPhone, doc.Notes).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := q.insertLines(ctx, "transfer_item_customer_items", "transfer_item_customer_id", id, doc.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func (q queries) GetCustomer(ctx context.Context, id int64) (TransferItemCustomer, error) {
	var doc TransferItemCustomer
	var expedition *int64
	err := q.db.QueryRow(ctx, `SELECT id, warehouse_id, customer_id, expedition_id, car_plate, stnk, driver_phone, notes
FROM transfer_item_customers WHERE id = $1`, id).
		Scan(&doc.ID, &doc.WarehouseID, &doc.CustomerID, &expedition,
			&doc.CarPlate, &doc.Stnk, &doc.DriverPhone, &doc.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransferItemCustomer{}, ErrNotFound
		}
		return TransferItemCustomer{}, err
	}
	if expedition != nil {
		doc.ExpeditionID = *expedition
	}
	if doc.Items, err = q.listLines(ctx, "transfer_item_customer_items", "transfer_item_customer_id", id); err != nil {
		return TransferItemCustomer{}, err
	}
	if doc.Form, err = q.formOf(ctx, FormableTypeCustomer, id); err != nil {
		return TransferItemCustomer{}, err
	}
	return doc, nil
}

func (q queries) ListTransferItems(ctx context.Context, filter ListFilter) ([]TransferItem, error) {
	ids, err := q.listIDs(ctx, FormableTypeTransferItem, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]TransferItem, 0, len(ids))
	for _, id := range ids {
		doc, err := q.GetTransferItem(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (q queries) ListReceiveItems(ctx context.Context, filter ListFilter) ([]ReceiveItem, error) {
	ids, err := q.listIDs(ctx, FormableTypeReceiveItem, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]ReceiveItem, 0, len(ids))
	for _, id := range ids {
		doc, err := q.GetReceiveItem(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (q queries) ListCustomers(ctx context.Context, filter ListFilter) ([]TransferItemCustomer, error) {
	ids, err := q.listIDs(ctx, FormableTypeCustomer, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]TransferItemCustomer, 0, len(ids))
	for _, id := range ids {
		doc, err := q.GetCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// listIDs pages over active (numbered) forms of one document type, newest
// first.
func (q queries) listIDs(ctx context.Context, formableType string, filter ListFilter) ([]int64, error) {
	query := `SELECT formable_id FROM forms
WHERE formable_type = $1 AND number IS NOT NULL`
	args := []any{formableType}
	if filter.ApprovalStatus != nil {
		args = append(args, *filter.ApprovalStatus)
		query += ` AND approval_status = $2`
	}
	query += ` ORDER BY id DESC`
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q queries) insertLines(ctx context.Context, table, fk string, docID int64, lines []Line) error {
	for _, line := range lines {
		_, err := q.db.Exec(ctx, `INSERT INTO `+table+`
(`+fk+`, item_id, item_name, quantity, unit, converter, stock, balance, production_number, expiry_date, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			docID, line.ItemID, line.ItemName, line.Quantity, line.Unit, line.Converter,
			line.Stock, line.Balance, line.ProductionNumber, line.ExpiryDate, line.Notes)
		if err != nil {
			return err
		}
	}
	return nil
}

func (q queries) listLines(ctx context.Context, table, fk string, docID int64) ([]Line, error) {
	rows, err := q.db.Query(ctx, `SELECT id, `+fk+`, item_id, item_name, quantity, unit, converter,
stock, balance, production_number, expiry_date, notes
FROM `+table+` WHERE `+fk+` = $1 ORDER BY id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.DocumentID, &line.ItemID, &line.ItemName,
			&line.Quantity, &line.Unit, &line.Converter, &line.Stock, &line.Balance,
			&line.ProductionNumber, &line.ExpiryDate, &line.Notes); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (q queries) formOf(ctx context.Context, formableType string, formableID int64) (forms.Form, error) {
	form, err := forms.NewStore(q.db).GetByFormable(ctx, formableType, formableID)
	if errors.Is(err, forms.ErrNotFound) {
		return forms.Form{}, ErrNotFound
	}
	return form, err
}
