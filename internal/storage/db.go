package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"chandler/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY,
  syncUid TEXT,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  altName TEXT,
  category TEXT NOT NULL DEFAULT '',
  unit TEXT,
  listPrice TEXT,
  updatedAt TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_code ON products(code);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

CREATE TABLE IF NOT EXISTS suppliers (
  id INTEGER PRIMARY KEY,
  syncUid TEXT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  cc TEXT NOT NULL DEFAULT '[]',
  categories TEXT NOT NULL DEFAULT '[]',
  active INTEGER NOT NULL DEFAULT 1,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_uploads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  reference TEXT NOT NULL UNIQUE,
  shipName TEXT,
  voyageNo TEXT,
  invoiceNo TEXT,
  port TEXT,
  receivedAt TEXT,
  status TEXT NOT NULL DEFAULT 'received',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  uploadId INTEGER NOT NULL,
  productCode TEXT,
  productName TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  unit TEXT,
  quantity TEXT NOT NULL,
  unitPrice TEXT NOT NULL,
  amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(uploadId) REFERENCES order_uploads(id)
);
CREATE INDEX IF NOT EXISTS idx_order_items_upload ON order_items(uploadId);

CREATE TABLE IF NOT EXISTS dispatches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  batchId TEXT NOT NULL,
  supplierId INTEGER NOT NULL,
  position INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  error TEXT,
  messageId TEXT,
  sentAt TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(batchId, supplierId)
);

CREATE TABLE IF NOT EXISTS replies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  supplierId INTEGER,
  messageId TEXT NOT NULL UNIQUE,
  inReplyTo TEXT,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  bodyText TEXT,
  isBounce INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  batchId TEXT,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertProducts(products []internal.CatalogProduct) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (id, syncUid, code, name, altName, category, unit, listPrice, updatedAt, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  syncUid=excluded.syncUid,
  code=excluded.code,
  name=excluded.name,
  altName=excluded.altName,
  category=excluded.category,
  unit=excluded.unit,
  listPrice=excluded.listPrice,
  updatedAt=excluded.updatedAt,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		var price *string
		if p.ListPrice != nil {
			s := p.ListPrice.String()
			price = &s
		}
		if _, err := stmt.Exec(p.ID, p.SyncUID, p.Code, p.Name, p.AltName, p.Category, p.Unit, price, p.UpdatedAt, p.RawJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListProducts() ([]internal.CatalogProduct, error) {
	return d.queryProducts(`SELECT id, syncUid, code, name, altName, category, unit, listPrice, updatedAt, raw_json FROM products`)
}

func (d *DB) ListProductsByCategory(category string) ([]internal.CatalogProduct, error) {
	return d.queryProducts(`SELECT id, syncUid, code, name, altName, category, unit, listPrice, updatedAt, raw_json FROM products WHERE category = ?`, category)
}

func (d *DB) queryProducts(query string, args ...any) ([]internal.CatalogProduct, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CatalogProduct
	for rows.Next() {
		var p internal.CatalogProduct
		var price *string
		if err := rows.Scan(&p.ID, &p.SyncUID, &p.Code, &p.Name, &p.AltName, &p.Category, &p.Unit, &price, &p.UpdatedAt, &p.RawJSON); err != nil {
			return nil, err
		}
		if price != nil {
			if dec, err := decimal.NewFromString(*price); err == nil {
				p.ListPrice = &dec
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) UpsertSuppliers(suppliers []internal.SupplierRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO suppliers (id, syncUid, name, email, cc, categories, active, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  syncUid=excluded.syncUid,
  name=excluded.name,
  email=excluded.email,
  cc=excluded.cc,
  categories=excluded.categories,
  active=excluded.active,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range suppliers {
		ccJSON, _ := json.Marshal(s.CC)
		catJSON, _ := json.Marshal(s.Categories)
		if _, err := stmt.Exec(s.ID, s.SyncUID, s.Name, s.Email, string(ccJSON), string(catJSON), boolToInt(s.Active), s.RawJSON); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetSupplier(id int) (*internal.SupplierRecord, error) {
	row := d.conn.QueryRow(`SELECT id, syncUid, name, email, cc, categories, active, raw_json FROM suppliers WHERE id = ?`, id)
	s, err := scanSupplier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (d *DB) ListSuppliers(activeOnly bool) ([]internal.SupplierRecord, error) {
	query := `SELECT id, syncUid, name, email, cc, categories, active, raw_json FROM suppliers`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	rows, err := d.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SupplierRecord
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplier(row rowScanner) (*internal.SupplierRecord, error) {
	var s internal.SupplierRecord
	var ccJSON, catJSON string
	var active int
	if err := row.Scan(&s.ID, &s.SyncUID, &s.Name, &s.Email, &ccJSON, &catJSON, &active, &s.RawJSON); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(ccJSON), &s.CC)
	_ = json.Unmarshal([]byte(catJSON), &s.Categories)
	s.Active = active != 0
	return &s, nil
}

func (d *DB) UpsertUpload(u internal.OrderUpload) (internal.OrderUpload, error) {
	_, err := d.conn.Exec(`
INSERT INTO order_uploads (reference, shipName, voyageNo, invoiceNo, port, receivedAt, status)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(reference) DO UPDATE SET
  shipName=excluded.shipName,
  voyageNo=excluded.voyageNo,
  invoiceNo=excluded.invoiceNo,
  port=excluded.port,
  receivedAt=excluded.receivedAt
`, u.Reference, u.ShipName, u.VoyageNo, u.InvoiceNo, u.Port, u.ReceivedAt, u.Status)
	if err != nil {
		return internal.OrderUpload{}, err
	}

	row, err := d.GetUploadByReference(u.Reference)
	if err != nil {
		return internal.OrderUpload{}, err
	}
	if row == nil {
		return internal.OrderUpload{}, errors.New("failed to upsert order upload")
	}
	return *row, nil
}

func (d *DB) GetUploadByReference(reference string) (*internal.OrderUpload, error) {
	var u internal.OrderUpload
	err := d.conn.QueryRow(`
SELECT id, reference, shipName, voyageNo, invoiceNo, port, receivedAt, status
FROM order_uploads WHERE reference = ?
`, reference).Scan(&u.ID, &u.Reference, &u.ShipName, &u.VoyageNo, &u.InvoiceNo, &u.Port, &u.ReceivedAt, &u.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) GetUploadByID(id int) (*internal.OrderUpload, error) {
	var u internal.OrderUpload
	err := d.conn.QueryRow(`
SELECT id, reference, shipName, voyageNo, invoiceNo, port, receivedAt, status
FROM order_uploads WHERE id = ?
`, id).Scan(&u.ID, &u.Reference, &u.ShipName, &u.VoyageNo, &u.InvoiceNo, &u.Port, &u.ReceivedAt, &u.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) InsertOrderItems(uploadID int, items []internal.OrderLineItem) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO order_items (uploadId, productCode, productName, category, unit, quantity, unitPrice, amount, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		amount := item.Quantity.Mul(item.UnitPrice)
		status := item.Status
		if status == "" {
			status = internal.ItemPending
		}
		if _, err := stmt.Exec(uploadID, item.ProductCode, item.ProductName, item.Category, item.Unit,
			item.Quantity.String(), item.UnitPrice.String(), amount.String(), string(status)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListOrderItemsByUpload(uploadID int) ([]internal.OrderLineItem, error) {
	rows, err := d.conn.Query(`
SELECT id, uploadId, productCode, productName, category, unit, quantity, unitPrice, amount, status
FROM order_items WHERE uploadId = ? ORDER BY id ASC
`, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.OrderLineItem
	for rows.Next() {
		var item internal.OrderLineItem
		var qty, price, amount, status string
		if err := rows.Scan(&item.ID, &item.UploadID, &item.ProductCode, &item.ProductName, &item.Category, &item.Unit, &qty, &price, &amount, &status); err != nil {
			return nil, err
		}
		item.Quantity, _ = decimal.NewFromString(qty)
		item.UnitPrice, _ = decimal.NewFromString(price)
		item.Amount, _ = decimal.NewFromString(amount)
		item.Status = internal.ItemStatus(status)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) UpdateOrderItemStatus(itemIDs []int, status internal.ItemStatus) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range itemIDs {
		if _, err := tx.Exec(`UPDATE order_items SET status = ? WHERE id = ?`, string(status), id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertDispatch(batchID string, supplierID, position int) error {
	_, err := d.conn.Exec(`
INSERT INTO dispatches (batchId, supplierId, position, status)
VALUES (?, ?, ?, 'pending')
ON CONFLICT(batchId, supplierId) DO NOTHING
`, batchID, supplierID, position)
	return err
}

func (d *DB) UpdateDispatch(batchID string, supplierID int, record internal.DispatchRecord) error {
	_, err := d.conn.Exec(`
UPDATE dispatches SET status = ?, error = ?, messageId = ?, sentAt = ?, updatedAt = CURRENT_TIMESTAMP
WHERE batchId = ? AND supplierId = ?
`, string(record.Status), record.Error, record.MessageID, record.SentAt, batchID, supplierID)
	return err
}

func (d *DB) ListDispatches(batchID string) ([]internal.DispatchRecord, error) {
	rows, err := d.conn.Query(`
SELECT supplierId, status, COALESCE(error, ''), COALESCE(messageId, ''), COALESCE(sentAt, '')
FROM dispatches WHERE batchId = ? ORDER BY position ASC
`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DispatchRecord
	for rows.Next() {
		var r internal.DispatchRecord
		var status string
		if err := rows.Scan(&r.SupplierID, &status, &r.Error, &r.MessageID, &r.SentAt); err != nil {
			return nil, err
		}
		r.Status = internal.DispatchStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SupplierByDispatchMessageID correlates an inbound In-Reply-To header with
// the dispatch that produced the original message.
func (d *DB) SupplierByDispatchMessageID(messageID string) (int, bool, error) {
	var supplierID int
	err := d.conn.QueryRow(`SELECT supplierId FROM dispatches WHERE messageId = ?`, messageID).Scan(&supplierID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return supplierID, true, nil
}

func (d *DB) InsertReply(r internal.ReplyRecord) error {
	_, err := d.conn.Exec(`
INSERT INTO replies (supplierId, messageId, inReplyTo, subject, sender, receivedAt, bodyText, isBounce)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(messageId) DO NOTHING
`, nullableID(r.SupplierID), r.MessageID, r.InReplyTo, r.Subject, r.Sender, r.ReceivedAt, r.BodyText, boolToInt(r.IsBounce))
	return err
}

func (d *DB) ListRepliesBySupplier(supplierID int) ([]internal.ReplyRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, COALESCE(supplierId, 0), messageId, COALESCE(inReplyTo, ''), COALESCE(subject, ''), COALESCE(sender, ''), COALESCE(receivedAt, ''), COALESCE(bodyText, ''), isBounce
FROM replies WHERE supplierId = ? ORDER BY receivedAt ASC
`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReplyRecord
	for rows.Next() {
		var r internal.ReplyRecord
		var bounce int
		if err := rows.Scan(&r.ID, &r.SupplierID, &r.MessageID, &r.InReplyTo, &r.Subject, &r.Sender, &r.ReceivedAt, &r.BodyText, &bounce); err != nil {
			return nil, err
		}
		r.IsBounce = bounce != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID, batchID string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, batchId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`,
		traceID, batchID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustSupplier(id int) (internal.SupplierRecord, error) {
	s, err := d.GetSupplier(id)
	if err != nil {
		return internal.SupplierRecord{}, err
	}
	if s == nil {
		return internal.SupplierRecord{}, fmt.Errorf("supplier not found: id=%d", id)
	}
	return *s, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableID(id int) any {
	if id == 0 {
		return nil
	}
	return id
}
