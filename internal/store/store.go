// Package store is the persistence sink: canonical JSON files plus a
// relational store (SQLite by default, Postgres via DSN) holding the
// flattened invoice rows with replace semantics on invoice_number.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/flatten"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store wraps a database/sql handle over either driver.
type Store struct {
	db      *sql.DB
	pool    *pgxpool.Pool // non-nil only for postgres
	dialect dialect
	logger  *slog.Logger
}

// Open connects to the relational sink. A postgres:// DSN opens a pgx pool
// wrapped for database/sql; anything else is treated as a SQLite path
// (":memory:" works for tests).
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(cfg.DSN, logger)
}

func openSQLite(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %v: %w", path, err, common.ErrDatabase)
	}
	// Single writer: sqlite locks the whole file anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %v: %w", err, common.ErrDatabase)
	}
	logger.Info("store.open", "driver", "sqlite", "path", path)
	return &Store{db: db, dialect: dialectSQLite, logger: logger}, nil
}

func openPostgres(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %v: %w", err, common.ErrDatabase)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %v: %w", err, common.ErrDatabase)
	}

	logger.Info("store.open", "driver", "postgres")
	return &Store{
		db:      stdlib.OpenDBFromPool(pool),
		pool:    pool,
		dialect: dialectPostgres,
		logger:  logger,
	}, nil
}

// Close closes the database connections gracefully.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS invoices (
	invoice_number TEXT PRIMARY KEY,
	date TEXT,
	due_date TEXT,
	currency TEXT,
	customer_id TEXT,
	po_number TEXT,
	sales_order TEXT,
	sap_number TEXT,
	container TEXT,
	incoterms TEXT,
	messers TEXT,
	origin TEXT,
	payment_terms TEXT,
	sale_conditions TEXT,
	total_cases INTEGER NOT NULL,
	total_quantity TEXT NOT NULL,
	total_value REAL NOT NULL,
	source_filename TEXT
);
CREATE TABLE IF NOT EXISTS addresses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_number TEXT NOT NULL REFERENCES invoices(invoice_number),
	role TEXT NOT NULL,
	street TEXT,
	city TEXT,
	state TEXT,
	zip_code TEXT,
	country TEXT,
	phone TEXT
);
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_number TEXT NOT NULL REFERENCES invoices(invoice_number),
	cases INTEGER NOT NULL,
	code TEXT NOT NULL,
	goods_descriptions TEXT NOT NULL,
	quantity TEXT NOT NULL,
	unit_value REAL NOT NULL,
	item_total_value REAL
);
CREATE INDEX IF NOT EXISTS idx_addresses_invoice ON addresses(invoice_number);
CREATE INDEX IF NOT EXISTS idx_items_invoice ON items(invoice_number);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS invoices (
	invoice_number TEXT PRIMARY KEY,
	date TEXT,
	due_date TEXT,
	currency TEXT,
	customer_id TEXT,
	po_number TEXT,
	sales_order TEXT,
	sap_number TEXT,
	container TEXT,
	incoterms TEXT,
	messers TEXT,
	origin TEXT,
	payment_terms TEXT,
	sale_conditions TEXT,
	total_cases INTEGER NOT NULL,
	total_quantity TEXT NOT NULL,
	total_value DOUBLE PRECISION NOT NULL,
	source_filename TEXT
);
CREATE TABLE IF NOT EXISTS addresses (
	id BIGSERIAL PRIMARY KEY,
	invoice_number TEXT NOT NULL REFERENCES invoices(invoice_number),
	role TEXT NOT NULL,
	street TEXT,
	city TEXT,
	state TEXT,
	zip_code TEXT,
	country TEXT,
	phone TEXT
);
CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	invoice_number TEXT NOT NULL REFERENCES invoices(invoice_number),
	cases INTEGER NOT NULL,
	code TEXT NOT NULL,
	goods_descriptions TEXT NOT NULL,
	quantity TEXT NOT NULL,
	unit_value DOUBLE PRECISION NOT NULL,
	item_total_value DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS idx_addresses_invoice ON addresses(invoice_number);
CREATE INDEX IF NOT EXISTS idx_items_invoice ON items(invoice_number);
`

// Init creates the three tables of the fixed relational layout.
func (s *Store) Init(ctx context.Context) error {
	ddl := sqliteSchema
	if s.dialect == dialectPostgres {
		ddl = postgresSchema
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %v: %w", err, common.ErrDatabase)
	}
	return nil
}

// UpsertInvoice writes one flattened invoice transactionally: the header row
// is upserted on invoice_number, and child addresses/items rows are deleted
// and reinserted so reruns reflect exactly the latest extraction — stale
// child rows never accumulate.
func (s *Store) UpsertInvoice(ctx context.Context, rs flatten.RowSet) (err error) {
	start := time.Now()
	key := rs.Key()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %v: %w", err, common.ErrDatabase)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	saleConditions, err := encodeConditions(rs.Invoice.SaleConditions)
	if err != nil {
		return err
	}

	inv := rs.Invoice
	_, err = tx.ExecContext(ctx, s.bind(`
		INSERT INTO invoices (
			invoice_number, date, due_date, currency, customer_id,
			po_number, sales_order, sap_number, container, incoterms,
			messers, origin, payment_terms, sale_conditions,
			total_cases, total_quantity, total_value, source_filename
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (invoice_number) DO UPDATE SET
			date = excluded.date,
			due_date = excluded.due_date,
			currency = excluded.currency,
			customer_id = excluded.customer_id,
			po_number = excluded.po_number,
			sales_order = excluded.sales_order,
			sap_number = excluded.sap_number,
			container = excluded.container,
			incoterms = excluded.incoterms,
			messers = excluded.messers,
			origin = excluded.origin,
			payment_terms = excluded.payment_terms,
			sale_conditions = excluded.sale_conditions,
			total_cases = excluded.total_cases,
			total_quantity = excluded.total_quantity,
			total_value = excluded.total_value,
			source_filename = excluded.source_filename`),
		key, inv.Date, inv.DueDate, inv.Currency, inv.CustomerID,
		inv.PONumber, inv.SalesOrder, inv.SAPNumber, inv.Container, inv.Incoterms,
		inv.Messers, inv.Origin, inv.PaymentTerms, saleConditions,
		inv.TotalCases, inv.TotalQuantity, inv.TotalValue, inv.SourceFilename,
	)
	if err != nil {
		return fmt.Errorf("upsert invoice %s: %v: %w", key, err, common.ErrDatabase)
	}

	for _, table := range []string{"addresses", "items"} {
		if _, err = tx.ExecContext(ctx, s.bind("DELETE FROM "+table+" WHERE invoice_number = ?"), key); err != nil {
			return fmt.Errorf("clear %s for %s: %v: %w", table, key, err, common.ErrDatabase)
		}
	}

	for _, a := range rs.Addresses {
		_, err = tx.ExecContext(ctx, s.bind(`
			INSERT INTO addresses (invoice_number, role, street, city, state, zip_code, country, phone)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			a.InvoiceNumber, a.Role, a.Street, a.City, a.State, a.ZipCode, a.Country, a.Phone,
		)
		if err != nil {
			return fmt.Errorf("insert address for %s: %v: %w", key, err, common.ErrDatabase)
		}
	}

	for _, it := range rs.Items {
		_, err = tx.ExecContext(ctx, s.bind(`
			INSERT INTO items (invoice_number, cases, code, goods_descriptions, quantity, unit_value, item_total_value)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			it.InvoiceNumber, it.Cases, it.Code, it.GoodsDescriptions, it.Quantity, it.UnitValue, it.ItemTotalValue,
		)
		if err != nil {
			return fmt.Errorf("insert item for %s: %v: %w", key, err, common.ErrDatabase)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %v: %w", key, err, common.ErrDatabase)
	}

	s.logger.Info("store.upsert.ok",
		"invoice_number", key,
		"addresses", len(rs.Addresses),
		"items", len(rs.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// CountRows returns the row count of one of the three tables; used by
// callers reporting on a run and by tests.
func (s *Store) CountRows(ctx context.Context, table, invoiceNumber string) (int, error) {
	switch table {
	case "invoices", "addresses", "items":
	default:
		return 0, fmt.Errorf("unknown table %q: %w", table, common.ErrInvalidInput)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		s.bind("SELECT COUNT(*) FROM "+table+" WHERE invoice_number = ?"), invoiceNumber).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %v: %w", table, err, common.ErrDatabase)
	}
	return n, nil
}

// bind rewrites ? placeholders to $n for postgres.
func (s *Store) bind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func encodeConditions(conds []string) (string, error) {
	if conds == nil {
		conds = []string{}
	}
	b, err := json.Marshal(conds)
	if err != nil {
		return "", fmt.Errorf("encode sale_conditions: %w", err)
	}
	return string(b), nil
}
