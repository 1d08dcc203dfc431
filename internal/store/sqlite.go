package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/haulview/freightmatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	mime_type    TEXT NOT NULL DEFAULT '',
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	storage_path TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS purchase_orders (
	id               TEXT PRIMARY KEY,
	po_number        TEXT NOT NULL UNIQUE,
	customer_name    TEXT NOT NULL,
	carrier_name     TEXT NOT NULL,
	origin           TEXT NOT NULL,
	destination      TEXT NOT NULL,
	pickup_date      DATETIME NOT NULL,
	delivery_date    DATETIME NOT NULL,
	expected_charges TEXT NOT NULL,
	total_amount     TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	file_id          TEXT REFERENCES files(id),
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bills_of_lading (
	id               TEXT PRIMARY KEY,
	bol_number       TEXT NOT NULL UNIQUE,
	po_number        TEXT NOT NULL,
	po_id            TEXT,
	carrier_name     TEXT NOT NULL,
	origin           TEXT NOT NULL,
	destination      TEXT NOT NULL,
	pickup_date      DATETIME NOT NULL,
	delivery_date    DATETIME NOT NULL,
	weight_lbs       REAL,
	item_description TEXT NOT NULL DEFAULT '',
	actual_charges   TEXT,
	pod_file_id      TEXT,
	pod_signed_at    DATETIME,
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS invoices (
	id               TEXT PRIMARY KEY,
	invoice_number   TEXT NOT NULL UNIQUE,
	carrier_name     TEXT NOT NULL,
	invoice_date     DATETIME NOT NULL,
	po_number        TEXT NOT NULL,
	bol_number       TEXT NOT NULL DEFAULT '',
	po_id            TEXT,
	bol_id           TEXT,
	charges          TEXT NOT NULL,
	total_amount     TEXT NOT NULL,
	payment_terms    TEXT NOT NULL DEFAULT '',
	due_date         DATETIME,
	file_id          TEXT,
	match_type       TEXT NOT NULL DEFAULT '',
	match_confidence REAL NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'pending',
	approved_at      DATETIME,
	approved_by      TEXT NOT NULL DEFAULT '',
	approval_notes   TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS matching_results (
	id                   TEXT PRIMARY KEY,
	po_id                TEXT NOT NULL,
	bol_id               TEXT,
	invoice_id           TEXT NOT NULL,
	match_status         TEXT NOT NULL,
	confidence_score     REAL NOT NULL,
	comparison           TEXT NOT NULL,
	flags                TEXT,
	flags_count          INTEGER NOT NULL DEFAULT 0,
	high_severity_flags  INTEGER NOT NULL DEFAULT 0,
	reasoning            TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS match_jobs (
	id          TEXT PRIMARY KEY,
	invoice_id  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	started_at  DATETIME,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_po_status ON purchase_orders(status);
CREATE INDEX IF NOT EXISTS idx_bol_status ON bills_of_lading(status);
CREATE INDEX IF NOT EXISTS idx_bol_po_number ON bills_of_lading(po_number);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
CREATE INDEX IF NOT EXISTS idx_invoices_po_number ON invoices(po_number);
CREATE INDEX IF NOT EXISTS idx_results_invoice_id ON matching_results(invoice_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON match_jobs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- purchase orders ---

func (s *SQLiteStore) CreatePO(ctx context.Context, po model.PurchaseOrder) (*model.PurchaseOrder, error) {
	po.ID = model.NewID(model.PrefixPurchaseOrder)
	now := time.Now().UTC()
	po.CreatedAt, po.UpdatedAt = now, now
	if po.Status == "" {
		po.Status = model.POStatusPending
	}

	chargesJSON, err := json.Marshal(po.ExpectedCharges)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal expected charges")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO purchase_orders
		 (id, po_number, customer_name, carrier_name, origin, destination, pickup_date, delivery_date,
		  expected_charges, total_amount, status, file_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		po.ID, po.PONumber, po.CustomerName, po.CarrierName, po.Origin, po.Destination,
		po.PickupDate, po.DeliveryDate, string(chargesJSON), po.TotalAmount.String(),
		string(po.Status), nullStr(po.FileID), po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrConflict, "sqlite: po_number %s", po.PONumber)
		}
		return nil, eris.Wrap(err, "sqlite: insert purchase order")
	}
	return &po, nil
}

const poColumns = `id, po_number, customer_name, carrier_name, origin, destination, pickup_date,
	delivery_date, expected_charges, total_amount, status, file_id, created_at, updated_at`

func (s *SQLiteStore) GetPO(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE id = ?`, id)
	return scanPO(row)
}

func (s *SQLiteStore) GetPOByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE po_number = ?`, poNumber)
	return scanPO(row)
}

func (s *SQLiteStore) ListPOsByStatus(ctx context.Context, statuses ...model.POStatus) ([]model.PurchaseOrder, error) {
	query := `SELECT ` + poColumns + ` FROM purchase_orders`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list purchase orders")
	}
	defer rows.Close()

	var pos []model.PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		pos = append(pos, *po)
	}
	return pos, eris.Wrap(rows.Err(), "sqlite: list purchase orders iterate")
}

func (s *SQLiteStore) UpdatePOStatus(ctx context.Context, id string, status model.POStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE purchase_orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update po status %s", id)
	}
	return checkRowsAffected(res, "purchase order", id)
}

// --- bills of lading ---

func (s *SQLiteStore) CreateBOL(ctx context.Context, bol model.BillOfLading) (*model.BillOfLading, error) {
	bol.ID = model.NewID(model.PrefixBillOfLading)
	now := time.Now().UTC()
	bol.CreatedAt, bol.UpdatedAt = now, now
	if bol.Status == "" {
		bol.Status = model.BOLStatusPending
	}

	var chargesJSON any
	if bol.ActualCharges != nil {
		raw, err := json.Marshal(bol.ActualCharges)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal actual charges")
		}
		chargesJSON = string(raw)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bills_of_lading
		 (id, bol_number, po_number, po_id, carrier_name, origin, destination, pickup_date, delivery_date,
		  weight_lbs, item_description, actual_charges, pod_file_id, pod_signed_at, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bol.ID, bol.BOLNumber, bol.PONumber, nullStr(bol.POID), bol.CarrierName, bol.Origin,
		bol.Destination, bol.PickupDate, bol.DeliveryDate, bol.WeightLbs, bol.ItemDescription,
		chargesJSON, nullStr(bol.PODFileID), bol.PODSignedAt, string(bol.Status),
		bol.CreatedAt, bol.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrConflict, "sqlite: bol_number %s", bol.BOLNumber)
		}
		return nil, eris.Wrap(err, "sqlite: insert bill of lading")
	}
	return &bol, nil
}

const bolColumns = `id, bol_number, po_number, po_id, carrier_name, origin, destination, pickup_date,
	delivery_date, weight_lbs, item_description, actual_charges, pod_file_id, pod_signed_at, status,
	created_at, updated_at`

func (s *SQLiteStore) GetBOL(ctx context.Context, id string) (*model.BillOfLading, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bolColumns+` FROM bills_of_lading WHERE id = ?`, id)
	return scanBOL(row)
}

func (s *SQLiteStore) GetBOLByPONumber(ctx context.Context, poNumber string) (*model.BillOfLading, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bolColumns+` FROM bills_of_lading WHERE po_number = ? ORDER BY created_at LIMIT 1`, poNumber)
	return scanBOL(row)
}

func (s *SQLiteStore) ListBOLsByStatus(ctx context.Context, statuses ...model.BOLStatus) ([]model.BillOfLading, error) {
	query := `SELECT ` + bolColumns + ` FROM bills_of_lading`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list bills of lading")
	}
	defer rows.Close()

	var bols []model.BillOfLading
	for rows.Next() {
		bol, err := scanBOL(rows)
		if err != nil {
			return nil, err
		}
		bols = append(bols, *bol)
	}
	return bols, eris.Wrap(rows.Err(), "sqlite: list bills of lading iterate")
}

func (s *SQLiteStore) UpdateBOLStatus(ctx context.Context, id string, status model.BOLStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bills_of_lading SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update bol status %s", id)
	}
	return checkRowsAffected(res, "bill of lading", id)
}

// --- invoices ---

func (s *SQLiteStore) CreateInvoice(ctx context.Context, inv model.Invoice) (*model.Invoice, error) {
	inv.ID = model.NewID(model.PrefixInvoice)
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	if inv.Status == "" {
		inv.Status = model.InvoiceStatusPending
	}

	chargesJSON, err := json.Marshal(inv.Charges)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal invoice charges")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invoices
		 (id, invoice_number, carrier_name, invoice_date, po_number, bol_number, po_id, bol_id,
		  charges, total_amount, payment_terms, due_date, file_id, match_type, match_confidence,
		  status, approved_at, approved_by, approval_notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InvoiceNumber, inv.CarrierName, inv.InvoiceDate, inv.PONumber, inv.BOLNumber,
		nullStr(inv.POID), nullStr(inv.BOLID), string(chargesJSON), inv.TotalAmount.String(),
		inv.PaymentTerms, inv.DueDate, nullStr(inv.FileID), string(inv.MatchType),
		inv.MatchConfidence, string(inv.Status), inv.ApprovedAt, inv.ApprovedBy, inv.ApprovalNotes,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrConflict, "sqlite: invoice_number %s", inv.InvoiceNumber)
		}
		return nil, eris.Wrap(err, "sqlite: insert invoice")
	}
	return &inv, nil
}

const invoiceColumns = `id, invoice_number, carrier_name, invoice_date, po_number, bol_number, po_id,
	bol_id, charges, total_amount, payment_terms, due_date, file_id, match_type, match_confidence,
	status, approved_at, approved_by, approval_notes, created_at, updated_at`

func (s *SQLiteStore) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

func (s *SQLiteStore) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CarrierName != "" {
		query += ` AND carrier_name = ?`
		args = append(args, filter.CarrierName)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list invoices")
	}
	defer rows.Close()

	var invs []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, *inv)
	}
	return invs, eris.Wrap(rows.Err(), "sqlite: list invoices iterate")
}

func (s *SQLiteStore) UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update invoice status %s", id)
	}
	return checkRowsAffected(res, "invoice", id)
}

func (s *SQLiteStore) UpdateInvoiceMatch(ctx context.Context, id string, mt model.MatchType, confidence float64, poID, bolID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET match_type = ?, match_confidence = ?, po_id = ?, bol_id = ?, updated_at = ? WHERE id = ?`,
		string(mt), confidence, nullStr(poID), nullStr(bolID), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update invoice match %s", id)
	}
	return checkRowsAffected(res, "invoice", id)
}

func (s *SQLiteStore) UpdateInvoiceApproval(ctx context.Context, id string, status model.InvoiceStatus, approvedBy, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, approved_at = ?, approved_by = ?, approval_notes = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), approvedBy, notes, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update invoice approval %s", id)
	}
	return checkRowsAffected(res, "invoice", id)
}

// --- match results ---

func (s *SQLiteStore) CreateMatchResult(ctx context.Context, mr model.MatchResult) (*model.MatchResult, error) {
	mr.ID = model.NewID(model.PrefixMatchResult)
	mr.CreatedAt = time.Now().UTC()

	comparisonJSON, err := json.Marshal(mr.Comparison)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal comparison")
	}
	var flagsJSON any
	if mr.Flags != nil {
		raw, err := json.Marshal(mr.Flags)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal flags")
		}
		flagsJSON = string(raw)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matching_results
		 (id, po_id, bol_id, invoice_id, match_status, confidence_score, comparison, flags,
		  flags_count, high_severity_flags, reasoning, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mr.ID, mr.POID, nullStr(mr.BOLID), mr.InvoiceID, string(mr.MatchStatus), mr.ConfidenceScore,
		string(comparisonJSON), flagsJSON, mr.FlagsCount, mr.HighSeverity, mr.Reasoning, mr.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert match result")
	}
	return &mr, nil
}

const resultColumns = `id, po_id, bol_id, invoice_id, match_status, confidence_score, comparison,
	flags, flags_count, high_severity_flags, reasoning, created_at`

func (s *SQLiteStore) LatestMatchResultByInvoice(ctx context.Context, invoiceID string) (*model.MatchResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM matching_results WHERE invoice_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, invoiceID)
	return scanMatchResult(row)
}

func (s *SQLiteStore) ListMatchResults(ctx context.Context) ([]model.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM matching_results ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list match results")
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		mr, err := scanMatchResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *mr)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list match results iterate")
}

// --- files ---

func (s *SQLiteStore) CreateFile(ctx context.Context, f model.File) (*model.File, error) {
	f.ID = model.NewID(model.PrefixFile)
	f.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, filename, mime_type, size_bytes, storage_path, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Filename, f.MimeType, f.SizeBytes, f.StoragePath, f.URL, f.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert file")
	}
	return &f, nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, id string) (*model.File, error) {
	var f model.File
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, mime_type, size_bytes, storage_path, url, created_at FROM files WHERE id = ?`, id,
	).Scan(&f.ID, &f.Filename, &f.MimeType, &f.SizeBytes, &f.StoragePath, &f.URL, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "file %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get file")
	}
	return &f, nil
}

// --- match jobs ---

func (s *SQLiteStore) EnqueueMatchJob(ctx context.Context, invoiceID string) (*model.MatchJob, error) {
	job := model.MatchJob{
		ID:        model.NewID(model.PrefixJob),
		InvoiceID: invoiceID,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_jobs (id, invoice_id, status, created_at) VALUES (?, ?, ?, ?)`,
		job.ID, job.InvoiceID, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: enqueue match job")
	}
	return &job, nil
}

// ClaimNextMatchJob marks the oldest queued job running and returns it.
// Returns (nil, nil) when the queue is empty. The status guard on the
// UPDATE keeps two dispatchers from claiming the same row.
func (s *SQLiteStore) ClaimNextMatchJob(ctx context.Context) (*model.MatchJob, error) {
	for {
		var job model.MatchJob
		err := s.db.QueryRowContext(ctx,
			`SELECT id, invoice_id, created_at FROM match_jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
			string(model.JobStatusQueued),
		).Scan(&job.ID, &job.InvoiceID, &job.CreatedAt)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: claim match job")
		}

		now := time.Now().UTC()
		res, err := s.db.ExecContext(ctx,
			`UPDATE match_jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
			string(model.JobStatusRunning), now, job.ID, string(model.JobStatusQueued),
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: mark match job running")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue // lost the race, try the next queued job
		}
		job.Status = model.JobStatusRunning
		job.StartedAt = &now
		return &job, nil
	}
}

func (s *SQLiteStore) CompleteMatchJob(ctx context.Context, jobID string, jobErr string) error {
	status := model.JobStatusDone
	if jobErr != "" {
		status = model.JobStatusFailed
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE match_jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), jobErr, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete match job %s", jobID)
	}
	return checkRowsAffected(res, "match job", jobID)
}

// --- helpers ---

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// nullStr maps "" to NULL for optional reference columns.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amt, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, eris.Wrapf(err, "sqlite: parse amount %q", raw)
	}
	return amt, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPO(row scannable) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	var chargesJSON, total string
	var fileID sql.NullString

	err := row.Scan(&po.ID, &po.PONumber, &po.CustomerName, &po.CarrierName, &po.Origin,
		&po.Destination, &po.PickupDate, &po.DeliveryDate, &chargesJSON, &total,
		&po.Status, &fileID, &po.CreatedAt, &po.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "purchase order")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan purchase order")
	}

	if err := json.Unmarshal([]byte(chargesJSON), &po.ExpectedCharges); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal expected charges")
	}
	if po.TotalAmount, err = parseAmount(total); err != nil {
		return nil, err
	}
	po.FileID = fileID.String
	return &po, nil
}

func scanBOL(row scannable) (*model.BillOfLading, error) {
	var bol model.BillOfLading
	var poID, chargesJSON, podFileID sql.NullString
	var podSignedAt sql.NullTime

	err := row.Scan(&bol.ID, &bol.BOLNumber, &bol.PONumber, &poID, &bol.CarrierName, &bol.Origin,
		&bol.Destination, &bol.PickupDate, &bol.DeliveryDate, &bol.WeightLbs, &bol.ItemDescription,
		&chargesJSON, &podFileID, &podSignedAt, &bol.Status, &bol.CreatedAt, &bol.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "bill of lading")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan bill of lading")
	}

	bol.POID = poID.String
	bol.PODFileID = podFileID.String
	if podSignedAt.Valid {
		t := podSignedAt.Time
		bol.PODSignedAt = &t
	}
	if chargesJSON.Valid {
		if err := json.Unmarshal([]byte(chargesJSON.String), &bol.ActualCharges); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal actual charges")
		}
	}
	return &bol, nil
}

func scanInvoice(row scannable) (*model.Invoice, error) {
	var inv model.Invoice
	var chargesJSON, total, matchType string
	var poID, bolID, fileID sql.NullString
	var dueDate, approvedAt sql.NullTime

	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CarrierName, &inv.InvoiceDate, &inv.PONumber,
		&inv.BOLNumber, &poID, &bolID, &chargesJSON, &total, &inv.PaymentTerms, &dueDate, &fileID,
		&matchType, &inv.MatchConfidence, &inv.Status, &approvedAt, &inv.ApprovedBy,
		&inv.ApprovalNotes, &inv.CreatedAt, &inv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "invoice")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan invoice")
	}

	if err := json.Unmarshal([]byte(chargesJSON), &inv.Charges); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal invoice charges")
	}
	if inv.TotalAmount, err = parseAmount(total); err != nil {
		return nil, err
	}
	inv.MatchType = model.MatchType(matchType)
	inv.POID = poID.String
	inv.BOLID = bolID.String
	inv.FileID = fileID.String
	if dueDate.Valid {
		t := dueDate.Time
		inv.DueDate = &t
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		inv.ApprovedAt = &t
	}
	return &inv, nil
}

func scanMatchResult(row scannable) (*model.MatchResult, error) {
	var mr model.MatchResult
	var comparisonJSON string
	var bolID, flagsJSON sql.NullString

	err := row.Scan(&mr.ID, &mr.POID, &bolID, &mr.InvoiceID, &mr.MatchStatus, &mr.ConfidenceScore,
		&comparisonJSON, &flagsJSON, &mr.FlagsCount, &mr.HighSeverity, &mr.Reasoning, &mr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "match result")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan match result")
	}

	mr.BOLID = bolID.String
	if err := json.Unmarshal([]byte(comparisonJSON), &mr.Comparison); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal comparison")
	}
	if flagsJSON.Valid {
		if err := json.Unmarshal([]byte(flagsJSON.String), &mr.Flags); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal flags")
		}
	}
	return &mr, nil
}
