package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/haulview/freightmatch/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	mime_type    TEXT NOT NULL DEFAULT '',
	size_bytes   BIGINT NOT NULL DEFAULT 0,
	storage_path TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS purchase_orders (
	id               TEXT PRIMARY KEY,
	po_number        TEXT NOT NULL UNIQUE,
	customer_name    TEXT NOT NULL,
	carrier_name     TEXT NOT NULL,
	origin           TEXT NOT NULL,
	destination      TEXT NOT NULL,
	pickup_date      TIMESTAMPTZ NOT NULL,
	delivery_date    TIMESTAMPTZ NOT NULL,
	expected_charges JSONB NOT NULL,
	total_amount     NUMERIC(12,2) NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	file_id          TEXT REFERENCES files(id),
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS bills_of_lading (
	id               TEXT PRIMARY KEY,
	bol_number       TEXT NOT NULL UNIQUE,
	po_number        TEXT NOT NULL,
	po_id            TEXT,
	carrier_name     TEXT NOT NULL,
	origin           TEXT NOT NULL,
	destination      TEXT NOT NULL,
	pickup_date      TIMESTAMPTZ NOT NULL,
	delivery_date    TIMESTAMPTZ NOT NULL,
	weight_lbs       DOUBLE PRECISION,
	item_description TEXT NOT NULL DEFAULT '',
	actual_charges   JSONB,
	pod_file_id      TEXT,
	pod_signed_at    TIMESTAMPTZ,
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS invoices (
	id               TEXT PRIMARY KEY,
	invoice_number   TEXT NOT NULL UNIQUE,
	carrier_name     TEXT NOT NULL,
	invoice_date     TIMESTAMPTZ NOT NULL,
	po_number        TEXT NOT NULL,
	bol_number       TEXT NOT NULL DEFAULT '',
	po_id            TEXT,
	bol_id           TEXT,
	charges          JSONB NOT NULL,
	total_amount     NUMERIC(12,2) NOT NULL,
	payment_terms    TEXT NOT NULL DEFAULT '',
	due_date         TIMESTAMPTZ,
	file_id          TEXT,
	match_type       TEXT NOT NULL DEFAULT '',
	match_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'pending',
	approved_at      TIMESTAMPTZ,
	approved_by      TEXT NOT NULL DEFAULT '',
	approval_notes   TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS matching_results (
	id                  TEXT PRIMARY KEY,
	po_id               TEXT NOT NULL,
	bol_id              TEXT,
	invoice_id          TEXT NOT NULL,
	match_status        TEXT NOT NULL,
	confidence_score    DOUBLE PRECISION NOT NULL,
	comparison          JSONB NOT NULL,
	flags               JSONB,
	flags_count         INTEGER NOT NULL DEFAULT 0,
	high_severity_flags INTEGER NOT NULL DEFAULT 0,
	reasoning           TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS match_jobs (
	id          TEXT PRIMARY KEY,
	invoice_id  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	started_at  TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_po_status ON purchase_orders(status);
CREATE INDEX IF NOT EXISTS idx_bol_status ON bills_of_lading(status);
CREATE INDEX IF NOT EXISTS idx_bol_po_number ON bills_of_lading(po_number);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
CREATE INDEX IF NOT EXISTS idx_invoices_po_number ON invoices(po_number);
CREATE INDEX IF NOT EXISTS idx_results_invoice_id ON matching_results(invoice_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON match_jobs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- purchase orders ---

func (s *PostgresStore) CreatePO(ctx context.Context, po model.PurchaseOrder) (*model.PurchaseOrder, error) {
	po.ID = model.NewID(model.PrefixPurchaseOrder)
	now := time.Now().UTC()
	po.CreatedAt, po.UpdatedAt = now, now
	if po.Status == "" {
		po.Status = model.POStatusPending
	}

	chargesJSON, err := json.Marshal(po.ExpectedCharges)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal expected charges")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO purchase_orders
		 (id, po_number, customer_name, carrier_name, origin, destination, pickup_date, delivery_date,
		  expected_charges, total_amount, status, file_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		po.ID, po.PONumber, po.CustomerName, po.CarrierName, po.Origin, po.Destination,
		po.PickupDate, po.DeliveryDate, string(chargesJSON), po.TotalAmount.String(),
		string(po.Status), nullStr(po.FileID), po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, eris.Wrapf(ErrConflict, "postgres: po_number %s", po.PONumber)
		}
		return nil, eris.Wrap(err, "postgres: insert purchase order")
	}
	return &po, nil
}

const pgPOColumns = `id, po_number, customer_name, carrier_name, origin, destination, pickup_date,
	delivery_date, expected_charges::text, total_amount::text, status, file_id, created_at, updated_at`

func (s *PostgresStore) GetPO(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgPOColumns+` FROM purchase_orders WHERE id = $1`, id)
	return scanPgPO(row)
}

func (s *PostgresStore) GetPOByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgPOColumns+` FROM purchase_orders WHERE po_number = $1`, poNumber)
	return scanPgPO(row)
}

func (s *PostgresStore) ListPOsByStatus(ctx context.Context, statuses ...model.POStatus) ([]model.PurchaseOrder, error) {
	query := `SELECT ` + pgPOColumns + ` FROM purchase_orders`
	var args []any
	if len(statuses) > 0 {
		strs := make([]string, len(statuses))
		for i, st := range statuses {
			strs[i] = string(st)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, strs)
	}
	query += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list purchase orders")
	}
	defer rows.Close()

	var pos []model.PurchaseOrder
	for rows.Next() {
		po, err := scanPgPO(rows)
		if err != nil {
			return nil, err
		}
		pos = append(pos, *po)
	}
	return pos, eris.Wrap(rows.Err(), "postgres: list purchase orders iterate")
}

func (s *PostgresStore) UpdatePOStatus(ctx context.Context, id string, status model.POStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE purchase_orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update po status %s", id)
	}
	return checkTag(tag, "purchase order", id)
}

// --- bills of lading ---

func (s *PostgresStore) CreateBOL(ctx context.Context, bol model.BillOfLading) (*model.BillOfLading, error) {
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
			return nil, eris.Wrap(err, "postgres: marshal actual charges")
		}
		chargesJSON = string(raw)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO bills_of_lading
		 (id, bol_number, po_number, po_id, carrier_name, origin, destination, pickup_date, delivery_date,
		  weight_lbs, item_description, actual_charges, pod_file_id, pod_signed_at, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		bol.ID, bol.BOLNumber, bol.PONumber, nullStr(bol.POID), bol.CarrierName, bol.Origin,
		bol.Destination, bol.PickupDate, bol.DeliveryDate, bol.WeightLbs, bol.ItemDescription,
		chargesJSON, nullStr(bol.PODFileID), bol.PODSignedAt, string(bol.Status),
		bol.CreatedAt, bol.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, eris.Wrapf(ErrConflict, "postgres: bol_number %s", bol.BOLNumber)
		}
		return nil, eris.Wrap(err, "postgres: insert bill of lading")
	}
	return &bol, nil
}

const pgBOLColumns = `id, bol_number, po_number, po_id, carrier_name, origin, destination, pickup_date,
	delivery_date, weight_lbs, item_description, actual_charges::text, pod_file_id, pod_signed_at,
	status, created_at, updated_at`

func (s *PostgresStore) GetBOL(ctx context.Context, id string) (*model.BillOfLading, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgBOLColumns+` FROM bills_of_lading WHERE id = $1`, id)
	return scanPgBOL(row)
}

func (s *PostgresStore) GetBOLByPONumber(ctx context.Context, poNumber string) (*model.BillOfLading, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgBOLColumns+` FROM bills_of_lading WHERE po_number = $1 ORDER BY created_at LIMIT 1`, poNumber)
	return scanPgBOL(row)
}

func (s *PostgresStore) ListBOLsByStatus(ctx context.Context, statuses ...model.BOLStatus) ([]model.BillOfLading, error) {
	query := `SELECT ` + pgBOLColumns + ` FROM bills_of_lading`
	var args []any
	if len(statuses) > 0 {
		strs := make([]string, len(statuses))
		for i, st := range statuses {
			strs[i] = string(st)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, strs)
	}
	query += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list bills of lading")
	}
	defer rows.Close()

	var bols []model.BillOfLading
	for rows.Next() {
		bol, err := scanPgBOL(rows)
		if err != nil {
			return nil, err
		}
		bols = append(bols, *bol)
	}
	return bols, eris.Wrap(rows.Err(), "postgres: list bills of lading iterate")
}

func (s *PostgresStore) UpdateBOLStatus(ctx context.Context, id string, status model.BOLStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bills_of_lading SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update bol status %s", id)
	}
	return checkTag(tag, "bill of lading", id)
}

// --- invoices ---

func (s *PostgresStore) CreateInvoice(ctx context.Context, inv model.Invoice) (*model.Invoice, error) {
	inv.ID = model.NewID(model.PrefixInvoice)
	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	if inv.Status == "" {
		inv.Status = model.InvoiceStatusPending
	}

	chargesJSON, err := json.Marshal(inv.Charges)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal invoice charges")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO invoices
		 (id, invoice_number, carrier_name, invoice_date, po_number, bol_number, po_id, bol_id,
		  charges, total_amount, payment_terms, due_date, file_id, match_type, match_confidence,
		  status, approved_at, approved_by, approval_notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		inv.ID, inv.InvoiceNumber, inv.CarrierName, inv.InvoiceDate, inv.PONumber, inv.BOLNumber,
		nullStr(inv.POID), nullStr(inv.BOLID), string(chargesJSON), inv.TotalAmount.String(),
		inv.PaymentTerms, inv.DueDate, nullStr(inv.FileID), string(inv.MatchType),
		inv.MatchConfidence, string(inv.Status), inv.ApprovedAt, inv.ApprovedBy, inv.ApprovalNotes,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, eris.Wrapf(ErrConflict, "postgres: invoice_number %s", inv.InvoiceNumber)
		}
		return nil, eris.Wrap(err, "postgres: insert invoice")
	}
	return &inv, nil
}

const pgInvoiceColumns = `id, invoice_number, carrier_name, invoice_date, po_number, bol_number, po_id,
	bol_id, charges::text, total_amount::text, payment_terms, due_date, file_id, match_type,
	match_confidence, status, approved_at, approved_by, approval_notes, created_at, updated_at`

func (s *PostgresStore) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgInvoiceColumns+` FROM invoices WHERE id = $1`, id)
	return scanPgInvoice(row)
}

func (s *PostgresStore) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, error) {
	query := `SELECT ` + pgInvoiceColumns + ` FROM invoices WHERE 1=1`
	var args []any
	n := 0
	next := func() string {
		n++
		return "$" + strconv.Itoa(n)
	}
	if filter.Status != "" {
		query += ` AND status = ` + next()
		args = append(args, string(filter.Status))
	}
	if filter.CarrierName != "" {
		query += ` AND carrier_name = ` + next()
		args = append(args, filter.CarrierName)
	}
	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + next()
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list invoices")
	}
	defer rows.Close()

	var invs []model.Invoice
	for rows.Next() {
		inv, err := scanPgInvoice(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, *inv)
	}
	return invs, eris.Wrap(rows.Err(), "postgres: list invoices iterate")
}

func (s *PostgresStore) UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update invoice status %s", id)
	}
	return checkTag(tag, "invoice", id)
}

func (s *PostgresStore) UpdateInvoiceMatch(ctx context.Context, id string, mt model.MatchType, confidence float64, poID, bolID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET match_type = $1, match_confidence = $2, po_id = $3, bol_id = $4, updated_at = $5 WHERE id = $6`,
		string(mt), confidence, nullStr(poID), nullStr(bolID), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update invoice match %s", id)
	}
	return checkTag(tag, "invoice", id)
}

func (s *PostgresStore) UpdateInvoiceApproval(ctx context.Context, id string, status model.InvoiceStatus, approvedBy, notes string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE invoices SET status = $1, approved_at = $2, approved_by = $3, approval_notes = $4, updated_at = $5 WHERE id = $6`,
		string(status), now, approvedBy, notes, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update invoice approval %s", id)
	}
	return checkTag(tag, "invoice", id)
}

// --- match results ---

func (s *PostgresStore) CreateMatchResult(ctx context.Context, mr model.MatchResult) (*model.MatchResult, error) {
	mr.ID = model.NewID(model.PrefixMatchResult)
	mr.CreatedAt = time.Now().UTC()

	comparisonJSON, err := json.Marshal(mr.Comparison)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal comparison")
	}
	var flagsJSON any
	if mr.Flags != nil {
		raw, err := json.Marshal(mr.Flags)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal flags")
		}
		flagsJSON = string(raw)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO matching_results
		 (id, po_id, bol_id, invoice_id, match_status, confidence_score, comparison, flags,
		  flags_count, high_severity_flags, reasoning, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		mr.ID, mr.POID, nullStr(mr.BOLID), mr.InvoiceID, string(mr.MatchStatus), mr.ConfidenceScore,
		string(comparisonJSON), flagsJSON, mr.FlagsCount, mr.HighSeverity, mr.Reasoning, mr.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert match result")
	}
	return &mr, nil
}

const pgResultColumns = `id, po_id, bol_id, invoice_id, match_status, confidence_score,
	comparison::text, flags::text, flags_count, high_severity_flags, reasoning, created_at`

func (s *PostgresStore) LatestMatchResultByInvoice(ctx context.Context, invoiceID string) (*model.MatchResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgResultColumns+` FROM matching_results WHERE invoice_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, invoiceID)
	return scanPgMatchResult(row)
}

func (s *PostgresStore) ListMatchResults(ctx context.Context) ([]model.MatchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgResultColumns+` FROM matching_results ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list match results")
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		mr, err := scanPgMatchResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *mr)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list match results iterate")
}

// --- files ---

func (s *PostgresStore) CreateFile(ctx context.Context, f model.File) (*model.File, error) {
	f.ID = model.NewID(model.PrefixFile)
	f.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO files (id, filename, mime_type, size_bytes, storage_path, url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.Filename, f.MimeType, f.SizeBytes, f.StoragePath, f.URL, f.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert file")
	}
	return &f, nil
}

func (s *PostgresStore) GetFile(ctx context.Context, id string) (*model.File, error) {
	var f model.File
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, mime_type, size_bytes, storage_path, url, created_at FROM files WHERE id = $1`, id,
	).Scan(&f.ID, &f.Filename, &f.MimeType, &f.SizeBytes, &f.StoragePath, &f.URL, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "file %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get file")
	}
	return &f, nil
}

// --- match jobs ---

func (s *PostgresStore) EnqueueMatchJob(ctx context.Context, invoiceID string) (*model.MatchJob, error) {
	job := model.MatchJob{
		ID:        model.NewID(model.PrefixJob),
		InvoiceID: invoiceID,
		Status:    model.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_jobs (id, invoice_id, status, created_at) VALUES ($1, $2, $3, $4)`,
		job.ID, job.InvoiceID, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: enqueue match job")
	}
	return &job, nil
}

// ClaimNextMatchJob atomically claims the oldest queued job using
// SKIP LOCKED so concurrent dispatchers never double-claim.
func (s *PostgresStore) ClaimNextMatchJob(ctx context.Context) (*model.MatchJob, error) {
	now := time.Now().UTC()
	var job model.MatchJob
	err := s.pool.QueryRow(ctx,
		`UPDATE match_jobs SET status = $1, started_at = $2
		 WHERE id = (
			SELECT id FROM match_jobs WHERE status = $3
			ORDER BY created_at LIMIT 1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, invoice_id, created_at`,
		string(model.JobStatusRunning), now, string(model.JobStatusQueued),
	).Scan(&job.ID, &job.InvoiceID, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim match job")
	}
	job.Status = model.JobStatusRunning
	job.StartedAt = &now
	return &job, nil
}

func (s *PostgresStore) CompleteMatchJob(ctx context.Context, jobID string, jobErr string) error {
	status := model.JobStatusDone
	if jobErr != "" {
		status = model.JobStatusFailed
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE match_jobs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(status), jobErr, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete match job %s", jobID)
	}
	return checkTag(tag, "match job", jobID)
}

// --- helpers ---

func checkTag(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func scanPgPO(row pgx.Row) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	var chargesJSON, total string
	var fileID *string

	err := row.Scan(&po.ID, &po.PONumber, &po.CustomerName, &po.CarrierName, &po.Origin,
		&po.Destination, &po.PickupDate, &po.DeliveryDate, &chargesJSON, &total,
		&po.Status, &fileID, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "purchase order")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan purchase order")
	}

	if err := json.Unmarshal([]byte(chargesJSON), &po.ExpectedCharges); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal expected charges")
	}
	if po.TotalAmount, err = parseAmount(total); err != nil {
		return nil, err
	}
	if fileID != nil {
		po.FileID = *fileID
	}
	return &po, nil
}

func scanPgBOL(row pgx.Row) (*model.BillOfLading, error) {
	var bol model.BillOfLading
	var poID, chargesJSON, podFileID *string
	var podSignedAt *time.Time

	err := row.Scan(&bol.ID, &bol.BOLNumber, &bol.PONumber, &poID, &bol.CarrierName, &bol.Origin,
		&bol.Destination, &bol.PickupDate, &bol.DeliveryDate, &bol.WeightLbs, &bol.ItemDescription,
		&chargesJSON, &podFileID, &podSignedAt, &bol.Status, &bol.CreatedAt, &bol.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "bill of lading")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan bill of lading")
	}

	if poID != nil {
		bol.POID = *poID
	}
	if podFileID != nil {
		bol.PODFileID = *podFileID
	}
	bol.PODSignedAt = podSignedAt
	if chargesJSON != nil {
		if err := json.Unmarshal([]byte(*chargesJSON), &bol.ActualCharges); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal actual charges")
		}
	}
	return &bol, nil
}

func scanPgInvoice(row pgx.Row) (*model.Invoice, error) {
	var inv model.Invoice
	var chargesJSON, total, matchType string
	var poID, bolID, fileID *string

	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CarrierName, &inv.InvoiceDate, &inv.PONumber,
		&inv.BOLNumber, &poID, &bolID, &chargesJSON, &total, &inv.PaymentTerms, &inv.DueDate, &fileID,
		&matchType, &inv.MatchConfidence, &inv.Status, &inv.ApprovedAt, &inv.ApprovedBy,
		&inv.ApprovalNotes, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "invoice")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan invoice")
	}

	if err := json.Unmarshal([]byte(chargesJSON), &inv.Charges); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal invoice charges")
	}
	if inv.TotalAmount, err = parseAmount(total); err != nil {
		return nil, err
	}
	inv.MatchType = model.MatchType(matchType)
	if poID != nil {
		inv.POID = *poID
	}
	if bolID != nil {
		inv.BOLID = *bolID
	}
	if fileID != nil {
		inv.FileID = *fileID
	}
	return &inv, nil
}

func scanPgMatchResult(row pgx.Row) (*model.MatchResult, error) {
	var mr model.MatchResult
	var comparisonJSON string
	var bolID, flagsJSON *string

	err := row.Scan(&mr.ID, &mr.POID, &bolID, &mr.InvoiceID, &mr.MatchStatus, &mr.ConfidenceScore,
		&comparisonJSON, &flagsJSON, &mr.FlagsCount, &mr.HighSeverity, &mr.Reasoning, &mr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "match result")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan match result")
	}

	if bolID != nil {
		mr.BOLID = *bolID
	}
	if err := json.Unmarshal([]byte(comparisonJSON), &mr.Comparison); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal comparison")
	}
	if flagsJSON != nil {
		if err := json.Unmarshal([]byte(*flagsJSON), &mr.Flags); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal flags")
		}
	}
	return &mr, nil
}
