package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps all procurement records in a single SQLite file.
// Nested structures (extraction results, requirements) are stored as JSON
// columns; timestamps are RFC3339Nano strings.
type SQLiteStore struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS rfps (
	id            TEXT PRIMARY KEY,
	raw_text      TEXT NOT NULL DEFAULT '',
	extraction    TEXT NOT NULL DEFAULT '{}',
	used_fallback INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'draft',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS vendors (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS proposals (
	id            TEXT PRIMARY KEY,
	rfp_id        TEXT NOT NULL,
	vendor_id     TEXT NOT NULL,
	subject       TEXT NOT NULL DEFAULT '',
	raw_text      TEXT NOT NULL DEFAULT '',
	extraction    TEXT NOT NULL DEFAULT '{}',
	used_fallback INTEGER NOT NULL DEFAULT 0,
	received_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rfp_sends (
	rfp_id     TEXT NOT NULL,
	vendor_id  TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	success    INTEGER NOT NULL DEFAULT 0,
	message_id TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	sent_at    TEXT NOT NULL,
	PRIMARY KEY (rfp_id, vendor_id)
);
`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- RFPs ---

func (s *SQLiteStore) SaveRFP(r RFP) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO rfps (id, raw_text, extraction, used_fallback, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.RawText, marshalJSON(r.Extraction), boolToInt(r.UsedFallback), string(r.Status), timeToString(r.CreatedAt))
	return err
}

func (s *SQLiteStore) GetRFP(id string) (RFP, error) {
	row := s.db.QueryRow(`SELECT id, raw_text, extraction, used_fallback, status, created_at FROM rfps WHERE id = ?`, id)
	r, err := scanRFP(row)
	if err == sql.ErrNoRows {
		return RFP{}, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) ListRFPs() ([]RFP, error) {
	rows, err := s.db.Query(`SELECT id, raw_text, extraction, used_fallback, status, created_at FROM rfps ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RFP
	for rows.Next() {
		r, err := scanRFP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetRFPStatus(id string, status RFPStatus) error {
	res, err := s.db.Exec(`UPDATE rfps SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRFP(row rowScanner) (RFP, error) {
	var r RFP
	var extractionJSON, status, createdAt string
	var usedFallback int
	if err := row.Scan(&r.ID, &r.RawText, &extractionJSON, &usedFallback, &status, &createdAt); err != nil {
		return RFP{}, err
	}
	_ = json.Unmarshal([]byte(extractionJSON), &r.Extraction)
	r.UsedFallback = usedFallback != 0
	r.Status = RFPStatus(status)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return r, nil
}

// --- Vendors ---

func (s *SQLiteStore) SaveVendor(v Vendor) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO vendors (id, name, email, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Email, v.Category, timeToString(v.CreatedAt))
	return err
}

func (s *SQLiteStore) GetVendor(id string) (Vendor, error) {
	row := s.db.QueryRow(`SELECT id, name, email, category, created_at FROM vendors WHERE id = ?`, id)
	v, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return Vendor{}, ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) ListVendors() ([]Vendor, error) {
	rows, err := s.db.Query(`SELECT id, name, email, category, created_at FROM vendors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// VendorEmailIndex maps bare lowercased addresses to vendor IDs; used to
// attribute inbound replies.
func (s *SQLiteStore) VendorEmailIndex() (map[string]string, error) {
	vendors, err := s.ListVendors()
	if err != nil {
		return nil, err
	}
	idx := make(map[string]string, len(vendors))
	for _, v := range vendors {
		idx[normalizeEmail(v.Email)] = v.ID
	}
	return idx, nil
}

func scanVendor(row rowScanner) (Vendor, error) {
	var v Vendor
	var createdAt string
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Category, &createdAt); err != nil {
		return Vendor{}, err
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return v, nil
}

// --- Proposals ---

func (s *SQLiteStore) SaveProposal(p Proposal) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO proposals (id, rfp_id, vendor_id, subject, raw_text, extraction, used_fallback, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RFPID, p.VendorID, p.Subject, p.RawText, marshalJSON(p.Extraction), boolToInt(p.UsedFallback), timeToString(p.ReceivedAt))
	return err
}

func (s *SQLiteStore) ListProposals(rfpID string) ([]Proposal, error) {
	rows, err := s.db.Query(`SELECT id, rfp_id, vendor_id, subject, raw_text, extraction, used_fallback, received_at
		FROM proposals WHERE rfp_id = ? ORDER BY received_at`, rfpID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Proposal
	for rows.Next() {
		var p Proposal
		var extractionJSON, receivedAt string
		var usedFallback int
		if err := rows.Scan(&p.ID, &p.RFPID, &p.VendorID, &p.Subject, &p.RawText, &extractionJSON, &usedFallback, &receivedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(extractionJSON), &p.Extraction)
		p.UsedFallback = usedFallback != 0
		p.ReceivedAt, _ = time.Parse(time.RFC3339Nano, receivedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Send records ---

// SaveSendRecords persists a fan-out's per-vendor outcomes in one
// transaction, so a mid-batch failure never leaves a partial record of the
// send.
func (s *SQLiteStore) SaveSendRecords(records []SendRecord) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	for _, r := range records {
		_, err := tx.Exec(`INSERT OR REPLACE INTO rfp_sends (rfp_id, vendor_id, email, success, message_id, error, sent_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.RFPID, r.VendorID, r.Email, boolToInt(r.Success), r.MessageID, r.Error, timeToString(r.SentAt))
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListSendRecords(rfpID string) ([]SendRecord, error) {
	rows, err := s.db.Query(`SELECT rfp_id, vendor_id, email, success, message_id, error, sent_at
		FROM rfp_sends WHERE rfp_id = ? ORDER BY vendor_id`, rfpID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SendRecord
	for rows.Next() {
		var r SendRecord
		var success int
		var sentAt string
		if err := rows.Scan(&r.RFPID, &r.VendorID, &r.Email, &success, &r.MessageID, &r.Error, &sentAt); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.SentAt, _ = time.Parse(time.RFC3339Nano, sentAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
