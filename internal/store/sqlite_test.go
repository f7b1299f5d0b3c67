package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/procureflow/procureflow/internal/extract"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRFPRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := RFP{
		ID:      "rfp-1",
		RawText: "Need 5 laptops with 16GB RAM",
		Extraction: extract.ExtractionResult{
			Title:    "Laptop Procurement",
			Currency: "USD",
			Budget:   10000,
			Items:    []extract.Item{{Name: "Laptop", Quantity: 5, Specifications: "16GB RAM"}},
		},
		UsedFallback: true,
		Status:       StatusDraft,
		CreatedAt:    time.Now(),
	}
	if err := s.SaveRFP(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetRFP("rfp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RawText != in.RawText || !got.UsedFallback || got.Status != StatusDraft {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Extraction.Title != "Laptop Procurement" || len(got.Extraction.Items) != 1 {
		t.Fatalf("extraction not preserved: %+v", got.Extraction)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at lost")
	}
}

func TestGetRFPNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRFP("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetRFPStatus(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveRFP(RFP{ID: "rfp-1", Status: StatusDraft, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SetRFPStatus("rfp-1", StatusSent); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err := s.GetRFP("rfp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusSent {
		t.Fatalf("status = %q", got.Status)
	}
	if err := s.SetRFPStatus("missing", StatusSent); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRFPsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveRFP(RFP{ID: id, Status: StatusDraft, CreatedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	got, err := s.ListRFPs()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestVendorsAndEmailIndex(t *testing.T) {
	s := newTestStore(t)
	vendors := []Vendor{
		{ID: "v1", Name: "Acme", Email: "Sales@Acme.test", Category: "hardware", CreatedAt: time.Now()},
		{ID: "v2", Name: "Globex", Email: "sales@globex.test", CreatedAt: time.Now()},
	}
	for _, v := range vendors {
		if err := s.SaveVendor(v); err != nil {
			t.Fatalf("save vendor: %v", err)
		}
	}

	got, err := s.GetVendor("v1")
	if err != nil {
		t.Fatalf("get vendor: %v", err)
	}
	if got.Name != "Acme" || got.Category != "hardware" {
		t.Fatalf("vendor mismatch: %+v", got)
	}
	if _, err := s.GetVendor("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := s.ListVendors()
	if err != nil {
		t.Fatalf("list vendors: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Acme" {
		t.Fatalf("unexpected vendor list: %+v", list)
	}

	idx, err := s.VendorEmailIndex()
	if err != nil {
		t.Fatalf("email index: %v", err)
	}
	if idx["sales@acme.test"] != "v1" || idx["sales@globex.test"] != "v2" {
		t.Fatalf("unexpected index: %v", idx)
	}
}

func TestProposalsByRFP(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	proposals := []Proposal{
		{ID: "p2", RFPID: "rfp-1", VendorID: "v2", RawText: "quote two", ReceivedAt: base.Add(time.Hour),
			Extraction: extract.ProposalExtraction{TotalPrice: 8000, DeliveryDays: 21}},
		{ID: "p1", RFPID: "rfp-1", VendorID: "v1", RawText: "quote one", UsedFallback: true, ReceivedAt: base,
			Extraction: extract.ProposalExtraction{TotalPrice: 6600, DeliveryDays: 14}},
		{ID: "p3", RFPID: "rfp-2", VendorID: "v1", ReceivedAt: base},
	}
	for _, p := range proposals {
		if err := s.SaveProposal(p); err != nil {
			t.Fatalf("save proposal: %v", err)
		}
	}
	got, err := s.ListProposals("rfp-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p2" {
		t.Fatalf("unexpected proposals: %+v", got)
	}
	if got[0].Extraction.TotalPrice != 6600 || !got[0].UsedFallback {
		t.Fatalf("extraction not preserved: %+v", got[0])
	}
}

func TestSendRecordsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	records := []SendRecord{
		{RFPID: "rfp-1", VendorID: "v1", Email: "sales@acme.test", Success: true, MessageID: "m1", SentAt: now},
		{RFPID: "rfp-1", VendorID: "v2", Email: "sales@globex.test", Error: "connection refused", SentAt: now},
	}
	if err := s.SaveSendRecords(records); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.ListSendRecords("rfp-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if !got[0].Success || got[0].MessageID != "m1" {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if got[1].Success || got[1].Error != "connection refused" {
		t.Fatalf("unexpected second record: %+v", got[1])
	}
}

func TestSaveSendRecordsAtomicBatch(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	batch := []SendRecord{
		{RFPID: "rfp-1", VendorID: "v1", Email: "a@acme.test", Success: true, SentAt: now},
		{RFPID: "rfp-1", VendorID: "v1", Email: "a@acme.test", Success: false, Error: "retry recorded", SentAt: now},
		{RFPID: "rfp-1", VendorID: "v2", Email: "b@globex.test", Success: true, SentAt: now},
	}
	// Duplicate (rfp, vendor) keys replace within the same transaction, so
	// the whole batch lands together and the last write wins.
	if err := s.SaveSendRecords(batch); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.ListSendRecords("rfp-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Success || got[0].Error != "retry recorded" {
		t.Fatalf("replacement within batch not applied: %+v", got[0])
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.SaveSendRecords(batch); err == nil {
		t.Fatal("expected error once the store is closed")
	}
}
