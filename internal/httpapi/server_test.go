package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/procureflow/procureflow/internal/compare"
	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/inbox"
	"github.com/procureflow/procureflow/internal/mailer"
	"github.com/procureflow/procureflow/internal/store"
)

type recordingSender struct {
	failFor map[string]string
	sent    []string
}

func (s *recordingSender) Send(ctx context.Context, to string, email mailer.Email) mailer.SendResult {
	s.sent = append(s.sent, to)
	if msg, ok := s.failFor[to]; ok {
		return mailer.SendResult{Error: msg}
	}
	return mailer.SendResult{Success: true, MessageID: "mid-" + to}
}

func newTestServer(t *testing.T, sender *recordingSender) (http.Handler, *store.SQLiteStore, *inbox.Ingestor) {
	t.Helper()
	records, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { records.Close() })
	if sender == nil {
		sender = &recordingSender{}
	}
	extractor := extract.NewService(nil)
	mailbox := inbox.NewMemoryPoller()
	ingestor := inbox.NewIngestor(mailbox, records, extractor)
	h := NewServer(records, extractor, compare.NewEngine(nil), mailer.NewComposer(nil), sender, ingestor, mailbox)
	return h, records, ingestor
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func createTestRFP(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps", map[string]string{
		"text": "I need 5 laptops with 16GB RAM and 2 monitors 24 inch. Budget is $10,000. Delivery within 2 weeks. Net 30 payment. 2 years warranty.",
	})
	if rec.Code != 200 || !env.Success {
		t.Fatalf("create rfp: %d %s", rec.Code, rec.Body.String())
	}
	data := env.Data.(map[string]any)
	return data["id"].(string)
}

func createTestVendor(t *testing.T, h http.Handler, name, email string) string {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/v1/vendors", map[string]string{"name": name, "email": email})
	if rec.Code != 200 || !env.Success {
		t.Fatalf("create vendor: %d %s", rec.Code, rec.Body.String())
	}
	return env.Data.(map[string]any)["id"].(string)
}

func TestCreateRFPUsesFallbackWithoutService(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps", map[string]string{
		"text": "I need 5 laptops with 16GB RAM. Budget is $10,000.",
	})
	if rec.Code != 200 || !env.Success {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
	if !env.UsedFallback {
		t.Fatal("no caller configured, used_fallback must be set")
	}
	data := env.Data.(map[string]any)
	extraction := data["extraction"].(map[string]any)
	if extraction["budget"].(float64) != 10000 {
		t.Fatalf("unexpected extraction: %v", extraction)
	}
	if data["status"].(string) != "draft" {
		t.Fatalf("status = %v", data["status"])
	}
}

func TestCreateRFPRejectsEmptyText(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps", map[string]string{"text": "   "})
	if rec.Code != 422 || env.Success {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetRFPNotFound(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	rec, env := doJSON(t, h, http.MethodGet, "/v1/rfps/missing", nil)
	if rec.Code != 404 || env.Success {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRFPsAndVendors(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	id := createTestRFP(t, h)
	createTestVendor(t, h, "Acme", "sales@acme.test")

	rec, env := doJSON(t, h, http.MethodGet, "/v1/rfps", nil)
	if rec.Code != 200 || !env.Success {
		t.Fatalf("list rfps: %d", rec.Code)
	}
	list := env.Data.([]any)
	if len(list) != 1 || list[0].(map[string]any)["id"].(string) != id {
		t.Fatalf("unexpected rfp list: %v", env.Data)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/v1/vendors", nil)
	if rec.Code != 200 || len(env.Data.([]any)) != 1 {
		t.Fatalf("unexpected vendor list: %d %s", rec.Code, rec.Body.String())
	}
}

func TestVendorValidation(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/vendors", map[string]string{"name": "Acme"})
	if rec.Code != 422 || env.Success {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestSendRFPFanOut(t *testing.T) {
	sender := &recordingSender{failFor: map[string]string{"sales@globex.test": "connection refused"}}
	h, records, _ := newTestServer(t, sender)
	id := createTestRFP(t, h)
	createTestVendor(t, h, "Acme", "sales@acme.test")
	createTestVendor(t, h, "Globex", "sales@globex.test")

	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/send", map[string]any{})
	if rec.Code != 200 || !env.Success {
		t.Fatalf("send: %d %s", rec.Code, rec.Body.String())
	}
	results := env.Data.([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 send records, got %d", len(results))
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected both sends attempted, got %v", sender.sent)
	}

	rfp, err := records.GetRFP(id)
	if err != nil {
		t.Fatalf("get rfp: %v", err)
	}
	if rfp.Status != store.StatusSent {
		t.Fatalf("status = %q, want sent", rfp.Status)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/v1/rfps/"+id+"/sends", nil)
	if rec.Code != 200 || len(env.Data.([]any)) != 2 {
		t.Fatalf("sends listing: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSendRFPWithoutVendors(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	id := createTestRFP(t, h)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/send", map[string]any{})
	if rec.Code != 422 || env.Success {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSendRFPUnknownVendorID(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	id := createTestRFP(t, h)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/send", map[string]any{"vendor_ids": []string{"ghost"}})
	if rec.Code != 404 || env.Success {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestIngestReply(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	id := createTestRFP(t, h)
	createTestVendor(t, h, "Acme", "sales@acme.test")

	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/replies", map[string]string{
		"subject":      "Re: Request for Proposal",
		"from_address": "Acme Sales <Sales@Acme.test>",
		"text":         "Laptops at $1,200 each, monitors at $300 each. Total $6,600. Delivery in 3 weeks. 1 year warranty. Net 30.",
	})
	if rec.Code != 200 || !env.Success {
		t.Fatalf("ingest: %d %s", rec.Code, rec.Body.String())
	}
	if !env.UsedFallback {
		t.Fatal("no caller configured, used_fallback must be set")
	}
	data := env.Data.(map[string]any)
	extraction := data["extraction"].(map[string]any)
	if extraction["total_price"].(float64) != 6600 {
		t.Fatalf("unexpected extraction: %v", extraction)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/v1/rfps/"+id+"/proposals", nil)
	if rec.Code != 200 || len(env.Data.([]any)) != 1 {
		t.Fatalf("proposals listing: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIngestReplyUnknownSender(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	id := createTestRFP(t, h)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/replies", map[string]string{
		"from_address": "stranger@nowhere.test",
		"text":         "Total $5,000",
	})
	if rec.Code != 422 || env.Success {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(env.Error, "known vendor") {
		t.Fatalf("error = %q", env.Error)
	}
}

func TestCompareProposals(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	id := createTestRFP(t, h)
	createTestVendor(t, h, "Acme", "sales@acme.test")
	createTestVendor(t, h, "Globex", "sales@globex.test")

	replies := []struct{ from, text string }{
		{"sales@acme.test", "Total price $6,600. Delivery in 14 days. 1 year warranty. Net 30."},
		{"sales@globex.test", "Total price $8,000. Delivery in 21 days."},
	}
	for _, r := range replies {
		rec, _ := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/replies", map[string]string{
			"from_address": r.from,
			"text":         r.text,
		})
		if rec.Code != 200 {
			t.Fatalf("ingest %s: %d %s", r.from, rec.Code, rec.Body.String())
		}
	}

	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/compare", nil)
	if rec.Code != 200 || !env.Success {
		t.Fatalf("compare: %d %s", rec.Code, rec.Body.String())
	}
	if !env.UsedFallback {
		t.Fatal("no caller configured, used_fallback must be set")
	}
	data := env.Data.(map[string]any)
	comparison := data["comparison"].(map[string]any)
	scores := comparison["scores"].([]any)
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	top := scores[0].(map[string]any)
	if top["vendor_name"].(string) != "Acme" {
		t.Fatalf("unexpected top vendor: %v", top)
	}
	markdown := data["report_markdown"].(string)
	for _, want := range []string{"Acme", "Globex", "| Rank |"} {
		if !strings.Contains(markdown, want) {
			t.Fatalf("report missing %q:\n%s", want, markdown)
		}
	}
}

func TestCompareWithoutProposals(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	id := createTestRFP(t, h)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/compare", nil)
	if rec.Code != 422 || env.Success {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/v1/rfps"},
		{http.MethodPut, "/v1/vendors"},
		{http.MethodPost, "/v1/health"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestInboundWebhookQueuesForPollLoop(t *testing.T) {
	h, records, ingestor := newTestServer(t, nil)
	id := createTestRFP(t, h)
	createTestVendor(t, h, "Acme", "sales@acme.test")

	rec, env := doJSON(t, h, http.MethodPost, "/v1/rfps/"+id+"/send", map[string]any{})
	if rec.Code != 200 || !env.Success {
		t.Fatalf("send: %d %s", rec.Code, rec.Body.String())
	}

	rec, env = doJSON(t, h, http.MethodPost, "/v1/inbox/messages", map[string]string{
		"subject":      "Re: Request for Proposal",
		"from_address": "sales@acme.test",
		"text":         "Total price $6,600. Delivery in 14 days.",
	})
	if rec.Code != 202 || !env.Success {
		t.Fatalf("webhook: %d %s", rec.Code, rec.Body.String())
	}

	n, err := ingestor.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 ingested, got %d", n)
	}
	proposals, err := records.ListProposals(id)
	if err != nil {
		t.Fatalf("list proposals: %v", err)
	}
	if len(proposals) != 1 || proposals[0].Extraction.TotalPrice != 6600 {
		t.Fatalf("unexpected proposals: %+v", proposals)
	}
}

func TestInboundWebhookRequiresSenderAndText(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	rec, env := doJSON(t, h, http.MethodPost, "/v1/inbox/messages", map[string]string{
		"subject": "empty",
	})
	if rec.Code != 422 || env.Success {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("health: %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}
