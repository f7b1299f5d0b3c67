package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procureflow/procureflow/internal/compare"
	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/inbox"
	"github.com/procureflow/procureflow/internal/mailer"
	"github.com/procureflow/procureflow/internal/report"
	"github.com/procureflow/procureflow/internal/store"
)

// Store is the slice of persistence the API needs.
type Store interface {
	SaveRFP(store.RFP) error
	GetRFP(id string) (store.RFP, error)
	ListRFPs() ([]store.RFP, error)
	SetRFPStatus(id string, status store.RFPStatus) error
	SaveVendor(store.Vendor) error
	GetVendor(id string) (store.Vendor, error)
	ListVendors() ([]store.Vendor, error)
	ListProposals(rfpID string) ([]store.Proposal, error)
	SaveSendRecords([]store.SendRecord) error
	ListSendRecords(rfpID string) ([]store.SendRecord, error)
}

type Server struct {
	records   Store
	extractor *extract.Service
	engine    *compare.Engine
	composer  *mailer.Composer
	sender    mailer.Sender
	ingestor  *inbox.Ingestor
	mailbox   *inbox.MemoryPoller
}

// NewServer wires the API. ingestor handles reply ingestion for both the
// synchronous route and the poll loop; mailbox is the queue the inbound
// webhook feeds and the poll loop drains.
func NewServer(records Store, extractor *extract.Service, engine *compare.Engine, composer *mailer.Composer, sender mailer.Sender, ingestor *inbox.Ingestor, mailbox *inbox.MemoryPoller) http.Handler {
	s := &Server{
		records:   records,
		extractor: extractor,
		engine:    engine,
		composer:  composer,
		sender:    sender,
		ingestor:  ingestor,
		mailbox:   mailbox,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/rfps", s.handleRFPs)
	mux.HandleFunc("/v1/rfps/", s.handleRFPSubroutes)
	mux.HandleFunc("/v1/vendors", s.handleVendors)
	mux.HandleFunc("/v1/inbox/messages", s.handleInboundMessages)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

// envelope is the uniform response wrapper. Callers branch on success and
// never assume the shape of data without checking it.
type envelope struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data,omitempty"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
	Error        string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleRFPs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createRFP(w, r)
	case http.MethodGet:
		rfps, err := s.records.ListRFPs()
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, envelope{Success: true, Data: rfps})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createRFP(w http.ResponseWriter, r *http.Request) {
	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}

	outcome := s.extractor.ExtractRFP(r.Context(), req.Text)
	if !outcome.Success {
		writeJSON(w, 422, envelope{Success: false, Error: outcome.Error})
		return
	}

	rfp := store.RFP{
		ID:           uuid.NewString(),
		RawText:      req.Text,
		Extraction:   *outcome.Data,
		UsedFallback: outcome.UsedFallback,
		Status:       store.StatusDraft,
		CreatedAt:    time.Now(),
	}
	if err := s.records.SaveRFP(rfp); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, envelope{Success: true, Data: rfp, UsedFallback: outcome.UsedFallback})
}

func (s *Server) handleRFPSubroutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/rfps/")
	path = strings.Trim(path, "/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch action {
	case "":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		s.getRFP(w, id)
	case "send":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		s.sendRFP(w, r, id)
	case "sends":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		records, err := s.records.ListSendRecords(id)
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, envelope{Success: true, Data: records})
	case "replies":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		s.ingestReply(w, r, id)
	case "proposals":
		if !methodOnly(w, r, http.MethodGet) {
			return
		}
		proposals, err := s.records.ListProposals(id)
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, envelope{Success: true, Data: proposals})
	case "compare":
		if !methodOnly(w, r, http.MethodPost) {
			return
		}
		s.compareProposals(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) getRFP(w http.ResponseWriter, id string) {
	rfp, err := s.records.GetRFP(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "rfp not found")
		return
	}
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, envelope{Success: true, Data: rfp})
}

func (s *Server) sendRFP(w http.ResponseWriter, r *http.Request, id string) {
	rfp, err := s.records.GetRFP(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "rfp not found")
		return
	}
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}

	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	var req struct {
		VendorIDs []string `json:"vendor_ids"`
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}

	var recipients []mailer.Recipient
	if len(req.VendorIDs) == 0 {
		vendors, err := s.records.ListVendors()
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		for _, v := range vendors {
			recipients = append(recipients, mailer.Recipient{VendorID: v.ID, Name: v.Name, Email: v.Email})
		}
	} else {
		for _, vid := range req.VendorIDs {
			v, err := s.records.GetVendor(vid)
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, 404, "vendor not found: "+vid)
				return
			}
			if err != nil {
				writeError(w, 500, err.Error())
				return
			}
			recipients = append(recipients, mailer.Recipient{VendorID: v.ID, Name: v.Name, Email: v.Email})
		}
	}
	if len(recipients) == 0 {
		writeError(w, 422, "no vendors to send to")
		return
	}

	sends := mailer.SendToVendors(r.Context(), s.composer, s.sender, rfp.Extraction, recipients)
	now := time.Now()
	records := make([]store.SendRecord, 0, len(sends))
	anySuccess := false
	for _, snd := range sends {
		if snd.Success {
			anySuccess = true
		}
		records = append(records, store.SendRecord{
			RFPID:     id,
			VendorID:  snd.VendorID,
			Email:     snd.Email,
			Success:   snd.Success,
			MessageID: snd.MessageID,
			Error:     snd.Error,
			SentAt:    now,
		})
	}
	if err := s.records.SaveSendRecords(records); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if anySuccess {
		if err := s.records.SetRFPStatus(id, store.StatusSent); err != nil {
			log.Printf("httpapi: update rfp %s status: %v", id, err)
		}
	}
	writeJSON(w, 200, envelope{Success: true, Data: records})
}

func (s *Server) ingestReply(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.records.GetRFP(id); errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "rfp not found")
		return
	} else if err != nil {
		writeError(w, 500, err.Error())
		return
	}

	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	var req struct {
		Subject     string `json:"subject"`
		FromAddress string `json:"from_address"`
		Text        string `json:"text"`
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}

	proposal, err := s.ingestor.Ingest(r.Context(), id, inbox.InboundMessage{
		Subject:     req.Subject,
		FromAddress: req.FromAddress,
		Text:        req.Text,
		Date:        time.Now(),
	})
	switch {
	case errors.Is(err, inbox.ErrUnknownSender), errors.Is(err, inbox.ErrUnparsableReply):
		writeError(w, 422, err.Error())
	case err != nil:
		writeError(w, 500, err.Error())
	default:
		writeJSON(w, 200, envelope{Success: true, Data: proposal, UsedFallback: proposal.UsedFallback})
	}
}

// handleInboundMessages is the mail-provider webhook: it queues the raw
// message on the mailbox, and the poll loop attributes and parses it later.
func (s *Server) handleInboundMessages(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := readBody(r)
	if err != nil {
		writeError(w, 400, "invalid request body")
		return
	}
	var req struct {
		Subject     string    `json:"subject"`
		FromAddress string    `json:"from_address"`
		Text        string    `json:"text"`
		Date        time.Time `json:"date"`
	}
	if err := json.Unmarshal(blob, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.FromAddress) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, 422, "from_address and text are required")
		return
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	s.mailbox.Add(inbox.InboundMessage{
		Subject:     req.Subject,
		FromAddress: req.FromAddress,
		Text:        req.Text,
		Date:        date,
	})
	writeJSON(w, 202, envelope{Success: true})
}

func (s *Server) compareProposals(w http.ResponseWriter, r *http.Request, id string) {
	rfp, err := s.records.GetRFP(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, 404, "rfp not found")
		return
	}
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	proposals, err := s.records.ListProposals(id)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}

	inputs := make([]compare.VendorProposal, 0, len(proposals))
	for _, p := range proposals {
		name := p.VendorID
		if v, err := s.records.GetVendor(p.VendorID); err == nil {
			name = v.Name
		}
		inputs = append(inputs, compare.VendorProposal{
			VendorID:   p.VendorID,
			VendorName: name,
			Extraction: p.Extraction,
		})
	}

	outcome := s.engine.Compare(r.Context(), rfp.Extraction, inputs)
	if !outcome.Success {
		writeJSON(w, 422, envelope{Success: false, Error: outcome.Error})
		return
	}

	markdown := report.BuildComparisonMarkdown(rfp, len(proposals), *outcome.Data)
	writeJSON(w, 200, envelope{
		Success: true,
		Data: map[string]any{
			"comparison":      outcome.Data,
			"report_markdown": markdown,
		},
		UsedFallback: outcome.UsedFallback,
	})
}

func (s *Server) handleVendors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		blob, err := readBody(r)
		if err != nil {
			writeError(w, 400, "invalid request body")
			return
		}
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Category string `json:"category"`
		}
		if err := json.Unmarshal(blob, &req); err != nil {
			writeError(w, 400, "invalid JSON: "+err.Error())
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
			writeError(w, 422, "name and email are required")
			return
		}
		v := store.Vendor{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.TrimSpace(req.Email),
			Category:  strings.TrimSpace(req.Category),
			CreatedAt: time.Now(),
		}
		if err := s.records.SaveVendor(v); err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, envelope{Success: true, Data: v})
	case http.MethodGet:
		vendors, err := s.records.ListVendors()
		if err != nil {
			writeError(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, envelope{Success: true, Data: vendors})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
}
