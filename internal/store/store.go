// Package store persists RFP, vendor, and proposal records. The extraction
// and comparison core never receives a store handle; it works on the plain
// record values defined here.
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/procureflow/procureflow/internal/extract"
)

var ErrNotFound = errors.New("record not found")

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

type RFPStatus string

const (
	StatusDraft     RFPStatus = "draft"
	StatusSent      RFPStatus = "sent"
	StatusComparing RFPStatus = "comparing"
	StatusClosed    RFPStatus = "closed"
)

// RFP is a stored request-for-proposal record.
type RFP struct {
	ID           string                   `json:"id"`
	RawText      string                   `json:"raw_text"`
	Extraction   extract.ExtractionResult `json:"extraction"`
	UsedFallback bool                     `json:"used_fallback"`
	Status       RFPStatus                `json:"status"`
	CreatedAt    time.Time                `json:"created_at"`
}

// Vendor is a supplier that can be invited to quote.
type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Proposal is a vendor reply tied to an RFP, with its parsed form.
type Proposal struct {
	ID           string                     `json:"id"`
	RFPID        string                     `json:"rfp_id"`
	VendorID     string                     `json:"vendor_id"`
	Subject      string                     `json:"subject"`
	RawText      string                     `json:"raw_text"`
	Extraction   extract.ProposalExtraction `json:"extraction"`
	UsedFallback bool                       `json:"used_fallback"`
	ReceivedAt   time.Time                  `json:"received_at"`
}

// SendRecord is one per-vendor delivery outcome for an RFP fan-out.
type SendRecord struct {
	RFPID     string    `json:"rfp_id"`
	VendorID  string    `json:"vendor_id"`
	Email     string    `json:"email"`
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}
