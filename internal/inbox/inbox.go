// Package inbox models the inbound side of vendor communication. The core
// never talks to a mailbox directly: a Poller hands it plain messages and
// the helpers here filter them against the known vendor set.
package inbox

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"
)

// Attachment is a named payload on an inbound message.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// InboundMessage is one email fetched from the procurement mailbox.
type InboundMessage struct {
	Subject     string       `json:"subject"`
	FromAddress string       `json:"from_address"`
	Date        time.Time    `json:"date"`
	Text        string       `json:"text"`
	HTML        string       `json:"html,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Poller fetches unseen messages received after since.
type Poller interface {
	FetchUnseenSince(ctx context.Context, since time.Time) ([]InboundMessage, error)
}

// MemoryPoller is an in-process Poller. Production uses it as the queue
// behind the inbound-message webhook; tests feed it directly. Add and
// FetchUnseenSince may run from different goroutines.
type MemoryPoller struct {
	mu       sync.Mutex
	messages []InboundMessage
}

func NewMemoryPoller(messages ...InboundMessage) *MemoryPoller {
	return &MemoryPoller{messages: messages}
}

func (p *MemoryPoller) Add(m InboundMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, m)
}

func (p *MemoryPoller) FetchUnseenSince(ctx context.Context, since time.Time) ([]InboundMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []InboundMessage
	for _, m := range p.messages {
		if m.Date.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

// NormalizeAddress reduces "Name <user@host>" to a lowercased bare address.
func NormalizeAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(from))
	}
	return strings.ToLower(addr.Address)
}

// FilterKnownVendors keeps only messages whose sender is in vendorEmails
// (keys are bare lowercased addresses, values are vendor IDs) and pairs
// each kept message with its vendor ID.
func FilterKnownVendors(messages []InboundMessage, vendorEmails map[string]string) []VendorMessage {
	var out []VendorMessage
	for _, m := range messages {
		if id, ok := vendorEmails[NormalizeAddress(m.FromAddress)]; ok {
			out = append(out, VendorMessage{VendorID: id, Message: m})
		}
	}
	return out
}

// VendorMessage is an inbound message attributed to a known vendor.
type VendorMessage struct {
	VendorID string
	Message  InboundMessage
}
