package inbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/store"
)

// Records is the slice of persistence ingestion needs.
type Records interface {
	VendorEmailIndex() (map[string]string, error)
	ListRFPs() ([]store.RFP, error)
	SaveProposal(store.Proposal) error
}

// Extractor parses a vendor reply into structured pricing.
type Extractor interface {
	ExtractProposal(ctx context.Context, text string) extract.ProposalOutcome
}

var (
	ErrUnknownSender = errors.New("sender is not a known vendor")

	// ErrUnparsableReply reports that extraction rejected the message text.
	ErrUnparsableReply = errors.New("reply could not be parsed")

	// ErrNoOpenRFP reports that a polled message has no sent RFP to attach to.
	ErrNoOpenRFP = errors.New("no sent rfp to attribute replies to")
)

// Ingestor turns inbound messages into stored proposals. The HTTP reply
// route calls Ingest directly with an explicit RFP; the background drain
// loop pulls from the poller and attributes messages to the newest sent RFP.
type Ingestor struct {
	poller    Poller
	records   Records
	extractor Extractor
	since     time.Time
}

func NewIngestor(poller Poller, records Records, extractor Extractor) *Ingestor {
	return &Ingestor{poller: poller, records: records, extractor: extractor}
}

// Ingest attributes one message to rfpID, parses it, and persists the
// resulting proposal. The sender must resolve to a known vendor.
func (i *Ingestor) Ingest(ctx context.Context, rfpID string, m InboundMessage) (store.Proposal, error) {
	index, err := i.records.VendorEmailIndex()
	if err != nil {
		return store.Proposal{}, err
	}
	matched := FilterKnownVendors([]InboundMessage{m}, index)
	if len(matched) == 0 {
		return store.Proposal{}, ErrUnknownSender
	}
	vm := matched[0]

	outcome := i.extractor.ExtractProposal(ctx, vm.Message.Text)
	if !outcome.Success {
		return store.Proposal{}, fmt.Errorf("%w: %s", ErrUnparsableReply, outcome.Error)
	}

	received := vm.Message.Date
	if received.IsZero() {
		received = time.Now()
	}
	proposal := store.Proposal{
		ID:           uuid.NewString(),
		RFPID:        rfpID,
		VendorID:     vm.VendorID,
		Subject:      vm.Message.Subject,
		RawText:      vm.Message.Text,
		Extraction:   *outcome.Data,
		UsedFallback: outcome.UsedFallback,
		ReceivedAt:   received,
	}
	if err := i.records.SaveProposal(proposal); err != nil {
		return store.Proposal{}, err
	}
	return proposal, nil
}

// DrainOnce fetches unseen messages from the poller and ingests each one
// against the newest sent RFP. Unknown senders and unparsable replies are
// logged and skipped, never fatal. Returns the number ingested.
func (i *Ingestor) DrainOnce(ctx context.Context) (int, error) {
	messages, err := i.poller.FetchUnseenSince(ctx, i.since)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}
	rfpID, err := i.openRFP()
	if err != nil {
		return 0, err
	}

	ingested := 0
	for _, m := range messages {
		if m.Date.After(i.since) {
			i.since = m.Date
		}
		if _, err := i.Ingest(ctx, rfpID, m); err != nil {
			log.Printf("inbox: skipping message from %s: %v", m.FromAddress, err)
			continue
		}
		ingested++
	}
	return ingested, nil
}

func (i *Ingestor) openRFP() (string, error) {
	rfps, err := i.records.ListRFPs()
	if err != nil {
		return "", err
	}
	// Newest first, so the first sent RFP is the open solicitation.
	for _, r := range rfps {
		if r.Status == store.StatusSent {
			return r.ID, nil
		}
	}
	return "", ErrNoOpenRFP
}

// Run drains the poller on a fixed interval until ctx is done.
func (i *Ingestor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := i.DrainOnce(ctx)
			if err != nil {
				log.Printf("inbox: drain: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("inbox: ingested %d proposals", n)
			}
		}
	}
}
