package mailer

import (
	"context"
	"log"

	"github.com/procureflow/procureflow/internal/extract"
)

// Recipient is one vendor to invite.
type Recipient struct {
	VendorID string
	Name     string
	Email    string
}

// VendorSend is the per-vendor outcome of a fan-out.
type VendorSend struct {
	VendorID  string `json:"vendor_id"`
	Email     string `json:"email"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SendToVendors composes and delivers the RFP invitation to each vendor in
// turn. Sends are strictly sequential; a failing vendor is recorded and the
// loop moves on, so one bad address never loses the other results.
func SendToVendors(ctx context.Context, composer *Composer, sender Sender, rfp extract.ExtractionResult, vendors []Recipient) []VendorSend {
	results := make([]VendorSend, 0, len(vendors))
	for _, v := range vendors {
		out := VendorSend{VendorID: v.VendorID, Email: v.Email}
		composed := composer.Compose(ctx, rfp, v.Name)
		if !composed.Success {
			out.Error = composed.Error
			results = append(results, out)
			continue
		}
		sent := sender.Send(ctx, v.Email, *composed.Data)
		out.Success = sent.Success
		out.MessageID = sent.MessageID
		out.Error = sent.Error
		if !sent.Success {
			log.Printf("mailer: send to %s failed: %s", v.Email, sent.Error)
		}
		results = append(results, out)
	}
	return results
}
