package mailer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/genai"
)

// Email is a rendered outbound message.
type Email struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailOutcome is the uniform envelope returned by Compose.
type EmailOutcome struct {
	Success      bool   `json:"success"`
	Data         *Email `json:"data,omitempty"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
	Error        string `json:"error,omitempty"`
}

const emailSystemPrompt = `You write professional procurement emails inviting vendors to quote on a request for proposal. Respond with strict JSON only: {"subject":"string","body":"string"}. The body must be plain text and must list every item with its name, quantity, and specifications.`

// Composer renders the outbound RFP email for one vendor. A configured
// caller produces more natural prose; the fallback is a fixed layout.
type Composer struct {
	caller genai.Caller
}

func NewComposer(caller genai.Caller) *Composer {
	return &Composer{caller: caller}
}

// Compose renders the RFP invitation for vendorName.
func (c *Composer) Compose(ctx context.Context, rfp extract.ExtractionResult, vendorName string) EmailOutcome {
	if strings.TrimSpace(vendorName) == "" {
		return EmailOutcome{Success: false, Error: "vendor name is required"}
	}
	if c.caller != nil {
		email, err := c.composeGenerative(ctx, rfp, vendorName)
		if err == nil {
			return EmailOutcome{Success: true, Data: email}
		}
		log.Printf("mailer: generative email compose unavailable, using fallback: %v", err)
	}
	email := RenderRFPEmail(rfp, vendorName)
	return EmailOutcome{Success: true, Data: &email, UsedFallback: true}
}

func (c *Composer) composeGenerative(ctx context.Context, rfp extract.ExtractionResult, vendorName string) (*Email, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Vendor: %s\n\nRequest for proposal:\n", vendorName)
	writeRFPSummary(&user, rfp)
	raw, err := c.caller.GenerateJSON(ctx, emailSystemPrompt, user.String(), genai.TemperatureEmail)
	if err != nil {
		return nil, err
	}
	var email Email
	if err := genai.DecodeStrictJSON(raw, &email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(email.Subject) == "" || strings.TrimSpace(email.Body) == "" {
		return nil, fmt.Errorf("incomplete email response")
	}
	for _, it := range rfp.Items {
		if !strings.Contains(email.Body, it.Name) {
			return nil, fmt.Errorf("generated body omits item %q", it.Name)
		}
	}
	return &email, nil
}

// RenderRFPEmail is the deterministic template: a fixed multi-section
// layout with one line per item and a six-point response checklist.
func RenderRFPEmail(rfp extract.ExtractionResult, vendorName string) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", vendorName)
	b.WriteString("We invite you to submit a proposal for the following procurement.\n\n")
	fmt.Fprintf(&b, "Project: %s\n", rfp.Title)
	if rfp.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", rfp.Description)
	}
	b.WriteString("\nItems required:\n")
	for _, it := range rfp.Items {
		if it.Specifications != "" {
			fmt.Fprintf(&b, "- %s, quantity %d, specifications: %s\n", it.Name, it.Quantity, it.Specifications)
		} else {
			fmt.Fprintf(&b, "- %s, quantity %d\n", it.Name, it.Quantity)
		}
	}
	b.WriteString("\n")
	if rfp.Budget > 0 {
		fmt.Fprintf(&b, "Budget: %.0f %s\n", rfp.Budget, rfp.Currency)
	}
	if rfp.DeliveryDays > 0 {
		fmt.Fprintf(&b, "Required delivery: within %d days\n", rfp.DeliveryDays)
	}
	if rfp.Requirements.PaymentTerms != "" {
		fmt.Fprintf(&b, "Payment terms: %s\n", rfp.Requirements.PaymentTerms)
	}
	if rfp.Requirements.Warranty != "" {
		fmt.Fprintf(&b, "Warranty: %s\n", rfp.Requirements.Warranty)
	}
	b.WriteString("\nPlease include in your response:\n")
	b.WriteString("1. Itemized pricing for every requested item\n")
	b.WriteString("2. Total price including any delivery charges\n")
	b.WriteString("3. Delivery timeline\n")
	b.WriteString("4. Payment terms\n")
	b.WriteString("5. Warranty coverage\n")
	b.WriteString("6. Quote validity period\n")
	b.WriteString("\nKind regards,\nProcurement Team\n")

	return Email{
		Subject: "Request for Proposal: " + rfp.Title,
		Body:    b.String(),
	}
}

func writeRFPSummary(b *strings.Builder, rfp extract.ExtractionResult) {
	fmt.Fprintf(b, "Title: %s\nDescription: %s\n", rfp.Title, rfp.Description)
	for _, it := range rfp.Items {
		fmt.Fprintf(b, "Item: %s x%d %s\n", it.Name, it.Quantity, it.Specifications)
	}
	if rfp.Budget > 0 {
		fmt.Fprintf(b, "Budget: %.0f %s\n", rfp.Budget, rfp.Currency)
	}
	if rfp.DeliveryDays > 0 {
		fmt.Fprintf(b, "Delivery: %d days\n", rfp.DeliveryDays)
	}
	if rfp.Requirements.PaymentTerms != "" {
		fmt.Fprintf(b, "Payment terms: %s\n", rfp.Requirements.PaymentTerms)
	}
	if rfp.Requirements.Warranty != "" {
		fmt.Fprintf(b, "Warranty: %s\n", rfp.Requirements.Warranty)
	}
}
