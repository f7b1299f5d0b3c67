package compare

import "github.com/procureflow/procureflow/internal/extract"

// VendorProposal pairs a vendor identity with its parsed proposal.
type VendorProposal struct {
	VendorID   string                     `json:"vendor_id"`
	VendorName string                     `json:"vendor_name"`
	Extraction extract.ProposalExtraction `json:"extraction"`
}

// VendorScore is the per-vendor comparison outcome. Every numeric score is
// clamped to [0,100]; OverallScore is the unweighted mean of the three
// sub-scores, rounded to the nearest integer.
type VendorScore struct {
	VendorID      string   `json:"vendor_id"`
	VendorName    string   `json:"vendor_name"`
	PriceScore    int      `json:"price_score"`
	DeliveryScore int      `json:"delivery_score"`
	TermsScore    int      `json:"terms_score"`
	OverallScore  int      `json:"overall_score"`
	Pros          []string `json:"pros"`
	Cons          []string `json:"cons"`
	Summary       string   `json:"summary"`
}

// Recommendation names the winning vendor and, when available, a runner-up.
type Recommendation struct {
	RecommendedVendorID string   `json:"recommended_vendor_id"`
	Reasoning           string   `json:"reasoning"`
	Risks               []string `json:"risks"`
	AlternativeOption   string   `json:"alternative_option,omitempty"`
}

// Result is the ranked comparison, highest overall score first.
type Result struct {
	Scores         []VendorScore  `json:"scores"`
	Recommendation Recommendation `json:"recommendation"`
}

// Outcome is the uniform envelope returned by Compare.
type Outcome struct {
	Success      bool    `json:"success"`
	Data         *Result `json:"data,omitempty"`
	UsedFallback bool    `json:"used_fallback,omitempty"`
	Error        string  `json:"error,omitempty"`
}
