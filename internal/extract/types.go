package extract

// Item is a single procurable line item pulled out of a purchase request.
type Item struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Specifications string `json:"specifications,omitempty"`
}

// Requirements carries the commercial terms attached to a request.
type Requirements struct {
	PaymentTerms     string   `json:"payment_terms,omitempty"`
	Warranty         string   `json:"warranty,omitempty"`
	DeliveryLocation string   `json:"delivery_location,omitempty"`
	AdditionalTerms  []string `json:"additional_terms"`
}

// ExtractionResult is the structured form of a free-text purchase request.
// It is built fresh per call and never mutated after return.
type ExtractionResult struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Budget       float64      `json:"budget,omitempty"`
	Currency     string       `json:"currency"`
	DeliveryDays int          `json:"delivery_days,omitempty"`
	Items        []Item       `json:"items"`
	Requirements Requirements `json:"requirements"`
}

// ItemPricing is a per-line price quoted inside a vendor proposal.
type ItemPricing struct {
	ItemName  string  `json:"item_name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity,omitempty"`
	Total     float64 `json:"total,omitempty"`
}

// ProposalExtraction is the structured form of a vendor's reply.
type ProposalExtraction struct {
	TotalPrice       float64       `json:"total_price,omitempty"`
	ItemPricing      []ItemPricing `json:"item_pricing"`
	DeliveryTimeline string        `json:"delivery_timeline,omitempty"`
	DeliveryDays     int           `json:"delivery_days,omitempty"`
	PaymentTerms     string        `json:"payment_terms,omitempty"`
	Warranty         string        `json:"warranty,omitempty"`
	ValidityPeriod   string        `json:"validity_period,omitempty"`
	Conditions       []string      `json:"conditions"`
	Notes            string        `json:"notes,omitempty"`
}

// RFPOutcome is the uniform envelope returned by request extraction.
type RFPOutcome struct {
	Success      bool              `json:"success"`
	Data         *ExtractionResult `json:"data,omitempty"`
	UsedFallback bool              `json:"used_fallback,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// ProposalOutcome is the uniform envelope returned by proposal extraction.
type ProposalOutcome struct {
	Success      bool                `json:"success"`
	Data         *ProposalExtraction `json:"data,omitempty"`
	UsedFallback bool                `json:"used_fallback,omitempty"`
	Error        string              `json:"error,omitempty"`
}
