package extract

import (
	"context"
	"log"
	"strings"

	"github.com/procureflow/procureflow/internal/genai"
)

const rfpSystemPrompt = `You are a procurement assistant. You turn free-text purchase requests into structured data. Respond with strict JSON only, no prose.`

const rfpSchemaPrompt = `Required JSON schema:
{
  "title": "string",
  "description": "string",
  "budget": number|null,
  "currency": "USD|EUR|GBP|INR",
  "delivery_days": number|null,
  "items": [{"name":"string","quantity":integer,"specifications":"string"}],
  "requirements": {
    "payment_terms": "string|null",
    "warranty": "string|null",
    "delivery_location": "string|null",
    "additional_terms": ["string"]
  }
}`

const proposalSystemPrompt = `You are a procurement assistant. You extract pricing and terms from vendor proposal emails. Respond with strict JSON only, no prose.`

const proposalSchemaPrompt = `Required JSON schema:
{
  "total_price": number|null,
  "item_pricing": [{"item_name":"string","unit_price":number,"quantity":integer,"total":number}],
  "delivery_timeline": "string|null",
  "delivery_days": number|null,
  "payment_terms": "string|null",
  "warranty": "string|null",
  "validity_period": "string|null",
  "conditions": ["string"],
  "notes": "string|null"
}`

// Parser is the shared contract of both extraction strategies.
type Parser interface {
	ParseRFP(ctx context.Context, text string) (ExtractionResult, error)
	ParseProposal(ctx context.Context, text string) (ProposalExtraction, error)
}

// GenerativeParser delegates extraction to the completion service.
type GenerativeParser struct {
	caller genai.Caller
}

func NewGenerativeParser(caller genai.Caller) *GenerativeParser {
	return &GenerativeParser{caller: caller}
}

func (p *GenerativeParser) ParseRFP(ctx context.Context, text string) (ExtractionResult, error) {
	raw, err := p.caller.GenerateJSON(ctx, rfpSystemPrompt+"\n\n"+rfpSchemaPrompt, text, genai.TemperatureExtraction)
	if err != nil {
		return ExtractionResult{}, err
	}
	var res ExtractionResult
	if err := genai.DecodeStrictJSON(raw, &res); err != nil {
		return ExtractionResult{}, err
	}
	normalizeRFP(&res, text)
	return res, nil
}

func (p *GenerativeParser) ParseProposal(ctx context.Context, text string) (ProposalExtraction, error) {
	raw, err := p.caller.GenerateJSON(ctx, proposalSystemPrompt+"\n\n"+proposalSchemaPrompt, text, genai.TemperatureExtraction)
	if err != nil {
		return ProposalExtraction{}, err
	}
	var res ProposalExtraction
	if err := genai.DecodeStrictJSON(raw, &res); err != nil {
		return ProposalExtraction{}, err
	}
	normalizeProposal(&res)
	return res, nil
}

func normalizeRFP(res *ExtractionResult, text string) {
	if res.Currency == "" {
		res.Currency = "USD"
	}
	if res.Requirements.AdditionalTerms == nil {
		res.Requirements.AdditionalTerms = []string{}
	}
	if len(res.Items) == 0 {
		res.Items = []Item{{
			Name:           "Items as specified",
			Quantity:       1,
			Specifications: truncateRunes(strings.TrimSpace(text), maxPlaceholderChars),
		}}
	}
	for i := range res.Items {
		if res.Items[i].Quantity < 1 {
			res.Items[i].Quantity = 1
		}
	}
	if res.Title == "" {
		res.Title = "Procurement Request"
	}
	if res.Description == "" {
		res.Description = truncateRunes(strings.TrimSpace(text), maxDescriptionChars)
	}
}

func normalizeProposal(res *ProposalExtraction) {
	if res.ItemPricing == nil {
		res.ItemPricing = []ItemPricing{}
	}
	if res.Conditions == nil {
		res.Conditions = []string{}
	}
	if res.DeliveryDays <= 0 {
		res.DeliveryDays = UnknownDeliveryDays
	}
}

// Service selects between the generative parser and the regex fallback by a
// capability check at call time. The generative path is attempted once;
// any transport or parse failure degrades silently to the fallback.
type Service struct {
	generative Parser
	fallback   FallbackParser
}

// NewService wires the extraction strategies. generative may be nil when
// the completion service is unconfigured.
func NewService(generative Parser) *Service {
	return &Service{generative: generative}
}

// ExtractRFP returns the uniform envelope for request extraction.
func (s *Service) ExtractRFP(ctx context.Context, text string) RFPOutcome {
	if strings.TrimSpace(text) == "" {
		return RFPOutcome{Success: false, Error: "request text is required"}
	}
	if s.generative != nil {
		res, err := s.generative.ParseRFP(ctx, text)
		if err == nil {
			return RFPOutcome{Success: true, Data: &res}
		}
		log.Printf("extract: generative rfp parse unavailable, using fallback: %v", err)
	}
	res := s.fallback.ParseRFP(text)
	return RFPOutcome{Success: true, Data: &res, UsedFallback: true}
}

// ExtractProposal returns the uniform envelope for proposal extraction.
func (s *Service) ExtractProposal(ctx context.Context, text string) ProposalOutcome {
	if strings.TrimSpace(text) == "" {
		return ProposalOutcome{Success: false, Error: "proposal text is required"}
	}
	if s.generative != nil {
		res, err := s.generative.ParseProposal(ctx, text)
		if err == nil {
			return ProposalOutcome{Success: true, Data: &res}
		}
		log.Printf("extract: generative proposal parse unavailable, using fallback: %v", err)
	}
	res := s.fallback.ParseProposal(text)
	return ProposalOutcome{Success: true, Data: &res, UsedFallback: true}
}
