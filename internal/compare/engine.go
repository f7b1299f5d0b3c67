package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/procureflow/procureflow/internal/extract"
	"github.com/procureflow/procureflow/internal/genai"
)

const comparisonSystemPrompt = `You are a procurement analyst comparing vendor proposals against a request for proposal. Respond with strict JSON only, no prose.`

const comparisonSchemaPrompt = `Required JSON schema:
{
  "scores": [{
    "vendor_id": "string",
    "vendor_name": "string",
    "price_score": integer 0-100,
    "delivery_score": integer 0-100,
    "terms_score": integer 0-100,
    "overall_score": integer 0-100,
    "pros": ["string"],
    "cons": ["string"],
    "summary": "string"
  }],
  "recommendation": {
    "recommended_vendor_id": "string",
    "reasoning": "string",
    "risks": ["string"],
    "alternative_option": "string|null"
  }
}
Order scores from best to worst by overall_score. overall_score must be the
rounded mean of the three sub-scores.`

// Engine ranks vendor proposals. With a configured caller it delegates the
// scoring and reasoning text to the completion service; otherwise, or on
// any service failure, it applies the deterministic formula.
type Engine struct {
	caller genai.Caller
}

// NewEngine builds a comparison engine. caller may be nil when the
// completion service is unconfigured.
func NewEngine(caller genai.Caller) *Engine {
	return &Engine{caller: caller}
}

// Compare produces a ranked vendor list plus a top recommendation.
// An empty proposal list is rejected before any parsing or scoring, and a
// single proposal short-circuits to a trivial recommendation without
// running either scoring path.
func (e *Engine) Compare(ctx context.Context, rfp extract.ExtractionResult, proposals []VendorProposal) Outcome {
	if len(proposals) == 0 {
		return Outcome{Success: false, Error: "at least one proposal is required"}
	}
	if len(proposals) == 1 {
		only := proposals[0]
		return Outcome{Success: true, Data: &Result{
			Scores: []VendorScore{},
			Recommendation: Recommendation{
				RecommendedVendorID: only.VendorID,
				Reasoning:           fmt.Sprintf("%s submitted the only proposal; no comparison was performed.", only.VendorName),
				Risks:               []string{"Single proposal received; pricing could not be benchmarked."},
			},
		}}
	}

	if e.caller != nil {
		res, err := e.compareGenerative(ctx, rfp, proposals)
		if err == nil {
			return Outcome{Success: true, Data: res}
		}
		log.Printf("compare: generative comparison unavailable, using fallback: %v", err)
	}

	scores := scoreDeterministic(proposals)
	return Outcome{
		Success:      true,
		Data:         &Result{Scores: scores, Recommendation: buildRecommendation(scores)},
		UsedFallback: true,
	}
}

func (e *Engine) compareGenerative(ctx context.Context, rfp extract.ExtractionResult, proposals []VendorProposal) (*Result, error) {
	payload := struct {
		RFP       extract.ExtractionResult `json:"rfp"`
		Proposals []VendorProposal         `json:"proposals"`
	}{RFP: rfp, Proposals: proposals}
	blob, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	raw, err := e.caller.GenerateJSON(ctx, comparisonSystemPrompt+"\n\n"+comparisonSchemaPrompt, string(blob), genai.TemperatureComparison)
	if err != nil {
		return nil, err
	}
	var res Result
	if err := genai.DecodeStrictJSON(raw, &res); err != nil {
		return nil, err
	}
	if err := validateGenerative(&res, proposals); err != nil {
		return nil, err
	}
	return &res, nil
}

func validateGenerative(res *Result, proposals []VendorProposal) error {
	if len(res.Scores) != len(proposals) {
		return fmt.Errorf("scored %d vendors, expected %d", len(res.Scores), len(proposals))
	}
	known := map[string]bool{}
	for _, p := range proposals {
		known[p.VendorID] = true
	}
	for i := range res.Scores {
		s := &res.Scores[i]
		if !known[s.VendorID] {
			return fmt.Errorf("unknown vendor id %q in scores", s.VendorID)
		}
		s.PriceScore = clampScore(s.PriceScore)
		s.DeliveryScore = clampScore(s.DeliveryScore)
		s.TermsScore = clampScore(s.TermsScore)
		s.OverallScore = clampScore(s.OverallScore)
		if s.Pros == nil {
			s.Pros = []string{}
		}
		if s.Cons == nil {
			s.Cons = []string{}
		}
	}
	if !known[res.Recommendation.RecommendedVendorID] {
		return fmt.Errorf("unknown recommended vendor id %q", res.Recommendation.RecommendedVendorID)
	}
	if res.Recommendation.Risks == nil {
		res.Recommendation.Risks = []string{}
	}
	return nil
}
