package compare

import (
	"fmt"
	"math"
	"sort"

	"github.com/procureflow/procureflow/internal/extract"
)

// scoreDeterministic ranks proposals without the generative service. The
// arithmetic is fixed: changing it silently re-orders historical
// comparisons, so treat every constant here as load-bearing.
func scoreDeterministic(proposals []VendorProposal) []VendorScore {
	maxPrice := 0.0
	minPrice := 0.0
	minSet := false
	for _, p := range proposals {
		price := p.Extraction.TotalPrice
		if price > maxPrice {
			maxPrice = price
		}
		if price > 0 && (!minSet || price < minPrice) {
			minPrice = price
			minSet = true
		}
	}
	spread := maxPrice - minPrice
	if spread == 0 {
		spread = 1
	}

	scores := make([]VendorScore, 0, len(proposals))
	for _, p := range proposals {
		s := VendorScore{
			VendorID:   p.VendorID,
			VendorName: p.VendorName,
			Pros:       []string{},
			Cons:       []string{},
		}
		s.PriceScore = priceScore(p.Extraction.TotalPrice, minPrice, spread)
		s.DeliveryScore = deliveryScore(p.Extraction.DeliveryDays)
		s.TermsScore = termsScore(p.Extraction.Warranty)
		s.OverallScore = clampScore(roundScore(float64(s.PriceScore+s.DeliveryScore+s.TermsScore) / 3))
		fillProsCons(&s, p.Extraction)
		s.Summary = fmt.Sprintf("%s scored %d/100 overall (price %d, delivery %d, terms %d).",
			p.VendorName, s.OverallScore, s.PriceScore, s.DeliveryScore, s.TermsScore)
		scores = append(scores, s)
	}

	// Ties keep input order so re-running a comparison never reshuffles
	// equally ranked vendors.
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].OverallScore > scores[j].OverallScore })
	return scores
}

func priceScore(price, minPrice, spread float64) int {
	if price <= 0 {
		return 50
	}
	return clampScore(roundScore(100 - ((price-minPrice)/spread)*50))
}

func deliveryScore(days int) int {
	if days >= extract.UnknownDeliveryDays {
		return 50
	}
	return clampScore(roundScore(100 - (float64(days)/60)*50))
}

func termsScore(warranty string) int {
	if warranty != "" {
		return 80
	}
	return 60
}

func fillProsCons(s *VendorScore, e extract.ProposalExtraction) {
	if e.TotalPrice > 0 {
		s.Pros = append(s.Pros, fmt.Sprintf("Quoted price: $%.2f", e.TotalPrice))
	} else {
		s.Cons = append(s.Cons, "No total price provided")
	}
	if e.DeliveryDays < extract.UnknownDeliveryDays {
		s.Pros = append(s.Pros, fmt.Sprintf("Delivery in %d days", e.DeliveryDays))
	} else {
		s.Cons = append(s.Cons, "No delivery timeline provided")
	}
	if e.Warranty != "" {
		s.Pros = append(s.Pros, "Warranty: "+e.Warranty)
	} else {
		s.Cons = append(s.Cons, "No warranty information")
	}
	if e.PaymentTerms != "" {
		s.Pros = append(s.Pros, "Payment terms: "+e.PaymentTerms)
	}
}

func buildRecommendation(scores []VendorScore) Recommendation {
	rec := Recommendation{Risks: []string{}}
	if len(scores) == 0 {
		return rec
	}
	top := scores[0]
	rec.RecommendedVendorID = top.VendorID
	rec.Reasoning = fmt.Sprintf("%s ranked highest with an overall score of %d/100.", top.VendorName, top.OverallScore)
	for _, c := range top.Cons {
		rec.Risks = append(rec.Risks, c)
	}
	if len(scores) > 1 {
		rec.AlternativeOption = fmt.Sprintf("%s (overall %d/100)", scores[1].VendorName, scores[1].OverallScore)
	}
	return rec
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func roundScore(v float64) int {
	return int(math.Round(v))
}
