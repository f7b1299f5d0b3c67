package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/procureflow/procureflow/internal/compare"
	"github.com/procureflow/procureflow/internal/store"
)

const disclaimer = "This comparison is an automated aid for procurement review, not a purchasing decision. " +
	"Scores are derived from the terms each vendor stated; unstated terms are scored neutrally."

// BuildComparisonMarkdown renders the ranked comparison as a report the
// procurement team can file alongside the RFP. proposalCount is how many
// proposals went into the comparison, which can exceed len(result.Scores)
// when a single proposal short-circuited the scoring.
func BuildComparisonMarkdown(rfp store.RFP, proposalCount int, result compare.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Vendor Comparison Report\n\n")
	fmt.Fprintf(&b, "- RFP: %s\n", rfp.Extraction.Title)
	fmt.Fprintf(&b, "- RFP ID: %s\n", rfp.ID)
	fmt.Fprintf(&b, "- Proposals compared: %d\n", proposalCount)
	fmt.Fprintf(&b, "- Date: %s\n\n", time.Now().Format(time.RFC3339))

	b.WriteString("## Requested Items\n\n")
	b.WriteString("| Item | Quantity | Specifications |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, it := range rfp.Extraction.Items {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", it.Name, it.Quantity, it.Specifications)
	}
	b.WriteString("\n")

	b.WriteString("## Ranking\n\n")
	b.WriteString("| Rank | Vendor | Price | Delivery | Terms | Overall |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for i, s := range result.Scores {
		fmt.Fprintf(&b, "| %d | %s | %d | %d | %d | %d |\n",
			i+1, s.VendorName, s.PriceScore, s.DeliveryScore, s.TermsScore, s.OverallScore)
	}
	b.WriteString("\n")

	for _, s := range result.Scores {
		fmt.Fprintf(&b, "### %s\n\n", s.VendorName)
		if s.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", s.Summary)
		}
		if len(s.Pros) > 0 {
			b.WriteString("Strengths:\n\n")
			for _, p := range s.Pros {
				fmt.Fprintf(&b, "- %s\n", p)
			}
			b.WriteString("\n")
		}
		if len(s.Cons) > 0 {
			b.WriteString("Gaps:\n\n")
			for _, c := range s.Cons {
				fmt.Fprintf(&b, "- %s\n", c)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Recommendation\n\n")
	fmt.Fprintf(&b, "%s\n\n", result.Recommendation.Reasoning)
	if len(result.Recommendation.Risks) > 0 {
		b.WriteString("Risks:\n\n")
		for _, r := range result.Recommendation.Risks {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
	if result.Recommendation.AlternativeOption != "" {
		fmt.Fprintf(&b, "Alternative: %s\n\n", result.Recommendation.AlternativeOption)
	}

	fmt.Fprintf(&b, "---\n\n*%s*\n", disclaimer)
	return b.String()
}
