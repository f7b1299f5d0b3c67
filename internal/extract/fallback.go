package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	maxDescriptionChars = 200
	maxPlaceholderChars = 100

	// UnknownDeliveryDays marks proposals that never stated a timeline.
	// Downstream scoring treats it as "no information".
	UnknownDeliveryDays = 999
)

// categoryPattern matches "<integer> <keyword>" occurrences for one
// procurement category. Patterns are evaluated independently; a token that
// matches two categories yields two items.
type categoryPattern struct {
	re *regexp.Regexp
}

var itemCatalogue = []categoryPattern{
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+(laptops?|computers?|desktops?|servers?|workstations?)\b`)},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+(monitors?|displays?)\b`)},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+(keyboards?|mice|headsets?|webcams?)\b`)},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+(chairs?|desks?|tables?|cabinets?)\b`)},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+(phones?|telephones?|smartphones?)\b`)},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+(printers?|scanners?|copiers?)\b`)},
	{re: regexp.MustCompile(`(?i)\b(\d+)\s+(routers?|switches?|firewalls?)\b`)},
}

var (
	symbolBudgetPattern = regexp.MustCompile(`([$€£₹])\s*(\d[\d,]*)`)
	wordBudgetPattern   = regexp.MustCompile(`(?i)\b(\d[\d,]*)\s*(usd|dollars?|eur|euros?|gbp|pounds?|inr|rupees?)\b`)
	dollarAmountPattern = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d+)?)`)
	deliveryPattern     = regexp.MustCompile(`(?i)\b(\d+)\s*(day|days|week|weeks)\b`)
	ramPattern          = regexp.MustCompile(`(?i)\b(\d+)\s*GB\s*RAM\b`)
	screenPattern       = regexp.MustCompile(`(?i)\b(\d+)\s*(?:inch(?:es)?|")`)
	netTermsPattern     = regexp.MustCompile(`(?i)\bnet\s*(15|30|60)\b`)
	warrantyPattern     = regexp.MustCompile(`(?i)\b(\d+)\s*(year|month)s?\s+warranty\b`)
	validityPattern     = regexp.MustCompile(`(?i)\bvalid\s+(?:for\s+)?(\d+\s*(?:day|days|week|weeks|month|months))\b`)
)

var currencyBySymbol = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₹": "INR",
}

var currencyByWord = map[string]string{
	"usd": "USD", "dollar": "USD", "dollars": "USD",
	"eur": "EUR", "euro": "EUR", "euros": "EUR",
	"gbp": "GBP", "pound": "GBP", "pounds": "GBP",
	"inr": "INR", "rupee": "INR", "rupees": "INR",
}

// FallbackParser is the deterministic regex extractor used whenever the
// generative service is unavailable. It is stateless: every call evaluates
// the pattern catalogue fresh, so concurrent use is safe.
type FallbackParser struct{}

// ParseRFP turns a free-text purchase request into a best-effort structured
// record. It always produces a result with at least one item; degraded
// quality is acceptable, absence of a result is not.
func (FallbackParser) ParseRFP(text string) ExtractionResult {
	res := ExtractionResult{
		Currency:     "USD",
		Requirements: Requirements{AdditionalTerms: []string{}},
	}

	if budget, currency, ok := matchBudget(text); ok {
		res.Budget = budget
		res.Currency = currency
	}
	if days, _, ok := matchDelivery(text); ok {
		res.DeliveryDays = days
	}
	res.Items = matchItems(text)
	attachSpecifications(res.Items, text)
	res.Requirements.PaymentTerms = matchPaymentTerms(text)
	res.Requirements.Warranty = matchWarranty(text)

	if len(res.Items) == 0 {
		res.Title = "Procurement Request"
		res.Items = []Item{{
			Name:           "Items as specified",
			Quantity:       1,
			Specifications: truncateRunes(strings.TrimSpace(text), maxPlaceholderChars),
		}}
	} else {
		names := make([]string, 0, len(res.Items))
		for _, it := range res.Items {
			names = append(names, it.Name)
		}
		res.Title = strings.Join(names, " and ") + " Procurement"
	}
	res.Description = truncateRunes(strings.TrimSpace(text), maxDescriptionChars)
	return res
}

// ParseProposal reduces a vendor's reply to structured pricing and terms.
// Same pattern helpers as ParseRFP, parameterized for proposal needs: the
// quoted price is the largest dollar amount in the reply, not the first.
func (FallbackParser) ParseProposal(text string) ProposalExtraction {
	res := ProposalExtraction{
		ItemPricing:  []ItemPricing{},
		Conditions:   []string{},
		DeliveryDays: UnknownDeliveryDays,
	}

	if price, ok := maxDollarAmount(text); ok {
		res.TotalPrice = price
	}
	if days, raw, ok := matchDelivery(text); ok {
		res.DeliveryDays = days
		res.DeliveryTimeline = raw
	}
	res.PaymentTerms = matchPaymentTerms(text)
	res.Warranty = matchWarranty(text)
	if m := validityPattern.FindStringSubmatch(text); len(m) == 2 {
		res.ValidityPeriod = strings.TrimSpace(m[1])
	}
	return res
}

// matchBudget returns the first currency-tagged numeral: a symbol-prefixed
// amount wins over a "<number> <currency word>" form. Separators are
// stripped and the value parsed as an integer.
func matchBudget(text string) (float64, string, bool) {
	if m := symbolBudgetPattern.FindStringSubmatch(text); len(m) == 3 {
		if v, err := parseAmountInt(m[2]); err == nil {
			return float64(v), currencyBySymbol[m[1]], true
		}
	}
	if m := wordBudgetPattern.FindStringSubmatch(text); len(m) == 3 {
		if v, err := parseAmountInt(m[1]); err == nil {
			return float64(v), currencyByWord[strings.ToLower(m[2])], true
		}
	}
	return 0, "", false
}

// maxDollarAmount scans every dollar figure in the text and keeps the
// largest, on the assumption that a proposal's grand total dominates its
// per-line prices.
func maxDollarAmount(text string) (float64, bool) {
	max := 0.0
	found := false
	for _, m := range dollarAmountPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		found = true
		if v > max {
			max = v
		}
	}
	return max, found
}

func matchDelivery(text string) (int, string, bool) {
	m := deliveryPattern.FindStringSubmatch(text)
	if len(m) != 3 {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "week") {
		n *= 7
	}
	return n, strings.TrimSpace(m[0]), true
}

func matchItems(text string) []Item {
	var items []Item
	for _, cat := range itemCatalogue {
		for _, m := range cat.re.FindAllStringSubmatch(text, -1) {
			qty, err := strconv.Atoi(m[1])
			if err != nil || qty < 1 {
				continue
			}
			items = append(items, Item{
				Name:     capitalize(singularize(m[2])),
				Quantity: qty,
			})
		}
	}
	return items
}

// attachSpecifications applies the positional spec heuristics: a RAM figure
// goes to the first item regardless of where it appeared in the text, and a
// screen size goes to the first item whose name contains "monitor". This
// can misattach when categories interleave; the behavior is kept for
// compatibility with existing records.
func attachSpecifications(items []Item, text string) {
	if len(items) == 0 {
		return
	}
	if m := ramPattern.FindStringSubmatch(text); len(m) == 2 {
		items[0].Specifications = m[1] + "GB RAM"
	}
	if m := screenPattern.FindStringSubmatch(text); len(m) == 2 {
		for i := range items {
			if strings.Contains(strings.ToLower(items[i].Name), "monitor") {
				items[i].Specifications = m[1] + " inch"
				break
			}
		}
	}
}

func matchPaymentTerms(text string) string {
	if m := netTermsPattern.FindStringSubmatch(text); len(m) == 2 {
		return "Net " + m[1]
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "immediate") || strings.Contains(lower, "advance") {
		return "Advance Payment"
	}
	return ""
}

func matchWarranty(text string) string {
	m := warrantyPattern.FindStringSubmatch(text)
	if len(m) != 3 {
		return ""
	}
	unit := strings.ToLower(m[2])
	if m[1] != "1" {
		unit += "s"
	}
	return m[1] + " " + unit + " warranty"
}

func parseAmountInt(raw string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
}

func singularize(word string) string {
	w := strings.ToLower(word)
	switch {
	case w == "mice":
		return "mouse"
	case strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"), strings.HasSuffix(w, "xes"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
