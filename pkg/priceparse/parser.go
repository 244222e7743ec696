package priceparse

import (
	"regexp"
	"strings"
)

// Label identifies the summary keyword a labeled amount was captured under.
type Label string

const (
	LabelSubtotal Label = "subtotal"
	LabelTotal    Label = "total"
	LabelAmount   Label = "amount"
	LabelTax      Label = "tax"
	LabelDiscount Label = "discount"
)

// TotalUnknown is the sentinel Result.Total value when no total could be
// determined from the text.
const TotalUnknown = "unknown"

// LabeledAmount pairs a recognized label with the amount printed next to it.
type LabeledAmount struct {
	Label  Label `json:"label"`
	Amount Money `json:"amount"`
}

// Result is the structured outcome of one parse. All collections are
// deduplicated by exact canonical amount and keep first-occurrence order.
// Total is a canonical two-fraction amount string or TotalUnknown.
type Result struct {
	AllPrices     []Money         `json:"all_prices"`
	ItemPrices    []Money         `json:"item_prices"`
	LabeledPrices []LabeledAmount `json:"labeled_prices"`
	Total         string          `json:"total"`
	RawText       string          `json:"raw_text"`
}

// LabelRule binds a label to the pattern that finds its first occurrence in
// the text. The pattern's first submatch must capture the numeric token.
type LabelRule struct {
	Label   Label
	Pattern *regexp.Regexp
}

// Config carries the parser tunables. Ceilings are exclusive upper bounds in
// whole currency units; they reject OCR misreads like a stray "1000000".
type Config struct {
	CeilingAll      int64       // any detected price, default 100000
	CeilingItem     int64       // line-item prices, default 1000
	SummaryKeywords []string    // case-insensitive substrings opening the summary zone
	Labels          []LabelRule // checked in order, first text match per label wins
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		CeilingAll:      100000,
		CeilingItem:     1000,
		SummaryKeywords: []string{"subtotal", "total", "tax", "discount", "payment"},
		Labels:          defaultLabelRules(),
	}
}

// Candidate patterns. Both capture a coarse numeric token that is then
// validated and normalized by parseAmountToken; keeping the regexes loose and
// the rules in small predicates keeps each step testable on its own.
var (
	// Currency-marked: "$" then optional whitespace then a digit run that may
	// contain separators and a decimal point. Fraction length is enforced by
	// parseAmountToken, not the regex.
	currencyRE = regexp.MustCompile(`\$\s*([0-9][0-9.,]*)`)
	// Bare decimal: a standalone 1-6 digit integer part with exactly two
	// fractional digits. The word boundaries stop matches inside longer
	// numeric runs ("1234.567" yields nothing).
	bareRE = regexp.MustCompile(`\b([0-9]{1,6}\.[0-9]{2})\b`)
	// Total with exactly two fractional digits, used for total resolution.
	// \btotal\b keeps it from firing inside "subtotal".
	strictTotalRE = regexp.MustCompile(`(?i)\btotal\b\s*:?\s*\$?\s*([0-9][0-9,]*\.[0-9]{2})\b`)
)

func defaultLabelRules() []LabelRule {
	amount := `\s*:?\s*\$?\s*([0-9][0-9.,]*)`
	return []LabelRule{
		{LabelSubtotal, regexp.MustCompile(`(?i)\bsub\s?total\b` + amount)},
		{LabelTotal, regexp.MustCompile(`(?i)\btotal\b` + amount)},
		{LabelAmount, regexp.MustCompile(`(?i)\bamount\b` + amount)},
		{LabelTax, regexp.MustCompile(`(?i)\btax\b` + amount)},
		{LabelDiscount, regexp.MustCompile(`(?i)\bdiscount\b` + amount)},
	}
}

// Parser extracts prices from raw OCR text. It is stateless after
// construction; one Parser may serve concurrent scans.
type Parser struct {
	cfg Config
}

// New builds a Parser, filling any zero-valued Config field from
// DefaultConfig.
func New(cfg Config) *Parser {
	def := DefaultConfig()
	if cfg.CeilingAll <= 0 {
		cfg.CeilingAll = def.CeilingAll
	}
	if cfg.CeilingItem <= 0 {
		cfg.CeilingItem = def.CeilingItem
	}
	if len(cfg.SummaryKeywords) == 0 {
		cfg.SummaryKeywords = def.SummaryKeywords
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = def.Labels
	}
	return &Parser{cfg: cfg}
}

// Parse runs the default-configured parser over text.
func Parse(text string) Result {
	return New(Config{}).Parse(text)
}

// ParseLines joins recognized lines with a newline and parses the result.
// Line boundaries only matter for item extraction.
func (p *Parser) ParseLines(lines []string) Result {
	return p.Parse(strings.Join(lines, "\n"))
}

// Parse derives all prices, item prices, labeled amounts and a best-guess
// total from raw OCR text. It never fails: garbage in yields empty
// collections and an unknown total.
func (p *Parser) Parse(text string) Result {
	res := Result{
		AllPrices:     []Money{},
		ItemPrices:    []Money{},
		LabeledPrices: []LabeledAmount{},
		Total:         TotalUnknown,
		RawText:       text,
	}

	// Step 1: candidate discovery. Currency-marked pass first, then the bare
	// pass, sharing one seen-set so the merged sequence stays deduplicated.
	// The currency pattern tolerates a zero amount ("$0.00" as printed zero
	// discounts); a standalone bare "0.00" is treated as noise.
	seen := map[Money]struct{}{}
	ceilingAll := p.cfg.CeilingAll * 100
	for _, m := range currencyRE.FindAllStringSubmatch(text, -1) {
		amt, ok := parseAmountToken(m[1])
		if !ok || int64(amt) >= ceilingAll {
			continue
		}
		if _, dup := seen[amt]; dup {
			continue
		}
		seen[amt] = struct{}{}
		res.AllPrices = append(res.AllPrices, amt)
	}
	for _, m := range bareRE.FindAllStringSubmatch(text, -1) {
		amt, ok := parseAmountToken(m[1])
		if !ok || amt <= 0 || int64(amt) >= ceilingAll {
			continue
		}
		if _, dup := seen[amt]; dup {
			continue
		}
		seen[amt] = struct{}{}
		res.AllPrices = append(res.AllPrices, amt)
	}

	// Step 2: labeled amounts. One pattern per label in fixed order, first
	// match in the text only. Dedup is by amount value across labels, so a
	// subtotal and total printing the same figure keep only the subtotal.
	labeledSeen := map[Money]struct{}{}
	for _, rule := range p.cfg.Labels {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amt, ok := parseAmountToken(m[1])
		if !ok {
			continue
		}
		if _, dup := labeledSeen[amt]; dup {
			continue
		}
		labeledSeen[amt] = struct{}{}
		res.LabeledPrices = append(res.LabeledPrices, LabeledAmount{Label: rule.Label, Amount: amt})
	}

	// Step 3: total resolution. An explicitly printed total wins; otherwise
	// fall back to the maximum detected price, which on a receipt is almost
	// always a summary figure.
	if m := strictTotalRE.FindStringSubmatch(text); m != nil {
		if amt, ok := parseAmountToken(m[1]); ok {
			res.Total = amt.String()
		}
	}
	if res.Total == TotalUnknown && len(res.AllPrices) > 0 {
		max := res.AllPrices[0]
		for _, v := range res.AllPrices[1:] {
			if v > max {
				max = v
			}
		}
		res.Total = max.String()
	}

	// Step 4: item extraction. Walk lines top to bottom; the first line with
	// a summary keyword opens the summary zone and the zone never closes, so
	// aggregate figures below it cannot leak into the item list.
	itemSeen := map[Money]struct{}{}
	ceilingItem := p.cfg.CeilingItem * 100
	inSummary := false
	for _, line := range strings.Split(text, "\n") {
		if inSummary {
			continue
		}
		if p.isSummaryLine(line) {
			inSummary = true
			continue
		}
		m := bareRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		amt, ok := parseAmountToken(m[1])
		if !ok || amt <= 0 || int64(amt) >= ceilingItem {
			continue
		}
		if _, dup := itemSeen[amt]; dup {
			continue
		}
		itemSeen[amt] = struct{}{}
		res.ItemPrices = append(res.ItemPrices, amt)
	}

	return res
}

func (p *Parser) isSummaryLine(line string) bool {
	low := strings.ToLower(line)
	for _, kw := range p.cfg.SummaryKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}
