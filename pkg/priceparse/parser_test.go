package priceparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amounts(ms []Money) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.String())
	}
	return out
}

func TestParseLabeledTotal(t *testing.T) {
	res := Parse("Total: $42.50")

	assert.Equal(t, "42.50", res.Total)
	assert.Equal(t, []string{"42.50"}, amounts(res.AllPrices))
	require.Len(t, res.LabeledPrices, 1)
	assert.Equal(t, LabelTotal, res.LabeledPrices[0].Label)
	assert.Equal(t, "42.50", res.LabeledPrices[0].Amount.String())
	assert.Empty(t, res.ItemPrices, "a total line opens the summary zone")
}

func TestParseFullReceipt(t *testing.T) {
	res := Parse("Coffee 3.50\nBagel 2.25\nSubtotal: $5.75\nTax: $0.46\nTotal: $6.21")

	assert.Equal(t, "6.21", res.Total)
	assert.Equal(t, []string{"3.50", "2.25"}, amounts(res.ItemPrices))

	got := map[Label]string{}
	for _, la := range res.LabeledPrices {
		got[la.Label] = la.Amount.String()
	}
	assert.Equal(t, map[Label]string{
		LabelSubtotal: "5.75",
		LabelTotal:    "6.21",
		LabelTax:      "0.46",
	}, got)
}

func TestParseTotalFallbackToMax(t *testing.T) {
	res := Parse("Item A 10.00\nItem B 20.00")

	assert.Equal(t, []string{"10.00", "20.00"}, amounts(res.ItemPrices))
	assert.Equal(t, "20.00", res.Total, "no labeled total, max price wins")
	assert.Empty(t, res.LabeledPrices)
}

func TestParseEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \n\t\n  "} {
		res := Parse(text)
		assert.Empty(t, res.AllPrices)
		assert.Empty(t, res.ItemPrices)
		assert.Empty(t, res.LabeledPrices)
		assert.Equal(t, TotalUnknown, res.Total)
	}
}

func TestParseDeterministic(t *testing.T) {
	text := "Coffee 3.50\nBagel 2.25\nSubtotal: $5.75\nTax: $0.46\nTotal: $6.21"
	assert.Equal(t, Parse(text), Parse(text))
}

func TestParseDeduplicatesByValue(t *testing.T) {
	// The same figure printed with and without a currency mark, twice.
	res := Parse("Widget 4.99\nWidget again $4.99\nonce more 4.99")
	assert.Equal(t, []string{"4.99"}, amounts(res.AllPrices))
	assert.Equal(t, []string{"4.99"}, amounts(res.ItemPrices))
}

func TestParseBareDecimalsWithoutCurrency(t *testing.T) {
	res := Parse("row one 12.00\nrow two 7.35")
	assert.Equal(t, []string{"12.00", "7.35"}, amounts(res.AllPrices))
	assert.Equal(t, "12.00", res.Total)
}

func TestParseRejectsLongFractions(t *testing.T) {
	// More than two fractional digits is never a price, for either pattern.
	res := Parse("weight 1.234 kg\nrate $0.998 per unit")
	assert.Empty(t, res.AllPrices)
	assert.Equal(t, TotalUnknown, res.Total)
}

func TestParseBareDecimalBoundaries(t *testing.T) {
	// No matches inside longer numeric runs such as card or phone numbers.
	res := Parse("card 4111111111.111111\nref 1234567.89")
	assert.Empty(t, res.ItemPrices)
}

func TestParseCeilingAll(t *testing.T) {
	res := Parse("bogus $250000.00\nreal $41.20")
	assert.Equal(t, []string{"41.20"}, amounts(res.AllPrices))
	assert.Equal(t, "41.20", res.Total)
}

func TestParseItemCeiling(t *testing.T) {
	// 1500.00 clears the global ceiling but not the stricter per-item one.
	res := Parse("big thing 1500.00\nsmall thing 3.10")
	assert.Equal(t, []string{"1500.00", "3.10"}, amounts(res.AllPrices))
	assert.Equal(t, []string{"3.10"}, amounts(res.ItemPrices))
}

func TestParseZeroAmountAsymmetry(t *testing.T) {
	// "$0.00" is kept (printed zero discounts are real); a standalone bare
	// "0.00" is noise and rejected.
	withCurrency := Parse("Promo $0.00")
	assert.Equal(t, []string{"0.00"}, amounts(withCurrency.AllPrices))

	bare := Parse("Promo 0.00")
	assert.Empty(t, bare.AllPrices)
}

func TestParseThousandsSeparators(t *testing.T) {
	res := Parse("Total: $1,234.56")
	assert.Equal(t, "1234.56", res.Total)
	assert.Equal(t, []string{"1234.56"}, amounts(res.AllPrices)[:1])
}

func TestParseSummaryZoneNeverReverts(t *testing.T) {
	res := Parse("Coffee 3.50\nSubtotal: 5.75\nAfterthought 1.25\nMints 0.99")
	assert.Equal(t, []string{"3.50"}, amounts(res.ItemPrices),
		"lines after the first summary keyword never contribute items")
}

func TestParseSummaryLinePriceExcludedFromItems(t *testing.T) {
	res := Parse("payment card 12.00")
	assert.Empty(t, res.ItemPrices)
	assert.Equal(t, []string{"12.00"}, amounts(res.AllPrices))
}

func TestParseLabeledValueDedupAcrossLabels(t *testing.T) {
	// Subtotal and Total print the same figure: the subtotal is checked
	// first, so the total label is dropped by the value-level dedup.
	res := Parse("Subtotal: $42.00\nTotal: $42.00")
	require.Len(t, res.LabeledPrices, 1)
	assert.Equal(t, LabelSubtotal, res.LabeledPrices[0].Label)
	assert.Equal(t, "42.00", res.LabeledPrices[0].Amount.String())
	// The strict total pattern still resolves the grand total.
	assert.Equal(t, "42.00", res.Total)
}

func TestParseFirstLabelMatchWins(t *testing.T) {
	res := Parse("Tax: $1.00\nTax: $2.00")
	require.Len(t, res.LabeledPrices, 1)
	assert.Equal(t, "1.00", res.LabeledPrices[0].Amount.String())
}

func TestParseTotalWithoutFractionUsesFallback(t *testing.T) {
	// The labeled-total pattern tolerates a missing fraction, the strict
	// total-resolution pattern does not.
	res := Parse("snack 4.40\nTotal: $6")
	got := map[Label]string{}
	for _, la := range res.LabeledPrices {
		got[la.Label] = la.Amount.String()
	}
	assert.Equal(t, "6.00", got[LabelTotal])
	assert.Equal(t, "6.00", res.Total, "fallback max includes the $6 candidate")
}

func TestParseFirstBareTokenPerLine(t *testing.T) {
	res := Parse("combo 5.25 was 7.99")
	assert.Equal(t, []string{"5.25"}, amounts(res.ItemPrices))
	assert.Equal(t, []string{"5.25", "7.99"}, amounts(res.AllPrices))
}

func TestParseLines(t *testing.T) {
	p := New(Config{})
	res := p.ParseLines([]string{"Coffee 3.50", "Total: $3.50"})
	assert.Equal(t, "Coffee 3.50\nTotal: $3.50", res.RawText)
	assert.Equal(t, "3.50", res.Total)
}

func TestParseConfigOverrides(t *testing.T) {
	p := New(Config{CeilingAll: 50, CeilingItem: 10})
	res := p.Parse("cheap 5.00\npricey 25.00\nabsurd 75.00")
	assert.Equal(t, []string{"5.00", "25.00"}, amounts(res.AllPrices))
	assert.Equal(t, []string{"5.00"}, amounts(res.ItemPrices))
}

func TestParseCustomSummaryKeywords(t *testing.T) {
	p := New(Config{SummaryKeywords: []string{"balance"}})
	res := p.Parse("thing 2.00\nBalance due 9.99\ntotal 3.00")
	// "total" is not a summary keyword for this parser, but the balance line
	// already opened the zone.
	assert.Equal(t, []string{"2.00"}, amounts(res.ItemPrices))
}

func TestParseConcurrentUse(t *testing.T) {
	p := New(Config{})
	text := "Coffee 3.50\nTotal: $3.50"
	want := p.Parse(text)
	done := make(chan Result, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- p.Parse(text) }()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}
