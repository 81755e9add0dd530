package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

// DefaultTaxRatePct is the VAT rate applied when none is configured.
const DefaultTaxRatePct = 15.0

// LineInput describes one billable line before calculation. Exactly one of
// DiscountPct / DiscountAmount is honoured; DiscountPct wins when both are set.
type LineInput struct {
	Description    string
	Quantity       float64
	UnitPrice      float64
	DiscountPct    float64
	DiscountAmount float64
	TaxExempt      bool
}

// LineTotals is the calculated money breakdown for a single line.
type LineTotals struct {
	Gross    float64 // quantity * unit price
	Discount float64 // applied discount, clamped
	Net      float64 // gross - discount
	UnitNet  float64 // per-unit price after discount
	VAT      float64
	Total    float64
}

// Totals aggregates line totals for a document.
type Totals struct {
	Subtotal   float64 // sum of gross amounts
	Discount   float64
	VAT        float64
	GrandTotal float64
}

var (
	dZero    = decimal.Zero
	dHundred = decimal.NewFromInt(100)
)

// ComputeLine calculates one line. Percentage discounts are clamped to
// [0,100], fixed discounts to [0, gross]; the net amount can never go
// negative. VAT applies to the discounted amount unless the line is exempt.
func ComputeLine(in LineInput, taxRatePct float64) (LineTotals, error) {
	if in.Quantity <= 0 {
		return LineTotals{}, shared.Invalid("quantity", "must be greater than zero")
	}
	if in.UnitPrice < 0 {
		return LineTotals{}, shared.Invalid("unitPrice", "must not be negative")
	}

	gross := mul(in.Quantity, in.UnitPrice)

	var discount decimal.Decimal
	if in.DiscountPct != 0 {
		pct := clamp(decimal.NewFromFloat(in.DiscountPct), dZero, dHundred)
		discount = gross.Mul(pct).Div(dHundred)
	} else if in.DiscountAmount != 0 {
		discount = clamp(decimal.NewFromFloat(in.DiscountAmount), dZero, gross)
	}

	net := gross.Sub(discount)

	var vat decimal.Decimal
	if !in.TaxExempt && taxRatePct > 0 {
		vat = net.Mul(decimal.NewFromFloat(taxRatePct)).Div(dHundred)
	}

	unitNet := net.Div(decimal.NewFromFloat(in.Quantity))

	return LineTotals{
		Gross:    round2d(gross),
		Discount: round2d(discount),
		Net:      round2d(net),
		UnitNet:  round2d(unitNet),
		VAT:      round2d(vat),
		Total:    round2d(net.Add(vat)),
	}, nil
}

// ComputeTotals calculates every line and the document aggregate.
func ComputeTotals(lines []LineInput, taxRatePct float64) (Totals, []LineTotals, error) {
	if len(lines) == 0 {
		return Totals{}, nil, shared.Invalid("lines", "at least one line item required")
	}

	perLine := make([]LineTotals, 0, len(lines))
	var subtotal, discount, vat, grand decimal.Decimal
	for _, in := range lines {
		lt, err := ComputeLine(in, taxRatePct)
		if err != nil {
			return Totals{}, nil, err
		}
		perLine = append(perLine, lt)
		subtotal = subtotal.Add(decimal.NewFromFloat(lt.Gross))
		discount = discount.Add(decimal.NewFromFloat(lt.Discount))
		vat = vat.Add(decimal.NewFromFloat(lt.VAT))
		grand = grand.Add(decimal.NewFromFloat(lt.Total))
	}

	return Totals{
		Subtotal:   round2d(subtotal),
		Discount:   round2d(discount),
		VAT:        round2d(vat),
		GrandTotal: round2d(grand),
	}, perLine, nil
}
