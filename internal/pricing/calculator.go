package pricing

import (
	"context"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/business"
	"github.com/Kartik-Sangwan/dtk-site/internal/inventory"

	"github.com/shopspring/decimal"
)

// DefaultCurrency は請求通貨の既定値
const DefaultCurrency = "CAD"

type Line struct {
	PartNo string
	Qty    int64
}

// PricedLine は在庫表の単価で計算した行。在庫に無い部品は Priced=false（単価0）
type PricedLine struct {
	PartNo         string
	Name           string
	Qty            int64
	QtyOnHand      int64
	UnitPriceCents int64
	LineTotalCents int64
	Priced         bool
}

// Summary は金額をすべてセントで持つ
type Summary struct {
	Currency      string
	Lines         []PricedLine
	PricedCount   int
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	TotalCents    int64
}

type Calculator struct {
	inv          inventory.Finder
	shippingRate decimal.Decimal
	taxRate      decimal.Decimal
}

// DI
func NewCalculator(inv inventory.Finder) *Calculator {
	return NewCalculatorWithRates(inv, business.ShippingRate, business.TaxRate)
}

func NewCalculatorWithRates(inv inventory.Finder, shippingRate, taxRate decimal.Decimal) *Calculator {
	return &Calculator{inv: inv, shippingRate: shippingRate, taxRate: taxRate}
}

// Summarize はクライアントの価格を使わず、在庫表から単価を引き直す
func (c *Calculator) Summarize(ctx context.Context, lines []Line) (Summary, error) {
	kept := make([]Line, 0, len(lines))
	partNos := make([]string, 0, len(lines))
	for _, l := range lines {
		p := strings.TrimSpace(l.PartNo)
		if p == "" || l.Qty <= 0 {
			continue
		}
		kept = append(kept, Line{PartNo: p, Qty: l.Qty})
		partNos = append(partNos, p)
	}

	rows, err := c.inv.FindMany(ctx, partNos)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{Currency: DefaultCurrency, Lines: make([]PricedLine, 0, len(kept))}
	for _, l := range kept {
		pl := PricedLine{PartNo: l.PartNo, Name: l.PartNo, Qty: l.Qty}

		if row := rows[l.PartNo]; row != nil {
			if row.Description != "" {
				pl.Name = row.Description
			}
			pl.QtyOnHand = row.QtyOnHand
			pl.UnitPriceCents = row.PriceCents()
			pl.Priced = pl.UnitPriceCents > 0
		}
		pl.LineTotalCents = pl.UnitPriceCents * pl.Qty

		if pl.Priced {
			s.PricedCount++
		}
		s.SubtotalCents += pl.LineTotalCents
		s.Lines = append(s.Lines, pl)
	}

	s.ShippingCents, s.TaxCents, s.TotalCents = c.Totals(s.SubtotalCents)
	return s, nil
}

// Totals は送料・税をそれぞれ小計から丸める（合計では丸めない）
func (c *Calculator) Totals(subtotalCents int64) (shipping, tax, total int64) {
	shipping = ApplyRate(subtotalCents, c.shippingRate)
	tax = ApplyRate(subtotalCents, c.taxRate)
	return shipping, tax, subtotalCents + shipping + tax
}

// ApplyRate は round_half_up(cents × rate)
func ApplyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}

// Major はセント → 通貨単位（表示・旧クライアント用）
func Major(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
