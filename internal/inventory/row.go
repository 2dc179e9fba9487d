package inventory

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Row は在庫表の1行。アプリからは読み取り専用
type Row struct {
	Item           string
	Description    string
	QtyOnHand      int64
	Price          decimal.Decimal
	CustomerPartNo string
}

// PriceCents は round(price×100)
func (r Row) PriceCents() int64 {
	return r.Price.Shift(2).Round(0).IntPart()
}

// Priced は価格が0でないか
func (r Row) Priced() bool {
	return !r.Price.IsZero()
}

// NormalizePartNo は前後空白を落として大文字化し、英数字以外を除く
func NormalizePartNo(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// isBetter は価格あり > 価格なし、同じなら在庫あり > 在庫なし
func isBetter(next, current Row) bool {
	if !current.Priced() && next.Priced() {
		return true
	}
	if current.Priced() && !next.Priced() {
		return false
	}
	if current.QtyOnHand <= 0 && next.QtyOnHand > 0 {
		return true
	}
	return false
}
