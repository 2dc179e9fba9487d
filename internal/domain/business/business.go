package business

import "github.com/shopspring/decimal"

// 会社情報（メール・フッターで使う）
const (
	Name         = "DTK Industrial Components Inc."
	SupportEmail = "sales@dtkindustrial.com"
	SupportPhone = "(905) 268-0393"
	AddressLine  = "7-20 Lightbeam Terrace, Brampton, Ontario, L6Y 6H9, Canada"
)

// FooterNote はメールの既定フッター
const FooterNote = Name + " | " + AddressLine + " | " + SupportPhone + " | " + SupportEmail

// 配送料率・税率（小計に対する割合）
var (
	ShippingRate = decimal.RequireFromString("0.10")
	TaxRate      = decimal.RequireFromString("0.13")
)

// 発送までの目安日数
const DispatchETADays = 7
