package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/business"
	"github.com/Kartik-Sangwan/dtk-site/internal/domain/model"

	"github.com/shopspring/decimal"
)

const orderFooterNote = "Reply to this email with your order reference if you need help."

type Config struct {
	SiteURL           string
	CompanyOrderEmail string
	FeedbackToEmail   string
	QuoteToEmail      string
}

// Dispatcher はメールの文面を組み立てて Mailer に渡す
type Dispatcher struct {
	mailer   Mailer
	renderer *Renderer
	cfg      Config
}

func NewDispatcher(mailer Mailer, renderer *Renderer, cfg Config) *Dispatcher {
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	if cfg.CompanyOrderEmail == "" {
		cfg.CompanyOrderEmail = business.SupportEmail
	}
	if cfg.FeedbackToEmail == "" {
		cfg.FeedbackToEmail = business.SupportEmail
	}
	if cfg.QuoteToEmail == "" {
		cfg.QuoteToEmail = cfg.FeedbackToEmail
	}
	return &Dispatcher{mailer: mailer, renderer: renderer, cfg: cfg}
}

func (d *Dispatcher) send(ctx context.Context, to, subject string, e Email, text, replyTo string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	html, err := d.renderer.Render(e)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
		Text:    text,
		ReplyTo: replyTo,
	})
}

func (d *Dispatcher) link(path, token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return d.cfg.SiteURL + path + "?" + q.Encode()
}

// ---- アカウント ----

func (d *Dispatcher) SendVerification(ctx context.Context, to, name, token string) error {
	verifyURL := d.link("/auth/verify", token, to)

	e := Email{
		Preheader: "Verify your DTK account",
		Title:     "Verify Your DTK Account",
		Subtitle:  fmt.Sprintf("Hi %s, confirm your email to activate your account.", name),
		Sections: []Section{{
			Heading: "Account Security",
			Body:    Paragraph("This link expires in 24 hours. If you did not request this signup, you can ignore this email."),
		}},
		CTA: &CTA{Label: "Verify Email", Href: verifyURL},
	}
	text := strings.Join([]string{
		"Hi " + name + ",",
		"",
		"Please verify your email to activate your DTK account:",
		verifyURL,
		"",
		"This link expires in 24 hours.",
	}, "\n")

	return d.send(ctx, to, "Verify your DTK account", e, text, "")
}

func (d *Dispatcher) SendPasswordReset(ctx context.Context, to, name, token string) error {
	if name == "" {
		name = "there"
	}
	resetURL := d.link("/auth/reset", token, to)

	e := Email{
		Preheader: "Password reset request received",
		Title:     "Password Reset Request",
		Subtitle:  fmt.Sprintf("Hi %s, use the secure link below to reset your DTK account password.", name),
		Sections: []Section{{
			Heading: "Reset Link",
			Body:    Paragraph("This link expires in 1 hour. If you did not request this reset, you can ignore this email."),
		}},
		CTA: &CTA{Label: "Reset Password", Href: resetURL},
	}
	text := strings.Join([]string{
		"Hi " + name + ",",
		"",
		"Reset your DTK account password:",
		resetURL,
		"",
		"This link expires in 1 hour.",
	}, "\n")

	return d.send(ctx, to, "Reset your DTK account password", e, text, business.SupportEmail)
}

// ---- 注文 ----

// SendOrderConfirmation は購入者宛て。宛先が無ければ ErrNoRecipient
func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, o model.Order) error {
	e := d.orderEmail(o, "Payment received — your order is confirmed")
	return d.send(ctx, o.ShipEmail, "Order confirmed: "+o.Label(), e, orderText(o, "Your order is confirmed."), business.SupportEmail)
}

// SendCompanyOrderNotice は社内宛て。返信は購入者へ
func (d *Dispatcher) SendCompanyOrderNotice(ctx context.Context, o model.Order) error {
	e := d.orderEmail(o, "New order received")
	return d.send(ctx, d.cfg.CompanyOrderEmail, "New order received: "+o.Label(), e, orderText(o, "A new order was paid."), o.ShipEmail)
}

func (d *Dispatcher) SendShipmentNotice(ctx context.Context, o model.Order) error {
	e := Email{
		Preheader: fmt.Sprintf("Order %s has shipped", o.Label()),
		Title:     "Your order has shipped",
		Subtitle:  fmt.Sprintf("Order %s is on its way.", o.Label()),
		Sections: []Section{
			{Heading: "Tracking", Body: FieldGrid([]Field{
				{Label: "Order", Value: o.Label()},
				{Label: "Tracking", Value: o.TrackingURL},
			})},
			{Heading: "Shipping To", Body: addressGrid(o)},
		},
		CTA:        &CTA{Label: "Track Shipment", Href: o.TrackingURL},
		FooterNote: orderFooterNote,
	}
	text := strings.Join([]string{
		fmt.Sprintf("Order %s has shipped.", o.Label()),
		"",
		"Track your shipment:",
		o.TrackingURL,
	}, "\n")

	return d.send(ctx, o.ShipEmail, "Your order has shipped: "+o.Label(), e, text, business.SupportEmail)
}

type itemRow struct {
	PartNo      string
	Description string
	Qty         int64
	Unit        string
	Line        string
}

type totalsData struct {
	Subtotal     string
	Shipping     string
	Tax          string
	Total        string
	ShippingRate string
	TaxRate      string
	ReceiptURL   string
}

func (d *Dispatcher) orderEmail(o model.Order, headline string) Email {
	rows := make([]itemRow, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, itemRow{
			PartNo:      it.PartNo,
			Description: it.Description,
			Qty:         it.Qty,
			Unit:        Money(it.UnitPriceCents, o.Currency),
			Line:        Money(it.LineTotalCents(), o.Currency),
		})
	}

	totals := totalsData{
		Subtotal:     Money(o.SubtotalCents, o.Currency),
		Shipping:     Money(o.ShippingCents, o.Currency),
		Tax:          Money(o.TaxCents, o.Currency),
		Total:        Money(o.TotalCents, o.Currency),
		ShippingRate: percent(business.ShippingRate),
		TaxRate:      percent(business.TaxRate),
		ReceiptURL:   o.ReceiptURL,
	}

	return Email{
		Preheader: fmt.Sprintf("Order %s payment received", o.Label()),
		Title:     headline,
		Subtitle:  fmt.Sprintf("Order %s | Estimated arrival %s", o.Label(), EstimatedArrival(o.CreatedAt)),
		Sections: []Section{
			{Heading: "Items", Body: fragment("order_items.html", rows)},
			{Heading: "Totals", Body: fragment("order_totals.html", totals)},
			{Heading: "Shipping To", Body: addressGrid(o)},
		},
		FooterNote: orderFooterNote,
	}
}

func addressGrid(o model.Order) template.HTML {
	fields := []Field{{Label: "Name", Value: o.ShipName}}
	if o.ShipCompany != "" {
		fields = append(fields, Field{Label: "Company", Value: o.ShipCompany})
	}
	street := o.ShipLine1
	if o.ShipLine2 != "" {
		street += ", " + o.ShipLine2
	}
	fields = append(fields,
		Field{Label: "Address", Value: street},
		Field{Label: "City", Value: fmt.Sprintf("%s, %s %s", o.ShipCity, o.ShipProvince, o.ShipPostal)},
		Field{Label: "Country", Value: o.ShipCountry},
		Field{Label: "Phone", Value: o.ShipPhone},
	)
	return FieldGrid(fields)
}

func orderText(o model.Order, lead string) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\n\nOrder %s | Estimated arrival %s\n\n", lead, o.Label(), EstimatedArrival(o.CreatedAt))
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%s x%d  %s\n", it.PartNo, it.Qty, Money(it.LineTotalCents(), o.Currency))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nShipping: %s\nTax: %s\nOrder total: %s\n",
		Money(o.SubtotalCents, o.Currency), Money(o.ShippingCents, o.Currency),
		Money(o.TaxCents, o.Currency), Money(o.TotalCents, o.Currency))
	if o.ReceiptURL != "" {
		fmt.Fprintf(&b, "\nStripe receipt: %s\n", o.ReceiptURL)
	}
	return b.String()
}

// ---- 問い合わせ ----

type Feedback struct {
	Name    string
	Email   string
	Phone   string
	Comment string
}

func (d *Dispatcher) ForwardFeedback(ctx context.Context, f Feedback) error {
	e := Email{
		Preheader: "Feedback from " + f.Name,
		Title:     "New Feedback Submission",
		Subtitle:  "A customer submitted feedback from the website.",
		Sections: []Section{
			{Heading: "Contact", Body: FieldGrid([]Field{
				{Label: "Name", Value: f.Name},
				{Label: "Email", Value: f.Email},
				{Label: "Phone", Value: f.Phone},
			})},
			{Heading: "Comment", Body: Paragraph(f.Comment)},
		},
	}
	text := strings.Join([]string{
		"New Feedback Submission",
		"",
		"Name: " + f.Name,
		"Email: " + f.Email,
		"Phone: " + f.Phone,
		"",
		"Comment:",
		f.Comment,
	}, "\n")

	return d.send(ctx, d.cfg.FeedbackToEmail, "DTK Feedback: "+f.Name, e, text, f.Email)
}

type QuoteRequest struct {
	Name    string
	Email   string
	Company string
	PartNo  string
	Qty     string
	NeedBy  string
	Notes   string
}

func (d *Dispatcher) ForwardQuoteRequest(ctx context.Context, q QuoteRequest) error {
	e := Email{
		Preheader: "Quote request for " + q.PartNo,
		Title:     "New Quote Request",
		Subtitle:  "A customer requested pricing and lead time.",
		Sections: []Section{
			{Heading: "Request Details", Body: FieldGrid([]Field{
				{Label: "Part Number", Value: q.PartNo},
				{Label: "Quantity", Value: q.Qty},
				{Label: "Need By", Value: dash(q.NeedBy)},
			})},
			{Heading: "Customer", Body: FieldGrid([]Field{
				{Label: "Name", Value: q.Name},
				{Label: "Email", Value: q.Email},
				{Label: "Company", Value: dash(q.Company)},
			})},
			{Heading: "Notes", Body: Paragraph(dash(q.Notes))},
		},
	}
	text := strings.Join([]string{
		"New quote request",
		"",
		"Name: " + q.Name,
		"Email: " + q.Email,
		"Company: " + dash(q.Company),
		"Part Number: " + q.PartNo,
		"Quantity: " + q.Qty,
		"Need By: " + dash(q.NeedBy),
		"",
		"Notes:",
		dash(q.Notes),
	}, "\n")

	subject := fmt.Sprintf("Quote Request: %s (%s)", q.PartNo, q.Qty)
	return d.send(ctx, d.cfg.QuoteToEmail, subject, e, text, q.Email)
}

// ---- 書式 ----

// Money は "CAD 60.27" の形
func Money(cents int64, currency string) string {
	if currency == "" {
		currency = "CAD"
	}
	return currency + " " + decimal.New(cents, -2).StringFixed(2)
}

// EstimatedArrival は作成日 + 7日
func EstimatedArrival(createdAt time.Time) string {
	return createdAt.AddDate(0, 0, business.DispatchETADays).Format("Jan 2, 2006")
}

func percent(rate decimal.Decimal) string {
	return rate.Shift(2).String() + "%"
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
