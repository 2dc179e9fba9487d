package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Kartik-Sangwan/dtk-site/internal/domain/business"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const tagline = "Production-ready hardware for hydraulic and pneumatic cylinders"

type Section struct {
	Heading string
	Body    template.HTML
}

type CTA struct {
	Label string
	Href  string
}

// Email は共通レイアウトに流し込む内容
type Email struct {
	Preheader  string
	Title      string
	Subtitle   string
	Sections   []Section
	CTA        *CTA
	FooterNote string
}

type Field struct {
	Label string
	Value string
}

type layoutData struct {
	Email
	LogoURL string
	Tagline string
}

// Renderer はメールHTMLを組み立てる
type Renderer struct {
	logoURL string
}

// NewRenderer は logoURL が空なら <siteURL>/dtk-final-logo.jpg
func NewRenderer(logoURL, siteURL string) *Renderer {
	if strings.TrimSpace(logoURL) == "" {
		logoURL = strings.TrimRight(siteURL, "/") + "/dtk-final-logo.jpg"
	}
	return &Renderer{logoURL: logoURL}
}

func (r *Renderer) Render(e Email) (string, error) {
	if e.Preheader == "" {
		e.Preheader = e.Title
	}
	if e.FooterNote == "" {
		e.FooterNote = business.FooterNote
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout.html", layoutData{Email: e, LogoURL: r.logoURL, Tagline: tagline}); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// FieldGrid はラベル/値の表
func FieldGrid(fields []Field) template.HTML {
	return fragment("field_grid.html", fields)
}

// Paragraph は改行を保ったままエスケープする
func Paragraph(text string) template.HTML {
	return fragment("paragraph.html", text)
}

func fragment(name string, data any) template.HTML {
	var buf bytes.Buffer
	// 埋め込みテンプレートなので失敗しない
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		panic(fmt.Sprintf("notify: %s: %v", name, err))
	}
	return template.HTML(buf.String())
}
