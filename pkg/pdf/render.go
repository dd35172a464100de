// Package pdf renders invoices as A4 PDF documents. With a UTF-8 TrueType font
// the layout is right to left with Arabic labels; without one it falls back to
// the core Helvetica font and English labels.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// Line is one invoice row
type Line struct {
	Name     string
	Price    float64
	Quantity int
	Discount float64
	Net      float64
}

// Invoice is everything printed on the document
type Invoice struct {
	Reference     string
	Date          time.Time
	PatientName   string
	AllProducts   bool
	Lines         []Line
	Subtotal      float64
	DiscountTotal float64
	GrandTotal    float64
}

// Header identifies the pharmacy
type Header struct {
	StoreName string
	Address   string
	Phone     string
}

type labels struct {
	title, reference, date, patient, allProducts string

	product, price, quantity, discount, net string

	subtotal, discountTotal, grandTotal, noPatient string
}

var arabicLabels = labels{
	title:         "فاتورة",
	reference:     "رقم الفاتورة",
	date:          "التاريخ",
	patient:       "المريض",
	allProducts:   "جميع المنتجات",
	product:       "المنتج",
	price:         "السعر",
	quantity:      "الكمية",
	discount:      "الخصم",
	net:           "الصافي",
	subtotal:      "المجموع الفرعي",
	discountTotal: "إجمالي الخصم",
	grandTotal:    "الإجمالي",
	noPatient:     "-",
}

var englishLabels = labels{
	title:         "Invoice",
	reference:     "Invoice No",
	date:          "Date",
	patient:       "Patient",
	allProducts:   "All products",
	product:       "Product",
	price:         "Price",
	quantity:      "Qty",
	discount:      "Discount",
	net:           "Net",
	subtotal:      "Subtotal",
	discountTotal: "Discount total",
	grandTotal:    "Grand total",
	noPatient:     "-",
}

// column widths in mm, in reading order
var columnWidths = []float64{70, 27, 20, 23, 40}

const (
	pageMargin = 15.0
	rowHeight  = 8.0
)

// Renderer turns invoices into PDF bytes
type Renderer struct {
	fonts  *FontLoader
	header Header
}

// NewRenderer creates a renderer. fonts may be nil for the Helvetica fallback.
func NewRenderer(fonts *FontLoader, header Header) *Renderer {
	return &Renderer{fonts: fonts, header: header}
}

// page carries per-document drawing state
type page struct {
	pdf    *gofpdf.Fpdf
	family string
	rtl    bool
	text   func(string) string
	l      labels
}

// Render draws inv in memory. Nothing is returned unless the whole document
// was produced.
func (r *Renderer) Render(ctx context.Context, inv Invoice) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("pdf: render: %v", rec)
		}
	}()

	var font *Font
	if r.fonts != nil {
		f, err := r.fonts.Load(ctx)
		if err != nil {
			return nil, err
		}
		font = f
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreator(r.header.StoreName, true)
	pdf.SetTitle(inv.Reference, true)

	p := &page{pdf: pdf}
	if font != nil {
		pdf.AddUTF8FontFromBytes(font.Family, "", font.Data)
		pdf.AddUTF8FontFromBytes(font.Family, "B", font.Data)
		p.family, p.rtl, p.text, p.l = font.Family, true, arabicText, arabicLabels
	} else {
		p.family, p.text, p.l = "Helvetica", pdf.UnicodeTranslatorFromDescriptor(""), englishLabels
	}

	pdf.AddPage()
	r.drawHeader(p, inv)
	drawTable(p, inv.Lines)
	drawTotals(p, inv)

	if pdf.Err() {
		return nil, fmt.Errorf("pdf: render: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: output: %w", err)
	}
	return buf.Bytes(), nil
}

// start is the reading-side alignment
func (p *page) start() string {
	if p.rtl {
		return "R"
	}
	return "L"
}

func (p *page) end() string {
	if p.rtl {
		return "L"
	}
	return "R"
}

func (p *page) field(label, value string) string {
	return p.text(label + ": " + value)
}

func (r *Renderer) drawHeader(p *page, inv Invoice) {
	pdf := p.pdf
	width := contentWidth(pdf)

	pdf.SetFont(p.family, "B", 18)
	pdf.CellFormat(width, 10, p.text(r.header.StoreName), "", 1, "C", false, 0, "")

	pdf.SetFont(p.family, "", 10)
	if r.header.Address != "" {
		pdf.CellFormat(width, 6, p.text(r.header.Address), "", 1, "C", false, 0, "")
	}
	if r.header.Phone != "" {
		pdf.CellFormat(width, 6, p.text(r.header.Phone), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(p.family, "B", 14)
	pdf.CellFormat(width, 9, p.text(p.l.title), "", 1, p.start(), false, 0, "")

	patient := inv.PatientName
	switch {
	case inv.AllProducts:
		patient = p.l.allProducts
	case patient == "":
		patient = p.l.noPatient
	}

	pdf.SetFont(p.family, "", 11)
	pdf.CellFormat(width, 7, p.field(p.l.reference, inv.Reference), "", 1, p.start(), false, 0, "")
	pdf.CellFormat(width, 7, p.field(p.l.date, inv.Date.Format("2006-01-02 15:04")), "", 1, p.start(), false, 0, "")
	pdf.CellFormat(width, 7, p.field(p.l.patient, patient), "", 1, p.start(), false, 0, "")
	pdf.Ln(4)
}

// columns returns widths and cell values in drawing (left to right) order
func (p *page) columns(values []string) ([]float64, []string) {
	widths := append([]float64(nil), columnWidths...)
	vals := append([]string(nil), values...)
	if p.rtl {
		for i, j := 0, len(widths)-1; i < j; i, j = i+1, j-1 {
			widths[i], widths[j] = widths[j], widths[i]
			vals[i], vals[j] = vals[j], vals[i]
		}
	}
	return widths, vals
}

func drawTable(p *page, lines []Line) {
	pdf := p.pdf

	pdf.SetFont(p.family, "B", 11)
	pdf.SetFillColor(230, 230, 230)
	widths, heads := p.columns([]string{p.l.product, p.l.price, p.l.quantity, p.l.discount, p.l.net})
	for i, h := range heads {
		pdf.CellFormat(widths[i], rowHeight, p.text(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	nameCol := 0
	if p.rtl {
		nameCol = len(columnWidths) - 1
	}

	pdf.SetFont(p.family, "", 10)
	for _, line := range lines {
		widths, cells := p.columns([]string{
			line.Name,
			Money(line.Price),
			fmt.Sprintf("%d", line.Quantity),
			Percent(line.Discount),
			Money(line.Net),
		})
		for i, c := range cells {
			align := "C"
			if i == nameCol {
				align = p.start()
			}
			pdf.CellFormat(widths[i], rowHeight, p.text(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func drawTotals(p *page, inv Invoice) {
	pdf := p.pdf
	width := contentWidth(pdf)
	labelWidth := width - columnWidths[len(columnWidths)-1]
	valueWidth := columnWidths[len(columnWidths)-1]

	rows := []struct {
		label, value string
		bold         bool
	}{
		{p.l.subtotal, Money(inv.Subtotal), false},
		{p.l.discountTotal, Money(inv.DiscountTotal), false},
		{p.l.grandTotal, Money(inv.GrandTotal), true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont(p.family, style, 11)
		if p.rtl {
			pdf.CellFormat(valueWidth, rowHeight, row.value, "1", 0, "C", false, 0, "")
			pdf.CellFormat(labelWidth, rowHeight, p.text(row.label), "1", 1, "R", false, 0, "")
		} else {
			pdf.CellFormat(labelWidth, rowHeight, p.text(row.label), "1", 0, "R", false, 0, "")
			pdf.CellFormat(valueWidth, rowHeight, row.value, "1", 1, "C", false, 0, "")
		}
	}
}

func contentWidth(pdf *gofpdf.Fpdf) float64 {
	w, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	return w - left - right
}

// Money formats an amount with exactly two decimal places. Non-finite
// values are printed as Go formats them.
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Percent formats a discount percentage without trailing zeros
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64) + "%"
	}
	return decimal.NewFromFloat(v).Round(2).String() + "%"
}
