package printer

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
)

// ESC/POS command bytes
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Text alignment
const (
	AlignLeft   = 0
	AlignCenter = 1
)

// Character size
const (
	FontNormal = 0x00
	FontDouble = 0x11
)

// Document builds an ESC/POS byte stream for thermal printers. Widths are
// measured in printer cells, so wide and combining runes line up.
type Document struct {
	buf   bytes.Buffer
	width int
}

// NewDocument creates a new ESC/POS document with the given character width.
// Common widths: 32 for 58mm paper, 48 for 80mm paper.
func NewDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = 32
	}
	d := &Document{width: charWidth}
	d.buf.Write([]byte{ESC, '@'})
	return d
}

// Feed sends n line feeds.
func (d *Document) Feed(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(LF)
	}
	return d
}

// SetAlign sets text alignment: AlignLeft or AlignCenter.
func (d *Document) SetAlign(align int) *Document {
	d.buf.Write([]byte{ESC, 'a', byte(align)})
	return d
}

// SetBold enables or disables bold text.
func (d *Document) SetBold(on bool) *Document {
	b := byte(0)
	if on {
		b = 1
	}
	d.buf.Write([]byte{ESC, 'E', b})
	return d
}

// SetFontSize sets the character size.
func (d *Document) SetFontSize(size byte) *Document {
	d.buf.Write([]byte{GS, '!', size})
	return d
}

// Line writes s truncated to the paper width, followed by a line feed.
func (d *Document) Line(s string) *Document {
	d.buf.WriteString(runewidth.Truncate(s, d.width, "…"))
	d.buf.WriteByte(LF)
	return d
}

// Separator prints a full-width rule.
func (d *Document) Separator(char byte) *Document {
	d.buf.WriteString(strings.Repeat(string(char), d.width))
	d.buf.WriteByte(LF)
	return d
}

// KeyValue prints a left-aligned key and right-aligned value on one line.
func (d *Document) KeyValue(key, value string) *Document {
	spaces := d.width - runewidth.StringWidth(key) - runewidth.StringWidth(value)
	if spaces < 1 {
		spaces = 1
	}
	d.buf.WriteString(key)
	d.buf.WriteString(strings.Repeat(" ", spaces))
	d.buf.WriteString(value)
	d.buf.WriteByte(LF)
	return d
}

// Row prints cells in fixed columns. A negative width right-aligns its cell;
// cells that do not fit are cut.
func (d *Document) Row(widths []int, cells ...string) *Document {
	var b strings.Builder
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		w, right := widths[i], false
		if w < 0 {
			w, right = -w, true
		}
		cell = runewidth.Truncate(cell, w, "")
		if right {
			b.WriteString(runewidth.FillLeft(cell, w))
		} else {
			b.WriteString(runewidth.FillRight(cell, w))
		}
	}
	d.buf.WriteString(strings.TrimRight(b.String(), " "))
	d.buf.WriteByte(LF)
	return d
}

// Item prints one invoice line: the product name on its own line, then
// quantity, unit price, discount and net amount in columns.
//
//	Paracetamol 500mg
//	  3 x 10.00   -10%       27.00
func (d *Document) Item(name string, qty int, unitPrice, discount, net float64) *Document {
	d.Line(name)

	left := "  " + strconv.Itoa(qty) + " x " + Money(unitPrice)
	disc := ""
	if discount > 0 {
		disc = "-" + Percent(discount)
	}
	rest := d.width - runewidth.StringWidth(left)
	discWidth := runewidth.StringWidth(disc) + 2
	if rest-discWidth < runewidth.StringWidth(Money(net))+1 {
		// too narrow for three columns
		if disc != "" {
			left += " " + disc
		}
		return d.KeyValue(left, Money(net))
	}
	return d.Row([]int{runewidth.StringWidth(left), -discWidth, -(rest - discWidth)}, left, disc, Money(net))
}

// Money formats an amount with exactly two decimal places.
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Percent formats a discount rate without trailing zeros.
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64) + "%"
	}
	return decimal.NewFromFloat(v).Round(2).String() + "%"
}

// PartialCut sends the partial cut command.
func (d *Document) PartialCut() *Document {
	d.buf.Write([]byte{GS, 'V', 0x01})
	return d
}

// Bytes returns the accumulated ESC/POS byte stream.
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}
