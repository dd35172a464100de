package invoice

import "github.com/sangkips/pharmacy-invoice/internal/domain/entity"

// LineNet is the line amount after its percentage discount
func LineNet(item entity.InvoiceItem) float64 {
	return item.Price * float64(item.Quantity) * (1 - item.Discount/100)
}

// LineGross is the line amount before discount
func LineGross(item entity.InvoiceItem) float64 {
	return item.Price * float64(item.Quantity)
}

// ComputeTotals derives subtotal, discount and grand total from the lines.
// Values are not rounded; formatting is left to presentation.
func ComputeTotals(items []entity.InvoiceItem) entity.Totals {
	var subtotal, grand float64
	for _, it := range items {
		subtotal += LineGross(it)
		grand += LineNet(it)
	}
	return entity.Totals{
		Subtotal:      subtotal,
		DiscountTotal: subtotal - grand,
		GrandTotal:    grand,
	}
}
