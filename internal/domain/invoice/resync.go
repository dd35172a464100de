package invoice

import "github.com/sangkips/pharmacy-invoice/internal/domain/entity"

// Resync refreshes the name and price snapshot of every line from the live
// catalog. Quantity and discount are kept; lines whose product is gone are dropped.
func Resync(items []entity.InvoiceItem, products []entity.Product) []entity.InvoiceItem {
	byID := indexProducts(products)
	out := make([]entity.InvoiceItem, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			continue
		}
		it.Name = p.Name
		it.Price = p.Price
		out = append(out, it)
	}
	return out
}
