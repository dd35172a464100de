package invoice

import "github.com/sangkips/pharmacy-invoice/internal/domain/entity"

// UpdateItem replaces the line whose product id matches item.ProductID.
// Callers clamp the discount and coerce the quantity first.
func UpdateItem(items []entity.InvoiceItem, item entity.InvoiceItem) []entity.InvoiceItem {
	out := make([]entity.InvoiceItem, len(items))
	for i, it := range items {
		if it.ProductID == item.ProductID {
			out[i] = item
			continue
		}
		out[i] = it
	}
	return out
}

// RemoveItem drops the line for productID, if any
func RemoveItem(items []entity.InvoiceItem, productID string) []entity.InvoiceItem {
	out := make([]entity.InvoiceItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}

// AddItem appends a line for product with quantity 1 and no discount.
// Adding a product that is already on the invoice changes nothing.
func AddItem(items []entity.InvoiceItem, product entity.Product) []entity.InvoiceItem {
	out := make([]entity.InvoiceItem, len(items), len(items)+1)
	copy(out, items)
	if containsProduct(items, product.ID) {
		return out
	}
	return append(out, newItem(product))
}

// FindItem returns the line for productID
func FindItem(items []entity.InvoiceItem, productID string) (entity.InvoiceItem, bool) {
	for _, it := range items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return entity.InvoiceItem{}, false
}

func containsProduct(items []entity.InvoiceItem, productID string) bool {
	_, ok := FindItem(items, productID)
	return ok
}
