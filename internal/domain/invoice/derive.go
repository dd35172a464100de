// Package invoice holds the invoice computation and synchronization rules:
// derivation from a patient's standing order, line editing, totals and
// save-back. Every function is pure and returns fresh slices.
package invoice

import "github.com/sangkips/pharmacy-invoice/internal/domain/entity"

// Derive builds the working invoice for a selection.
//
// "all" yields one line per catalog product with quantity 1 and no discount.
// A patient id yields one line per saved medication of that patient using the
// saved quantity and discount; medications whose product no longer exists are
// skipped. An empty selection yields an empty invoice.
//
// The result always replaces the previous working invoice.
func Derive(selectedPatientID string, products []entity.Product, medications []entity.PatientMedication) []entity.InvoiceItem {
	items := []entity.InvoiceItem{}

	switch selectedPatientID {
	case "":
		return items
	case entity.AllPatients:
		for _, p := range products {
			items = append(items, newItem(p))
		}
		return items
	}

	byID := indexProducts(products)
	for _, m := range medications {
		if m.PatientID != selectedPatientID {
			continue
		}
		p, ok := byID[m.ProductID]
		if !ok {
			continue
		}
		if containsProduct(items, p.ID) {
			continue
		}
		items = append(items, entity.InvoiceItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  m.Quantity,
			Discount:  m.Discount,
		})
	}
	return items
}

func newItem(p entity.Product) entity.InvoiceItem {
	return entity.InvoiceItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  1,
		Discount:  0,
	}
}

func indexProducts(products []entity.Product) map[string]entity.Product {
	byID := make(map[string]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID
}
