// Package aggregate folds invoices into chunk aggregates and merges them into the
// published report.
package aggregate

import (
	"strings"

	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/internal/resolver"
)

// Resolver maps an item code to its supplier and category.
type Resolver interface {
	Resolve(code string) resolver.Resolution
}

// Aggregate folds invoices into a new PartialAggregate. It is a pure function of its
// inputs, so re-running it over the same chunk yields an equal result.
func Aggregate(invoices []models.Invoice, res Resolver) *models.PartialAggregate {
	agg := models.NewPartialAggregate()
	for i := range invoices {
		Add(agg, &invoices[i], res)
	}
	return agg
}

// Add folds a single invoice into agg.
func Add(agg *models.PartialAggregate, inv *models.Invoice, res Resolver) {
	agg.TotalSales = agg.TotalSales.Add(inv.InvoiceTotal)
	agg.AddClient(ClientKey(inv), inv.InvoiceTotal)
	agg.Documents++

	for _, it := range inv.Items {
		r := res.Resolve(it.Code)
		agg.AddSupplier(r.Supplier, it.LineTotal)
		agg.AddItem(it.Code, it.Qty, it.LineTotal)
		agg.AddCategory(r.Category, it.Code, it.Qty)
	}
}

// ClientKey identifies the buyer: phone first, then name, then "Unknown".
func ClientKey(inv *models.Invoice) string {
	if phone := strings.TrimSpace(inv.Phone); phone != "" {
		return phone
	}
	if name := strings.TrimSpace(inv.Client); name != "" {
		return name
	}
	return models.UnknownClient
}
