package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// Merge sums parts component-wise into a new aggregate. Scalars add; map keys are
// unioned and shared keys add. Decimal addition is exact, so the result does not
// depend on how the parts were grouped or ordered.
func Merge(parts ...*models.PartialAggregate) *models.PartialAggregate {
	out := models.NewPartialAggregate()
	for _, p := range parts {
		if p == nil {
			continue
		}
		MergeInto(out, p)
	}
	return out
}

// MergeInto adds src into dst.
func MergeInto(dst, src *models.PartialAggregate) {
	dst.Normalize()
	dst.TotalSales = dst.TotalSales.Add(src.TotalSales)
	dst.Documents += src.Documents
	dst.Skipped += src.Skipped

	for supplier, sales := range src.PerSupplier {
		dst.AddSupplier(supplier, sales)
	}
	for code, t := range src.PerItem {
		dst.AddItem(code, t.Qty, t.Sales)
	}
	for cat, codes := range src.PerCategory {
		for code, qty := range codes {
			dst.AddCategory(cat, code, qty)
		}
	}
	for key, sales := range src.PerClient {
		dst.AddClient(key, sales)
	}
}

// FinalizeOptions controls the derived views.
type FinalizeOptions struct {
	TopClients int
	Now        time.Time
}

// Finalize derives the sorted views of a merged aggregate.
func Finalize(merged *models.PartialAggregate, opts FinalizeOptions) *models.FinalAggregate {
	merged.Normalize()
	final := &models.FinalAggregate{
		PartialAggregate: *merged,
		TopItemsOverall:  TopItems(merged.PerItem),
		TopByCategory:    TopByCategory(merged.PerCategory),
		TopSuppliers:     TopSuppliers(merged.PerSupplier),
		TopClients:       TopClients(merged.PerClient, opts.TopClients),
	}
	final.Meta.GeneratedAt = opts.Now
	final.Meta.ProcessedDocuments = merged.Documents
	final.Meta.SkippedDocuments = merged.Skipped
	final.Meta.MissingChunks = []int{}
	return final
}

// TopItems sorts every item by sales descending, ties by code ascending.
func TopItems(perItem map[string]models.ItemTotals) []models.RankedItem {
	out := make([]models.RankedItem, 0, len(perItem))
	for code, t := range perItem {
		out = append(out, models.RankedItem{Code: code, Qty: t.Qty, Sales: t.Sales})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Sales.Cmp(out[j].Sales); c != 0 {
			return c > 0
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// TopByCategory sorts the codes of each category by quantity descending, ties by code.
func TopByCategory(perCategory map[string]map[string]decimal.Decimal) map[string][]models.RankedCode {
	out := make(map[string][]models.RankedCode, len(perCategory))
	for cat, codes := range perCategory {
		ranked := make([]models.RankedCode, 0, len(codes))
		for code, qty := range codes {
			ranked = append(ranked, models.RankedCode{Code: code, Qty: qty})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if c := ranked[i].Qty.Cmp(ranked[j].Qty); c != 0 {
				return c > 0
			}
			return ranked[i].Code < ranked[j].Code
		})
		out[cat] = ranked
	}
	return out
}

// TopSuppliers sorts suppliers by sales descending, ties by name.
func TopSuppliers(perSupplier map[string]decimal.Decimal) []models.RankedSupplier {
	out := make([]models.RankedSupplier, 0, len(perSupplier))
	for supplier, sales := range perSupplier {
		out = append(out, models.RankedSupplier{Supplier: supplier, Sales: sales})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Sales.Cmp(out[j].Sales); c != 0 {
			return c > 0
		}
		return out[i].Supplier < out[j].Supplier
	})
	return out
}

// TopClients sorts client keys by sales descending, ties by key, keeping at most n
// entries when n is positive.
func TopClients(perClient map[string]decimal.Decimal, n int) []models.RankedClient {
	out := make([]models.RankedClient, 0, len(perClient))
	for client, sales := range perClient {
		out = append(out, models.RankedClient{Client: client, Sales: sales})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Sales.Cmp(out[j].Sales); c != 0 {
			return c > 0
		}
		return out[i].Client < out[j].Client
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
