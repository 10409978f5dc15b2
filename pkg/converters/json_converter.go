package converters

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// ExportedReport is the rounded, presentation-only view of a FinalAggregate.
type ExportedReport struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	RunID       string             `json:"runId"`
	TotalSales  float64            `json:"totalSales"`
	Items       []ExportedItem     `json:"items"`
	Suppliers   []ExportedSupplier `json:"suppliers"`
	Categories  []ExportedCategory `json:"categories"`
	Clients     []ExportedClient   `json:"clients"`
	Meta        models.ReportMeta  `json:"meta"`
}

type ExportedItem struct {
	Code  string  `json:"code"`
	Qty   float64 `json:"qty"`
	Sales float64 `json:"sales"`
}

type ExportedSupplier struct {
	Supplier string  `json:"supplier"`
	Sales    float64 `json:"sales"`
}

type ExportedCategory struct {
	Category string         `json:"category"`
	Codes    []ExportedItem `json:"codes"`
}

type ExportedClient struct {
	Client string  `json:"client"`
	Sales  float64 `json:"sales"`
}

// Export rounds every figure of agg to two decimals, keeping the ranked order.
func Export(agg *models.FinalAggregate) *ExportedReport {
	out := &ExportedReport{
		GeneratedAt: agg.Meta.GeneratedAt,
		RunID:       agg.Meta.RunID,
		TotalSales:  Round2(agg.TotalSales),
		Items:       make([]ExportedItem, 0, len(agg.TopItemsOverall)),
		Suppliers:   make([]ExportedSupplier, 0, len(agg.TopSuppliers)),
		Categories:  make([]ExportedCategory, 0, len(agg.TopByCategory)),
		Clients:     make([]ExportedClient, 0, len(agg.TopClients)),
		Meta:        agg.Meta,
	}
	for _, it := range agg.TopItemsOverall {
		out.Items = append(out.Items, ExportedItem{Code: it.Code, Qty: Round2(it.Qty), Sales: Round2(it.Sales)})
	}
	for _, s := range agg.TopSuppliers {
		out.Suppliers = append(out.Suppliers, ExportedSupplier{Supplier: s.Supplier, Sales: Round2(s.Sales)})
	}

	cats := make([]string, 0, len(agg.TopByCategory))
	for c := range agg.TopByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		ec := ExportedCategory{Category: c, Codes: make([]ExportedItem, 0, len(agg.TopByCategory[c]))}
		for _, rc := range agg.TopByCategory[c] {
			ec.Codes = append(ec.Codes, ExportedItem{Code: rc.Code, Qty: Round2(rc.Qty)})
		}
		out.Categories = append(out.Categories, ec)
	}

	for _, c := range agg.TopClients {
		out.Clients = append(out.Clients, ExportedClient{Client: c.Client, Sales: Round2(c.Sales)})
	}
	return out
}

type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

func (c *JSONConverter) Convert(agg *models.FinalAggregate) ([]byte, error) {
	if agg == nil {
		return nil, fmt.Errorf("no report to convert")
	}
	data, err := json.MarshalIndent(Export(agg), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

func (c *JSONConverter) ContentType() string { return "application/json" }
func (c *JSONConverter) Extension() string   { return ".json" }
