package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	UnknownSupplier = "Unknown"
	UnknownCategory = "Uncategorized"
	UnknownClient   = "Unknown"
)

// ItemTotals accumulates quantity and sales for one item code.
type ItemTotals struct {
	Qty   decimal.Decimal `json:"qty"`
	Sales decimal.Decimal `json:"sales"`
}

// PartialAggregate is the aggregate of one chunk, or of any merged set of chunks.
// Amounts are exact decimals so that merging in any grouping gives the same totals.
type PartialAggregate struct {
	TotalSales  decimal.Decimal                       `json:"totalSales"`
	PerSupplier map[string]decimal.Decimal            `json:"perSupplier"`
	PerItem     map[string]ItemTotals                 `json:"perItem"`
	PerCategory map[string]map[string]decimal.Decimal `json:"perCategory"`
	PerClient   map[string]decimal.Decimal            `json:"perClient"`
	Documents   int                                   `json:"documents"`
	Skipped     int                                   `json:"skipped"`
}

// NewPartialAggregate returns an empty aggregate with all maps allocated.
func NewPartialAggregate() *PartialAggregate {
	return &PartialAggregate{
		PerSupplier: make(map[string]decimal.Decimal),
		PerItem:     make(map[string]ItemTotals),
		PerCategory: make(map[string]map[string]decimal.Decimal),
		PerClient:   make(map[string]decimal.Decimal),
	}
}

// Normalize allocates any map left nil by decoding.
func (p *PartialAggregate) Normalize() {
	if p.PerSupplier == nil {
		p.PerSupplier = make(map[string]decimal.Decimal)
	}
	if p.PerItem == nil {
		p.PerItem = make(map[string]ItemTotals)
	}
	if p.PerCategory == nil {
		p.PerCategory = make(map[string]map[string]decimal.Decimal)
	}
	if p.PerClient == nil {
		p.PerClient = make(map[string]decimal.Decimal)
	}
}

// AddSupplier adds sales under supplier, creating the entry on first touch.
func (p *PartialAggregate) AddSupplier(supplier string, sales decimal.Decimal) {
	p.PerSupplier[supplier] = p.PerSupplier[supplier].Add(sales)
}

// AddItem adds qty and sales under code, creating the entry on first touch.
func (p *PartialAggregate) AddItem(code string, qty, sales decimal.Decimal) {
	t := p.PerItem[code]
	t.Qty = t.Qty.Add(qty)
	t.Sales = t.Sales.Add(sales)
	p.PerItem[code] = t
}

// AddCategory adds qty under (category, code), creating both levels on first touch.
func (p *PartialAggregate) AddCategory(category, code string, qty decimal.Decimal) {
	codes, ok := p.PerCategory[category]
	if !ok {
		codes = make(map[string]decimal.Decimal)
		p.PerCategory[category] = codes
	}
	codes[code] = codes[code].Add(qty)
}

// AddClient adds sales under a client key, creating the entry on first touch.
func (p *PartialAggregate) AddClient(key string, sales decimal.Decimal) {
	p.PerClient[key] = p.PerClient[key].Add(sales)
}

// RankedItem is an item in topItemsOverall.
type RankedItem struct {
	Code  string          `json:"code"`
	Qty   decimal.Decimal `json:"qty"`
	Sales decimal.Decimal `json:"sales"`
}

// RankedCode is a code ranked by quantity within a category.
type RankedCode struct {
	Code string          `json:"code"`
	Qty  decimal.Decimal `json:"qty"`
}

// RankedSupplier is a supplier ranked by sales.
type RankedSupplier struct {
	Supplier string          `json:"supplier"`
	Sales    decimal.Decimal `json:"sales"`
}

// RankedClient is a client key ranked by sales.
type RankedClient struct {
	Client string          `json:"client"`
	Sales  decimal.Decimal `json:"sales"`
}

// ReportMeta describes how a FinalAggregate was produced.
type ReportMeta struct {
	GeneratedAt        time.Time `json:"generatedAt"`
	RunID              string    `json:"runId"`
	Documents          int       `json:"files"`
	ProcessedDocuments int       `json:"processedDocuments"`
	SkippedDocuments   int       `json:"skippedDocuments"`
	Chunks             int       `json:"chunks"`
	ChunkSize          int       `json:"chunkSize"`
	MissingChunks      []int     `json:"missingChunks"`
}

// FinalAggregate is the published report. It exists only while the job is completed.
type FinalAggregate struct {
	PartialAggregate
	TopItemsOverall []RankedItem            `json:"topItemsOverall"`
	TopByCategory   map[string][]RankedCode `json:"topByCategory"`
	TopSuppliers    []RankedSupplier        `json:"topSuppliers"`
	TopClients      []RankedClient          `json:"topClients"`
	Meta            ReportMeta              `json:"meta"`
}
