package converters

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

const (
	SheetSummary    = "Summary"
	SheetItems      = "Items"
	SheetSuppliers  = "Suppliers"
	SheetCategories = "Categories"
	SheetClients    = "Clients"
)

// XLSXConverter writes the report as a workbook with one sheet per ranking.
type XLSXConverter struct{}

func NewXLSXConverter() *XLSXConverter {
	return &XLSXConverter{}
}

func (c *XLSXConverter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (c *XLSXConverter) Extension() string { return ".xlsx" }

func (c *XLSXConverter) Convert(agg *models.FinalAggregate) ([]byte, error) {
	if agg == nil {
		return nil, fmt.Errorf("no report to convert")
	}
	rep := Export(agg)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetItems, SheetSuppliers, SheetCategories, SheetClients} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	w := &sheetWriter{f: f, bold: bold}
	missing := make([]string, len(rep.Meta.MissingChunks))
	for i, m := range rep.Meta.MissingChunks {
		missing[i] = fmt.Sprint(m)
	}
	w.rows(SheetSummary, []interface{}{"Field", "Value"}, [][]interface{}{
		{"Generated at", rep.GeneratedAt.UTC().Format(time.RFC3339)},
		{"Run", rep.RunID},
		{"Total sales", rep.TotalSales},
		{"Files", rep.Meta.Documents},
		{"Processed", rep.Meta.ProcessedDocuments},
		{"Skipped", rep.Meta.SkippedDocuments},
		{"Chunks", rep.Meta.Chunks},
		{"Missing chunks", strings.Join(missing, ",")},
	})

	items := make([][]interface{}, len(rep.Items))
	for i, it := range rep.Items {
		items[i] = []interface{}{it.Code, it.Qty, it.Sales}
	}
	w.rows(SheetItems, []interface{}{"Code", "Qty", "Sales"}, items)

	suppliers := make([][]interface{}, len(rep.Suppliers))
	for i, s := range rep.Suppliers {
		suppliers[i] = []interface{}{s.Supplier, s.Sales}
	}
	w.rows(SheetSuppliers, []interface{}{"Supplier", "Sales"}, suppliers)

	var cats [][]interface{}
	for _, c := range rep.Categories {
		for _, code := range c.Codes {
			cats = append(cats, []interface{}{c.Category, code.Code, code.Qty})
		}
	}
	w.rows(SheetCategories, []interface{}{"Category", "Code", "Qty"}, cats)

	clients := make([][]interface{}, len(rep.Clients))
	for i, c := range rep.Clients {
		clients[i] = []interface{}{c.Client, c.Sales}
	}
	w.rows(SheetClients, []interface{}{"Client", "Sales"}, clients)

	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so sheets can be written back to back.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) rows(sheet string, header []interface{}, rows [][]interface{}) {
	if w.err != nil {
		return
	}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		w.err = fmt.Errorf("failed to write %s header: %w", sheet, err)
		return
	}
	if err := w.f.SetRowStyle(sheet, 1, 1, w.bold); err != nil {
		w.err = fmt.Errorf("failed to style %s header: %w", sheet, err)
		return
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			w.err = fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
			return
		}
	}
}
