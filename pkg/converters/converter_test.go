package converters

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/invoice-aggregator/internal/aggregate"
	"github.com/feichai0017/invoice-aggregator/internal/models"
)

func sampleReport() *models.FinalAggregate {
	p := models.NewPartialAggregate()
	p.TotalSales = d("3.576")
	p.AddItem("TK001", d("1.5"), d("2.346"))
	p.AddItem("CB10", d("2"), d("1.234"))
	p.AddSupplier("Acme", d("2.346"))
	p.AddSupplier("Cablex", d("1.234"))
	p.AddCategory("Tools", "TK001", d("1.5"))
	p.AddCategory("Cables", "CB10", d("2"))
	p.AddClient("555-1", d("3.576"))
	p.Documents = 2

	final := aggregate.Finalize(p, aggregate.FinalizeOptions{
		TopClients: 10,
		Now:        time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	})
	final.Meta.RunID = "run-1"
	final.Meta.MissingChunks = []int{2, 5}
	return final
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 2.35, Round2(d("2.346")))
	assert.Equal(t, 2.35, Round2(d("2.345")))
	assert.Equal(t, 1.23, Round2(d("1.234")))
	assert.Equal(t, -1.01, Round2(d("-1.005")))
	assert.Equal(t, 0.0, Round2(decimal.Zero))
}

func TestJSONConverter(t *testing.T) {
	data, err := NewJSONConverter().Convert(sampleReport())
	require.NoError(t, err)

	var got ExportedReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3.58, got.TotalSales)
	assert.Equal(t, []ExportedItem{{"TK001", 1.5, 2.35}, {"CB10", 2, 1.23}}, got.Items)
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "Cables", got.Categories[0].Category)
	assert.Equal(t, "run-1", got.RunID)
}

func TestXLSXConverter(t *testing.T) {
	c := NewXLSXConverter()
	data, err := c.Convert(sampleReport())
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", c.Extension())

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetItems, SheetSuppliers, SheetCategories, SheetClients}, f.GetSheetList())

	cell := func(sheet, addr string) string {
		v, err := f.GetCellValue(sheet, addr)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Code", cell(SheetItems, "A1"))
	assert.Equal(t, "TK001", cell(SheetItems, "A2"))
	assert.Equal(t, "2.35", cell(SheetItems, "C2"))
	assert.Equal(t, "Acme", cell(SheetSuppliers, "A2"))
	assert.Equal(t, "Cables", cell(SheetCategories, "A2"))
	assert.Equal(t, "555-1", cell(SheetClients, "A2"))
	assert.Equal(t, "3.58", cell(SheetSummary, "B4"))
	assert.Equal(t, "2,5", cell(SheetSummary, "B9"))
}

func TestConvertNil(t *testing.T) {
	_, err := NewXLSXConverter().Convert(nil)
	assert.Error(t, err)
	_, err = NewJSONConverter().Convert(nil)
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	c, err := ForFormat("")
	require.NoError(t, err)
	assert.IsType(t, &XLSXConverter{}, c)

	c, err = ForFormat("json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", c.ContentType())

	_, err = ForFormat("pdf")
	assert.Error(t, err)
}
