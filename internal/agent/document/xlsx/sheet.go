// Package xlsx parses invoice workbooks laid out as kind A or kind B spreadsheets.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// maxRow bounds every row scan.
const maxRow = 10000

var errNoSheets = errors.New("workbook has no sheets")

// sheet reads cells of the first worksheet of a workbook.
type sheet struct {
	file *excelize.File
	name string
}

func openFirstSheet(data []byte) (*sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, errNoSheets
	}
	return &sheet{file: f, name: sheets[0]}, nil
}

func (s *sheet) Close() error {
	return s.file.Close()
}

// text returns the trimmed formatted value of a cell, or "" when it cannot be read.
func (s *sheet) text(col string, row int) string {
	v, err := s.file.GetCellValue(s.name, fmt.Sprintf("%s%d", col, row))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

// number returns the numeric value of a cell. Empty or non-numeric cells read as 0.
func (s *sheet) number(col string, row int) decimal.Decimal {
	v, err := s.file.GetCellValue(s.name, fmt.Sprintf("%s%d", col, row), excelize.Options{RawCellValue: true})
	if err != nil {
		return decimal.Zero
	}
	return parseNumber(v)
}

// parseNumber reads the stored text of a cell as an exact decimal.
func parseNumber(v string) decimal.Decimal {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// items reads consecutive line-item rows starting at first until the first empty code.
// Columns: A code, C quantity, D unit price, E line total. A missing or zero line total
// falls back to quantity times unit price.
func (s *sheet) items(first int) []models.LineItem {
	items := make([]models.LineItem, 0)
	for r := first; r < maxRow; r++ {
		code := s.text("A", r)
		if code == "" {
			break
		}
		qty := s.number("C", r)
		unit := s.number("D", r)
		total := s.number("E", r)
		if total.IsZero() {
			total = qty.Mul(unit)
		}
		items = append(items, models.LineItem{
			Code:      code,
			Qty:       qty,
			UnitPrice: unit,
			LineTotal: total,
		})
	}
	return items
}
