package converters

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// ReportConverter renders a published report for download.
type ReportConverter interface {
	Convert(agg *models.FinalAggregate) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the converter registered for format ("xlsx" or "json").
func ForFormat(format string) (ReportConverter, error) {
	switch format {
	case "", "xlsx":
		return NewXLSXConverter(), nil
	case "json":
		return NewJSONConverter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// Round2 rounds money and quantities half away from zero for presentation only.
// Stored aggregates are never rounded.
func Round2(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}
