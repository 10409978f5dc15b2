package xlsx

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/models"
)

const subtotalLabel = "SUB-TOTAL USD"

// KindBParser reads "IPEC Invoice XXX-YYYY" workbooks: B3 client, B4 phone, line items
// from row 9, invoice total in column E of the first row from 11 whose column D
// contains "SUB-TOTAL USD".
type KindBParser struct{}

func NewKindBParser() *KindBParser {
	return &KindBParser{}
}

func (p *KindBParser) Kind() models.Kind {
	return models.KindB
}

func (p *KindBParser) Parse(ctx context.Context, data []byte) (*models.Invoice, error) {
	s, err := openFirstSheet(data)
	if err != nil {
		return nil, apperr.Parse("parse kind B", err)
	}
	defer s.Close()

	return &models.Invoice{
		Client:       s.text("B", 3),
		Phone:        s.text("B", 4),
		InvoiceTotal: s.subtotal(),
		Items:        s.items(9),
	}, nil
}

func (s *sheet) subtotal() decimal.Decimal {
	rows, err := s.file.GetRows(s.name)
	if err != nil {
		return decimal.Zero
	}
	last := len(rows)
	if last > maxRow {
		last = maxRow
	}
	for r := 11; r <= last; r++ {
		if strings.Contains(strings.ToUpper(s.text("D", r)), subtotalLabel) {
			return s.number("E", r)
		}
	}
	return decimal.Zero
}
