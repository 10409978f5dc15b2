package xlsx

import (
	"context"

	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// KindAParser reads "INV-XXX-YYYY" workbooks: B3 client, B5 phone, B8 invoice total,
// line items from row 12.
type KindAParser struct{}

func NewKindAParser() *KindAParser {
	return &KindAParser{}
}

func (p *KindAParser) Kind() models.Kind {
	return models.KindA
}

func (p *KindAParser) Parse(ctx context.Context, data []byte) (*models.Invoice, error) {
	s, err := openFirstSheet(data)
	if err != nil {
		return nil, apperr.Parse("parse kind A", err)
	}
	defer s.Close()

	return &models.Invoice{
		Client:       s.text("B", 3),
		Phone:        s.text("B", 5),
		InvoiceTotal: s.number("B", 8),
		Items:        s.items(12),
	}, nil
}
