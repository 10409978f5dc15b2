package document

import (
	"context"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// Parser converts one raw invoice document into an Invoice.
// Unreadable documents are reported as errors; callers decide whether to skip them.
type Parser interface {
	// Kind is the document layout this parser understands.
	Kind() models.Kind

	// Parse reads the raw document bytes.
	Parse(ctx context.Context, data []byte) (*models.Invoice, error)
}
