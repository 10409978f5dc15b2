package agent

import (
	"fmt"

	"github.com/feichai0017/invoice-aggregator/internal/agent/document"
	"github.com/feichai0017/invoice-aggregator/internal/agent/document/xlsx"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

// ParserFactory hands out the parser registered for a document kind.
type ParserFactory struct {
	parsers map[models.Kind]document.Parser
	logger  logger.Logger
}

// NewParserFactory registers the given parsers, or the kind A and kind B workbook
// parsers when none are given.
func NewParserFactory(log logger.Logger, parsers ...document.Parser) *ParserFactory {
	if len(parsers) == 0 {
		parsers = []document.Parser{
			xlsx.NewKindAParser(),
			xlsx.NewKindBParser(),
		}
	}
	f := &ParserFactory{
		parsers: make(map[models.Kind]document.Parser, len(parsers)),
		logger:  log.Named("parsers"),
	}
	for _, p := range parsers {
		f.parsers[p.Kind()] = p
	}
	return f
}

func (f *ParserFactory) GetParser(kind models.Kind) (document.Parser, error) {
	p, ok := f.parsers[kind]
	if !ok {
		f.logger.Error("No parser registered",
			logger.String("kind", string(kind)),
		)
		return nil, fmt.Errorf("no parser for document kind %q", kind)
	}
	return p, nil
}
