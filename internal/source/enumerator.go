// Package source enumerates the invoice documents of the configured locations.
package source

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

// Lister pages through the entries of a location.
type Lister interface {
	List(ctx context.Context, location, token string) (*models.SourcePage, error)
}

// Location is one listing root and the name pattern that selects its documents.
type Location struct {
	ID      string
	Kind    models.Kind
	Pattern *regexp.Regexp
}

// LocationsFromConfig returns the kind A and kind B locations, in that order.
func LocationsFromConfig(cfg config.SourceConfig) ([]Location, error) {
	a, err := regexp.Compile(cfg.LocationA.Pattern)
	if err != nil {
		return nil, apperr.New(apperr.KindConfiguration, "source", "invalid kind A pattern", err)
	}
	b, err := regexp.Compile(cfg.LocationB.Pattern)
	if err != nil {
		return nil, apperr.New(apperr.KindConfiguration, "source", "invalid kind B pattern", err)
	}
	return []Location{
		{ID: cfg.LocationA.ID, Kind: models.KindA, Pattern: a},
		{ID: cfg.LocationB.ID, Kind: models.KindB, Pattern: b},
	}, nil
}

type Enumerator struct {
	lister    Lister
	locations []Location
	logger    logger.Logger
}

func NewEnumerator(lister Lister, locations []Location, log logger.Logger) *Enumerator {
	return &Enumerator{lister: lister, locations: locations, logger: log}
}

// Enumerate lists every location to exhaustion and returns the matching documents,
// de-duplicated by id (first location wins) and ordered by modification time
// descending, ties by id. Any listing failure aborts the whole enumeration.
func (e *Enumerator) Enumerate(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	seen := make(map[string]struct{})

	for _, loc := range e.locations {
		found, err := e.listLocation(ctx, loc)
		if err != nil {
			return nil, apperr.SourceAccess("enumerate", err)
		}
		for _, d := range found {
			if _, dup := seen[d.ID]; dup {
				continue
			}
			seen[d.ID] = struct{}{}
			docs = append(docs, d)
		}
		e.logger.Debug("Listed location",
			logger.String("location", loc.ID),
			logger.String("kind", string(loc.Kind)),
			logger.Int("matched", len(found)),
		)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].ModifiedAt.Equal(docs[j].ModifiedAt) {
			return docs[i].ModifiedAt.After(docs[j].ModifiedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

func (e *Enumerator) listLocation(ctx context.Context, loc Location) ([]models.Document, error) {
	var (
		out   []models.Document
		token string
	)
	for {
		page, err := e.lister.List(ctx, loc.ID, token)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", loc.ID, err)
		}
		for _, entry := range page.Entries {
			if !loc.Pattern.MatchString(entry.Name) {
				continue
			}
			out = append(out, models.Document{
				ID:         entry.ID,
				Name:       entry.Name,
				Kind:       loc.Kind,
				ModifiedAt: entry.ModifiedAt,
			})
		}
		if page.NextToken == "" {
			return out, nil
		}
		if page.NextToken == token {
			return nil, fmt.Errorf("list %s: continuation token %q did not advance", loc.ID, token)
		}
		token = page.NextToken
	}
}
