package source

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

// pagedLister serves fixed pages keyed by location; page tokens are page indexes.
type pagedLister struct {
	pages map[string][][]models.SourceEntry
	fail  map[string]error
	calls int
}

func (p *pagedLister) List(_ context.Context, location, token string) (*models.SourcePage, error) {
	p.calls++
	if err := p.fail[location]; err != nil {
		return nil, err
	}
	idx := 0
	if token != "" {
		idx = int(token[0] - '0')
	}
	pages := p.pages[location]
	if idx >= len(pages) {
		return &models.SourcePage{}, nil
	}
	page := &models.SourcePage{Entries: pages[idx]}
	if idx+1 < len(pages) {
		page.NextToken = string(rune('0' + idx + 1))
	}
	return page, nil
}

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func entry(id, name string, hoursAgo int) models.SourceEntry {
	return models.SourceEntry{ID: id, Name: name, ModifiedAt: t0.Add(-time.Duration(hoursAgo) * time.Hour)}
}

func locations(t *testing.T) []Location {
	locs, err := LocationsFromConfig(config.SourceConfig{
		LocationA: config.LocationConfig{ID: "folder-a", Pattern: config.DefaultPatternA},
		LocationB: config.LocationConfig{ID: "folder-b", Pattern: config.DefaultPatternB},
	})
	require.NoError(t, err)
	return locs
}

func TestEnumerateFiltersPagesDedupesAndSorts(t *testing.T) {
	lister := &pagedLister{pages: map[string][][]models.SourceEntry{
		"folder-a": {
			{entry("a1", "INV-001-0001.xlsx", 5), entry("junk", "notes.txt", 0)},
			{entry("a2", "INV-002-0001.xlsx", 1), entry("shared", "INV-003-0001.xlsx", 3)},
		},
		"folder-b": {
			{entry("b1", "IPEC Invoice 100-2024.xlsx", 1), entry("shared", "IPEC Invoice 101-2024.xlsx", 9)},
			{entry("b2", "IPEC Invoice 12-2024.xlsx", 0)},
		},
	}}

	docs, err := NewEnumerator(lister, locations(t), logger.NewNop()).Enumerate(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"a2", "b1", "shared", "a1"}, ids)
	assert.Equal(t, models.KindA, docs[2].Kind, "first location wins on duplicate ids")
	assert.Equal(t, models.KindB, docs[1].Kind)
	assert.Equal(t, 4, lister.calls)
}

func TestEnumerateEmpty(t *testing.T) {
	docs, err := NewEnumerator(&pagedLister{}, locations(t), logger.NewNop()).Enumerate(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestEnumerateListingFailureIsSourceAccess(t *testing.T) {
	lister := &pagedLister{fail: map[string]error{"folder-b": errors.New("forbidden")}}

	docs, err := NewEnumerator(lister, locations(t), logger.NewNop()).Enumerate(context.Background())
	assert.Nil(t, docs)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindSourceAccess))
	assert.Contains(t, err.Error(), "forbidden")
}

type stuckLister struct{}

func (stuckLister) List(context.Context, string, string) (*models.SourcePage, error) {
	return &models.SourcePage{NextToken: "same"}, nil
}

func TestEnumerateStopsOnStuckToken(t *testing.T) {
	_, err := NewEnumerator(stuckLister{}, locations(t), logger.NewNop()).Enumerate(context.Background())
	assert.True(t, apperr.Is(err, apperr.KindSourceAccess))
}

func TestLocationsFromConfigRejectsBadPattern(t *testing.T) {
	_, err := LocationsFromConfig(config.SourceConfig{
		LocationA: config.LocationConfig{ID: "a", Pattern: "("},
		LocationB: config.LocationConfig{ID: "b", Pattern: ".*"},
	})
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestPatternsMatchOnPrefix(t *testing.T) {
	a := regexp.MustCompile(config.DefaultPatternA)
	assert.True(t, a.MatchString("INV-123-4567 final.xlsx"))
	assert.False(t, a.MatchString("INV-12-4567.xlsx"))
	assert.False(t, a.MatchString("copy of INV-123-4567.xlsx"))
}
