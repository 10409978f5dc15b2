package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/internal/resolver"
	"github.com/feichai0017/invoice-aggregator/internal/source"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/storage"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/memory"
)

var (
	baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	errBoom  = errors.New("boom")
)

type item struct {
	code      string
	qty, unit float64
	total     float64
}

// kindA renders a kind A invoice workbook.
func kindA(t *testing.T, client, phone string, total float64, items ...item) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sh := f.GetSheetName(0)
	set := func(addr string, v interface{}) { require.NoError(t, f.SetCellValue(sh, addr, v)) }

	set("B3", client)
	set("B5", phone)
	set("B8", total)
	for i, it := range items {
		row := 12 + i
		set(fmt.Sprintf("A%d", row), it.code)
		set(fmt.Sprintf("C%d", row), it.qty)
		set(fmt.Sprintf("D%d", row), it.unit)
		set(fmt.Sprintf("E%d", row), it.total)
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// fakeSource serves two single-page locations and counts downloads.
type fakeSource struct {
	mu        sync.Mutex
	entries   map[string][]models.SourceEntry
	files     map[string][]byte
	listErr   error
	failIDs   map[string]bool
	downloads map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		entries:   map[string][]models.SourceEntry{},
		files:     map[string][]byte{},
		failIDs:   map[string]bool{},
		downloads: map[string]int{},
	}
}

// addA registers a kind A document modified age hours before baseTime.
func (f *fakeSource) addA(id string, age int, data []byte) {
	f.entries["folder-a"] = append(f.entries["folder-a"], models.SourceEntry{
		ID:         id,
		Name:       fmt.Sprintf("INV-%03d-2026.xlsx", len(f.entries["folder-a"])+1),
		ModifiedAt: baseTime.Add(-time.Duration(age) * time.Hour),
	})
	f.files[id] = data
}

func (f *fakeSource) List(_ context.Context, location, _ string) (*models.SourcePage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &models.SourcePage{Entries: f.entries[location]}, nil
}

func (f *fakeSource) Download(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads[id]++
	if f.failIDs[id] {
		return nil, errBoom
	}
	data, ok := f.files[id]
	if !ok {
		return nil, fmt.Errorf("no such file %s", id)
	}
	return data, nil
}

func (f *fakeSource) totalDownloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.downloads {
		n += c
	}
	return n
}

type staticTables struct {
	res *resolver.Resolver
	err error
}

func (s staticTables) Load(context.Context) (*resolver.Resolver, error) {
	return s.res, s.err
}

func acmeTables() staticTables {
	return staticTables{res: resolver.New([]resolver.PrefixRule{{Prefix: "TK", Supplier: "Acme"}}, nil)}
}

// flakyStore fails selected operations on keys containing match.
type flakyStore struct {
	storage.Store
	match    string
	failPuts int
	failGets bool
}

func (s *flakyStore) Put(ctx context.Context, key string, data []byte) error {
	if s.failPuts > 0 && strings.Contains(key, s.match) {
		s.failPuts--
		return errBoom
	}
	return s.Store.Put(ctx, key, data)
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.failGets && strings.Contains(key, s.match) {
		return nil, false, errBoom
	}
	return s.Store.Get(ctx, key)
}

func testLocations(t *testing.T) []source.Location {
	t.Helper()
	locs, err := source.LocationsFromConfig(config.SourceConfig{
		LocationA: config.LocationConfig{ID: "folder-a", Pattern: config.DefaultPatternA},
		LocationB: config.LocationConfig{ID: "folder-b", Pattern: config.DefaultPatternB},
	})
	require.NoError(t, err)
	return locs
}

func newTestService(t *testing.T, store storage.Store, src *fakeSource, tables resolver.Loader, chunkSize int) *ReportService {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	svc := NewService(store, src, testLocations(t), tables, nil, nil, logger.NewNop(), &ServiceConfig{
		Prefix:     DefaultPrefix,
		ChunkSize:  chunkSize,
		TopClients: 10,
	})
	svc.now = func() time.Time { return baseTime }
	svc.newRunID = func() string { return "run-1" }
	return svc
}
