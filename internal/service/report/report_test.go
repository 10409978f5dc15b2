package report

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/pkg/storage/memory"
)

func twoInvoiceSource(t *testing.T) *fakeSource {
	src := newFakeSource()
	src.addA("d1", 2, kindA(t, "Ann", "555-1", 100, item{"TK001", 2, 10, 20}))
	src.addA("d2", 1, kindA(t, "Bob", "", 50, item{"TK001", 1, 10, 10}))
	return src
}

func manyInvoiceSource(t *testing.T, n int) *fakeSource {
	src := newFakeSource()
	codes := []string{"TK001", "TK002", "CB10"}
	for i := 0; i < n; i++ {
		src.addA(
			string(rune('a'+i)),
			i,
			kindA(t, "Client", "", float64(10*(i+1)), item{codes[i%len(codes)], float64(i + 1), 2, float64(2 * (i + 1))}),
		)
	}
	return src
}

func amounts(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}

func TestWarmEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, twoInvoiceSource(t), acmeTables(), 1)

	first, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.WarmResult{
		OK: true, Enumerated: true, Processed: 1, Remaining: 1, Chunk: 1, Chunks: 2, Files: 2,
	}, first)
	assert.False(t, svc.Status(ctx).Ready)

	second, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.WarmResult{
		OK: true, Done: true, Built: true, Processed: 2, Remaining: 0, Chunk: 2, Chunks: 2, Files: 2,
	}, second)

	third, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.True(t, third.Done)
	assert.True(t, third.AlreadyDone)
	assert.False(t, third.Built)

	status := svc.Status(ctx)
	require.True(t, status.Ready)
	data := status.Data
	assert.Equal(t, "150", data.TotalSales.String())
	assert.Equal(t, "3", data.PerItem["TK001"].Qty.String())
	assert.Equal(t, "30", data.PerItem["TK001"].Sales.String())
	assert.Equal(t, map[string]string{"Acme": "30"}, amounts(data.PerSupplier))
	require.Len(t, data.TopItemsOverall, 1)
	assert.Equal(t, "TK001", data.TopItemsOverall[0].Code)
	assert.Equal(t, "30", data.TopItemsOverall[0].Sales.String())
	assert.Equal(t, map[string]string{"555-1": "100", "Bob": "50"}, amounts(data.PerClient))
	assert.Equal(t, "run-1", data.Meta.RunID)
	assert.Equal(t, 2, data.Meta.Documents)
	assert.Equal(t, 2, data.Meta.Chunks)
	assert.Empty(t, data.Meta.MissingChunks)
}

func TestWarmResumesFromCursor(t *testing.T) {
	ctx := context.Background()

	baseline := newTestService(t, nil, manyInvoiceSource(t, 5), acmeTables(), 2)
	_, err := baseline.WarmUntilDone(ctx, 0)
	require.NoError(t, err)
	want := baseline.Status(ctx).Data

	store := memory.New()
	src := manyInvoiceSource(t, 5)
	_, err = newTestService(t, store, src, acmeTables(), 2).Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.totalDownloads())

	// a fresh process picks up at cursor 1
	resumed := newTestService(t, store, src, acmeTables(), 2)
	progress, err := resumed.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.ChunkIndex)
	require.Equal(t, 3, progress.TotalChunks)

	calls := 0
	for {
		res, err := resumed.Warm(ctx)
		require.NoError(t, err)
		calls++
		if res.Done {
			break
		}
		require.Less(t, calls, 10)
	}
	assert.Equal(t, progress.TotalChunks-progress.ChunkIndex, calls)
	assert.Equal(t, 5, src.totalDownloads(), "finished chunks are not downloaded again")
	assert.Equal(t, want, resumed.Status(ctx).Data)
}

func TestWarmRecomputesChunkAfterFailedCommit(t *testing.T) {
	ctx := context.Background()

	baseline := newTestService(t, nil, manyInvoiceSource(t, 3), acmeTables(), 1)
	_, err := baseline.WarmUntilDone(ctx, 0)
	require.NoError(t, err)

	store := &flakyStore{Store: memory.New(), match: "state.json"}
	src := manyInvoiceSource(t, 3)
	svc := newTestService(t, store, src, acmeTables(), 1)

	_, err = svc.Warm(ctx)
	require.NoError(t, err)

	store.failPuts = 1
	_, err = svc.Warm(ctx)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindStateStore))

	progress, err := svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.ChunkIndex, "cursor does not move when the job write fails")

	_, err = svc.WarmUntilDone(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, src.totalDownloads())
	assert.Equal(t, baseline.Status(ctx).Data, svc.Status(ctx).Data)
}

func TestChunkSizeDoesNotChangeCentTotals(t *testing.T) {
	ctx := context.Background()
	cents := []float64{0.1, 0.2, 123.45, 0.7, 19.99, 0.05, 1234.56}
	build := func() *fakeSource {
		src := newFakeSource()
		for i, c := range cents {
			src.addA(fmt.Sprintf("c%d", i), i, kindA(t, "", fmt.Sprintf("555-%d", i%2), c, item{"TK001", 1, c, c}))
		}
		return src
	}

	var totals []string
	for _, size := range []int{1, 2, 3, 25} {
		svc := newTestService(t, nil, build(), acmeTables(), size)
		_, err := svc.WarmUntilDone(ctx, 0)
		require.NoError(t, err)
		data := svc.Status(ctx).Data
		require.NotNil(t, data)
		totals = append(totals, fmt.Sprintf("%s|%s|%s|%s",
			data.TotalSales, data.PerSupplier["Acme"], data.PerClient["555-0"], data.PerClient["555-1"]))
	}
	for _, got := range totals[1:] {
		assert.Equal(t, totals[0], got)
	}
	assert.Equal(t, "1379.05|1379.05|1378.1|0.95", totals[0])
}

func TestWarmSkipsUnreadableDocuments(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.addA("good", 0, kindA(t, "Ann", "", 40, item{"TK001", 4, 10, 40}))
	src.addA("gone", 1, nil)
	src.failIDs["gone"] = true
	src.addA("junk", 2, []byte("not a workbook"))

	svc := newTestService(t, nil, src, acmeTables(), 25)
	res, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 2, res.Skipped)

	data := svc.Status(ctx).Data
	require.NotNil(t, data)
	assert.Equal(t, "40", data.TotalSales.String())
	assert.Equal(t, 3, data.Meta.Documents)
	assert.Equal(t, 1, data.Meta.ProcessedDocuments)
	assert.Equal(t, 2, data.Meta.SkippedDocuments)
}

func TestWarmReadsDottedDocumentNames(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.entries["folder-a"] = []models.SourceEntry{{ID: "rev", Name: "INV-123-4567 rev.2", ModifiedAt: baseTime}}
	src.files["rev"] = kindA(t, "Ann", "", 40, item{"TK001", 4, 10, 40})

	res, err := newTestService(t, nil, src, acmeTables(), 25).Warm(ctx)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 1, res.Files)
}

func TestEnumerationHappensOncePerJob(t *testing.T) {
	ctx := context.Background()
	src := twoInvoiceSource(t)
	svc := newTestService(t, nil, src, acmeTables(), 1)

	_, err := svc.Warm(ctx)
	require.NoError(t, err)
	src.addA("late", 0, kindA(t, "Late", "", 999))

	last, err := svc.WarmUntilDone(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, last.Files)
	assert.Equal(t, "150", svc.Status(ctx).Data.TotalSales.String())
}

func TestResetAndRebuild(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, twoInvoiceSource(t), acmeTables(), 1)

	_, err := svc.WarmUntilDone(ctx, 0)
	require.NoError(t, err)
	before := svc.Status(ctx).Data

	require.NoError(t, svc.Reset(ctx))
	require.NoError(t, svc.Reset(ctx))
	assert.Empty(t, store.Keys())
	assert.Equal(t, &models.StatusView{Ready: false}, svc.Status(ctx))

	progress, err := svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.ProgressView{}, progress)

	_, err = svc.WarmUntilDone(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, before, svc.Status(ctx).Data)
}

func TestResetMidRun(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, manyInvoiceSource(t, 4), acmeTables(), 1)

	_, err := svc.Warm(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Reset(ctx))
	assert.Empty(t, store.Keys())

	res, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.True(t, res.Enumerated)
	assert.Equal(t, 1, res.Chunk)
}

func TestPublishRecordsMissingChunks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, twoInvoiceSource(t), acmeTables(), 1)

	_, err := svc.Warm(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, svc.keys.Chunk(0)))

	res, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.True(t, res.Built)

	data := svc.Status(ctx).Data
	require.NotNil(t, data)
	assert.Equal(t, []int{0}, data.Meta.MissingChunks)
	// chunk 0 held d2, the newest document
	assert.Equal(t, "100", data.TotalSales.String())
}

func TestWarmEmptySourcePublishesEmptyReport(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, newFakeSource(), acmeTables(), 25)

	res, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.True(t, res.Enumerated)
	assert.True(t, res.Built)
	assert.True(t, res.Done)
	assert.Equal(t, 0, res.Chunks)

	status := svc.Status(ctx)
	require.True(t, status.Ready)
	assert.True(t, status.Data.TotalSales.IsZero())
	assert.Empty(t, status.Data.TopItemsOverall)
}

func TestWarmEnumerationFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	src := twoInvoiceSource(t)
	src.listErr = errBoom
	svc := newTestService(t, store, src, acmeTables(), 1)

	res, err := svc.Warm(ctx)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindSourceAccess))
	assert.Empty(t, store.Keys())
}

func TestWarmReferenceTableFailureIsConfiguration(t *testing.T) {
	svc := newTestService(t, nil, twoInvoiceSource(t), staticTables{err: errBoom}, 1)

	_, err := svc.Warm(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestStateStoreReadFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New(), match: "state.json", failGets: true}
	svc := newTestService(t, store, twoInvoiceSource(t), acmeTables(), 1)

	_, err := svc.Warm(ctx)
	assert.True(t, apperr.Is(err, apperr.KindStateStore))

	_, err = svc.Progress(ctx)
	assert.True(t, apperr.Is(err, apperr.KindStateStore))

	status := svc.Status(ctx)
	assert.False(t, status.Ready)
	assert.NotEmpty(t, status.Error)
}

func TestProgressMidRun(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil, manyInvoiceSource(t, 3), acmeTables(), 2)

	_, err := svc.Warm(ctx)
	require.NoError(t, err)

	progress, err := svc.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.ProgressView{
		RunID:          "run-1",
		Started:        true,
		ProcessedCount: 2,
		RemainingCount: 1,
		ChunkIndex:     1,
		TotalChunks:    2,
	}, progress)
}

func TestWarmUntilDoneStopsAtMaxSteps(t *testing.T) {
	svc := newTestService(t, nil, manyInvoiceSource(t, 4), acmeTables(), 1)

	res, err := svc.WarmUntilDone(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, 2, res.Chunk)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, newTestService(t, nil, newFakeSource(), acmeTables(), 1).Health(ctx))

	store := &flakyStore{Store: memory.New(), match: "diag/", failPuts: 1}
	err := newTestService(t, store, newFakeSource(), acmeTables(), 1).Health(ctx)
	assert.True(t, apperr.Is(err, apperr.KindStateStore))
}

func TestKeys(t *testing.T) {
	k := NewKeys("build")
	assert.Equal(t, "build/state.json", k.State())
	assert.Equal(t, "build/chunks/3.json", k.Chunk(3))
	assert.Equal(t, "build/agg.json", k.Agg())
	assert.Equal(t, "state.json", NewKeys("").State())
}

func TestPrefixesShareOneStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	east := newTestService(t, store, twoInvoiceSource(t), acmeTables(), 1)
	west := newTestService(t, store, manyInvoiceSource(t, 3), acmeTables(), 1)
	west.keys = NewKeys("west/")

	_, err := east.WarmUntilDone(ctx, 0)
	require.NoError(t, err)
	_, err = west.WarmUntilDone(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, "150", east.Status(ctx).Data.TotalSales.String())
	westTotal := west.Status(ctx).Data.TotalSales.String()
	assert.Equal(t, "60", westTotal)

	require.NoError(t, east.Reset(ctx))
	assert.False(t, east.Status(ctx).Ready)
	require.True(t, west.Status(ctx).Ready, "reset leaves other prefixes alone")
	assert.Equal(t, westTotal, west.Status(ctx).Data.TotalSales.String())
	for _, key := range store.Keys() {
		assert.True(t, strings.HasPrefix(key, "west/"), key)
	}
}
