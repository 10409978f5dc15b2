// Package report runs the resumable chunked aggregation job over the state store.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/invoice-aggregator/config"
	"github.com/feichai0017/invoice-aggregator/internal/agent"
	"github.com/feichai0017/invoice-aggregator/internal/aggregate"
	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/models"
	"github.com/feichai0017/invoice-aggregator/internal/resolver"
	"github.com/feichai0017/invoice-aggregator/internal/source"
	"github.com/feichai0017/invoice-aggregator/internal/utils/validator"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/storage"
)

type ReportService struct {
	store      storage.Store
	source     storage.Source
	enumerator *source.Enumerator
	tables     resolver.Loader
	parsers    *agent.ParserFactory
	validator  *validator.DocumentValidator
	keys       Keys
	logger     logger.Logger
	config     *ServiceConfig

	now      func() time.Time
	newRunID func() string
}

type ServiceConfig struct {
	Prefix          string
	ChunkSize       int
	TopClients      int
	MaxDocumentSize int64
}

// NewService wires a report service. Nil parsers or validator get the defaults.
func NewService(
	store storage.Store,
	src storage.Source,
	locations []source.Location,
	tables resolver.Loader,
	parsers *agent.ParserFactory,
	val *validator.DocumentValidator,
	log logger.Logger,
	cfg *ServiceConfig,
) *ReportService {
	if cfg == nil {
		cfg = &ServiceConfig{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = config.DefaultChunkSize
	}
	if cfg.TopClients <= 0 {
		cfg.TopClients = config.DefaultTopClients
	}
	if parsers == nil {
		parsers = agent.NewParserFactory(log)
	}
	if val == nil {
		val = validator.NewDocumentValidator(log, &validator.ValidatorConfig{MaxFileSize: cfg.MaxDocumentSize})
	}
	log = log.Named("report")

	return &ReportService{
		store:      store,
		source:     src,
		enumerator: source.NewEnumerator(src, locations, log),
		tables:     tables,
		parsers:    parsers,
		validator:  val,
		keys:       NewKeys(cfg.Prefix),
		logger:     log,
		config:     cfg,
		now:        time.Now,
		newRunID:   func() string { return uuid.New().String() },
	}
}

// GetService builds the service and its backends from cfg. The returned store must
// be closed by the caller.
func GetService(ctx context.Context, cfg *config.Config, log logger.Logger) (*ReportService, storage.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	locations, err := source.LocationsFromConfig(cfg.Source)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, apperr.StateStore("open state store", err)
	}

	src, err := storage.NewSource(ctx, cfg, log)
	if err != nil {
		store.Close()
		return nil, nil, apperr.SourceAccess("open document source", err)
	}

	svc := NewService(
		store,
		src,
		locations,
		resolver.NewXLSXLoader(cfg.Reference.SuppliersPath, cfg.Reference.CategoriesPath),
		nil,
		nil,
		log,
		&ServiceConfig{
			Prefix:          cfg.State.Prefix,
			ChunkSize:       cfg.Pipeline.ChunkSize,
			TopClients:      cfg.Pipeline.TopClients,
			MaxDocumentSize: cfg.Source.MaxDocumentSize,
		},
	)
	return svc, store, nil
}

func (s *ReportService) Warm(ctx context.Context) (*models.WarmResult, error) {
	job, found, err := s.loadJob(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.WarmResult{OK: true}
	if !found {
		docs, err := s.enumerator.Enumerate(ctx)
		if err != nil {
			s.logger.Error("Failed to enumerate documents", logger.Error(err))
			return nil, err
		}
		job = models.NewChunkJob(s.newRunID(), docs, s.config.ChunkSize, s.now())
		if err := s.saveJob(ctx, job); err != nil {
			return nil, err
		}
		result.Enumerated = true
		s.logger.Info("Enumerated documents",
			logger.String("run_id", job.RunID),
			logger.Int("files", len(job.Documents)),
			logger.Int("chunks", job.TotalChunks),
		)
	}

	ctx = logger.WithRunID(ctx, job.RunID)
	log := logger.FromContext(ctx, s.logger)

	if job.Completed {
		log.Debug("Job already completed")
		return s.fill(result, job, true), nil
	}

	if job.Cursor < job.TotalChunks {
		res, err := s.tables.Load(ctx)
		if err != nil {
			log.Error("Failed to load reference tables", logger.Error(err))
			return nil, apperr.New(apperr.KindConfiguration, "warm", "load reference tables", err)
		}
		skipped, err := s.processChunk(ctx, job, res)
		if err != nil {
			return nil, err
		}
		result.Skipped = skipped
	}

	if job.Cursor >= job.TotalChunks {
		if err := s.publish(ctx, job); err != nil {
			return nil, err
		}
		result.Built = true
	}
	return s.fill(result, job, false), nil
}

func (s *ReportService) fill(r *models.WarmResult, job *models.ChunkJob, alreadyDone bool) *models.WarmResult {
	r.Done = job.Completed
	r.AlreadyDone = alreadyDone
	r.Processed = job.ProcessedCount()
	r.Remaining = job.Remaining()
	r.Chunk = job.Cursor
	r.Chunks = job.TotalChunks
	r.Files = len(job.Documents)
	return r
}

// processChunk aggregates the chunk at the cursor, stores it, then advances the
// cursor. A crash between the two writes leaves the cursor in place, so the chunk
// is recomputed and overwritten by the next call.
func (s *ReportService) processChunk(ctx context.Context, job *models.ChunkJob, res aggregate.Resolver) (int, error) {
	idx := job.Cursor
	log := logger.FromContext(logger.WithChunkIndex(ctx, idx), s.logger)

	docs := job.Chunk(idx)
	part := models.NewPartialAggregate()
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return 0, apperr.New(apperr.KindInternal, "warm", "interrupted", err)
		}
		inv, err := s.readInvoice(ctx, docs[i])
		if err != nil {
			part.Skipped++
			log.Warn("Skipping document",
				logger.String("id", docs[i].ID),
				logger.String("name", docs[i].Name),
				logger.String("kind", string(apperr.KindOf(err))),
				logger.Error(err),
			)
			continue
		}
		aggregate.Add(part, inv, res)
	}

	if err := storage.PutJSON(ctx, s.store, s.keys.Chunk(idx), part); err != nil {
		return 0, apperr.StateStore(fmt.Sprintf("write chunk %d", idx), err)
	}

	job.Cursor++
	if err := s.saveJob(ctx, job); err != nil {
		return 0, err
	}

	log.Info("Processed chunk",
		logger.Int("documents", len(docs)),
		logger.Int("skipped", part.Skipped),
		logger.Int("cursor", job.Cursor),
		logger.Int("total_chunks", job.TotalChunks),
	)
	return part.Skipped, nil
}

func (s *ReportService) readInvoice(ctx context.Context, doc models.Document) (*models.Invoice, error) {
	data, err := s.source.Download(ctx, doc.ID)
	if err != nil {
		return nil, apperr.SourceAccess("download "+doc.Name, err)
	}
	if err := s.validator.Check(doc.Name, data); err != nil {
		return nil, err
	}
	parser, err := s.parsers.GetParser(doc.Kind)
	if err != nil {
		return nil, apperr.Parse("parse "+doc.Name, err)
	}
	return parser.Parse(ctx, data)
}

// publish merges every chunk aggregate, writes the final report, then marks the
// job completed. Chunks missing from the store are reported, never invented.
func (s *ReportService) publish(ctx context.Context, job *models.ChunkJob) error {
	log := logger.FromContext(ctx, s.logger)

	parts := make([]*models.PartialAggregate, 0, job.TotalChunks)
	missing := []int{}
	for i := 0; i < job.TotalChunks; i++ {
		var part models.PartialAggregate
		ok, err := storage.GetJSON(ctx, s.store, s.keys.Chunk(i), &part)
		if err != nil {
			return apperr.StateStore(fmt.Sprintf("read chunk %d", i), err)
		}
		if !ok {
			missing = append(missing, i)
			continue
		}
		parts = append(parts, &part)
	}
	if len(missing) > 0 {
		log.Warn("Publishing with missing chunk aggregates", logger.Ints("missing_chunks", missing))
	}

	final := aggregate.Finalize(aggregate.Merge(parts...), aggregate.FinalizeOptions{
		TopClients: s.config.TopClients,
		Now:        s.now(),
	})
	final.Meta.RunID = job.RunID
	final.Meta.Documents = len(job.Documents)
	final.Meta.Chunks = job.TotalChunks
	final.Meta.ChunkSize = job.ChunkSize
	final.Meta.MissingChunks = missing

	if err := storage.PutJSON(ctx, s.store, s.keys.Agg(), final); err != nil {
		return apperr.StateStore("write report", err)
	}

	job.Completed = true
	job.CompletedAt = s.now()
	if err := s.saveJob(ctx, job); err != nil {
		return err
	}

	log.Info("Published report",
		logger.String("total_sales", final.TotalSales.String()),
		logger.Int("files", final.Meta.Documents),
		logger.Int("skipped", final.Meta.SkippedDocuments),
	)
	return nil
}

func (s *ReportService) WarmUntilDone(ctx context.Context, maxSteps int) (*models.WarmResult, error) {
	var last *models.WarmResult
	for step := 0; maxSteps <= 0 || step < maxSteps; step++ {
		r, err := s.Warm(ctx)
		if err != nil {
			return last, err
		}
		last = r
		if r.Done {
			return r, nil
		}
	}
	return last, nil
}

// Status never fails: store problems are reported inside the view.
func (s *ReportService) Status(ctx context.Context) *models.StatusView {
	agg, ok, err := s.Report(ctx)
	if err != nil {
		s.logger.Error("Failed to read report status", logger.Error(err))
		return &models.StatusView{Ready: false, Error: err.Error()}
	}
	if !ok {
		return &models.StatusView{Ready: false}
	}
	return &models.StatusView{Ready: true, Data: agg}
}

func (s *ReportService) Report(ctx context.Context) (*models.FinalAggregate, bool, error) {
	job, found, err := s.loadJob(ctx)
	if err != nil || !found || !job.Completed {
		return nil, false, err
	}

	var agg models.FinalAggregate
	ok, err := storage.GetJSON(ctx, s.store, s.keys.Agg(), &agg)
	if err != nil {
		return nil, false, apperr.StateStore("read report", err)
	}
	if !ok {
		return nil, false, nil
	}
	agg.Normalize()
	return &agg, true, nil
}

func (s *ReportService) Progress(ctx context.Context) (*models.ProgressView, error) {
	job, found, err := s.loadJob(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.ProgressView{}, nil
	}
	return &models.ProgressView{
		RunID:          job.RunID,
		Started:        true,
		Done:           job.Completed,
		ProcessedCount: job.ProcessedCount(),
		RemainingCount: job.Remaining(),
		ChunkIndex:     job.Cursor,
		TotalChunks:    job.TotalChunks,
	}, nil
}

// Reset forgets the job, its chunk aggregates and the published report.
func (s *ReportService) Reset(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.keys.State()); err != nil {
		return apperr.StateStore("reset job", err)
	}
	if err := s.store.DeleteByPrefix(ctx, s.keys.ChunkPrefix()); err != nil {
		return apperr.StateStore("reset chunks", err)
	}
	if err := s.store.Delete(ctx, s.keys.Agg()); err != nil {
		return apperr.StateStore("reset report", err)
	}
	s.logger.Info("Reset report state", logger.String("prefix", s.keys.Prefix))
	return nil
}

// Health writes a probe value and reads it back.
func (s *ReportService) Health(ctx context.Context) error {
	want := []byte(fmt.Sprintf(`{"at":%q}`, s.now().UTC().Format(time.RFC3339Nano)))
	if err := s.store.Put(ctx, s.keys.Probe(), want); err != nil {
		return apperr.StateStore("health probe write", err)
	}
	got, ok, err := s.store.Get(ctx, s.keys.Probe())
	if err != nil {
		return apperr.StateStore("health probe read", err)
	}
	if !ok || string(got) != string(want) {
		return apperr.StateStore("health probe read", errors.New("probe value did not round-trip"))
	}
	return nil
}

func (s *ReportService) loadJob(ctx context.Context) (*models.ChunkJob, bool, error) {
	var job models.ChunkJob
	ok, err := storage.GetJSON(ctx, s.store, s.keys.State(), &job)
	if err != nil {
		return nil, false, apperr.StateStore("read job", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &job, true, nil
}

func (s *ReportService) saveJob(ctx context.Context, job *models.ChunkJob) error {
	if err := storage.PutJSON(ctx, s.store, s.keys.State(), job); err != nil {
		return apperr.StateStore("write job", err)
	}
	return nil
}

var _ Reporter = (*ReportService)(nil)
