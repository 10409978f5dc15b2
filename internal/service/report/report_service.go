package report

import (
	"context"

	"github.com/feichai0017/invoice-aggregator/internal/models"
)

// Reporter drives the chunked aggregation job and serves its results.
type Reporter interface {
	// Warm performs exactly one step of the job: enumerate, process one chunk,
	// publish, or nothing when the job is already completed.
	Warm(ctx context.Context) (*models.WarmResult, error)
	// WarmUntilDone calls Warm until the job completes or maxSteps is reached.
	WarmUntilDone(ctx context.Context, maxSteps int) (*models.WarmResult, error)
	Status(ctx context.Context) *models.StatusView
	Progress(ctx context.Context) (*models.ProgressView, error)
	// Report returns the published aggregate; ok is false while the job is not completed.
	Report(ctx context.Context) (agg *models.FinalAggregate, ok bool, err error)
	Reset(ctx context.Context) error
	Health(ctx context.Context) error
}
