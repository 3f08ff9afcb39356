package ocr

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/slidetools/slidekit/internal/imaging"
	"github.com/slidetools/slidekit/internal/pool"
	"github.com/slidetools/slidekit/internal/syncutil"
)

// PageResult is the outcome of OCR on one page image. Exactly one of Result
// or Err is set; a failed page never hides behind its siblings.
type PageResult struct {
	Path   string
	Result *Result
	Err    error
}

// BatchRunner recognizes text across many page images in parallel. It is the
// composition point of the core: decoded pages go through the image cache and
// per-page recognition runs on the worker pool. A per-page failure is
// recorded in that page's result and does not abort the batch.
type BatchRunner struct {
	engine   Engine
	workers  *pool.Pool
	images   *imaging.ImageCache
	language string
	log      zerolog.Logger

	completed *syncutil.Counter
}

// NewBatchRunner wires a batch runner to an engine, a shared worker pool, and
// the shared decoded-image cache. An empty language selects DefaultLanguage.
func NewBatchRunner(engine Engine, workers *pool.Pool, images *imaging.ImageCache, language string, log zerolog.Logger) *BatchRunner {
	if language == "" {
		language = DefaultLanguage
	}
	return &BatchRunner{
		engine:    engine,
		workers:   workers,
		images:    images,
		language:  language,
		log:       log,
		completed: syncutil.NewCounter(0),
	}
}

// Completed returns the number of pages processed (successfully or not)
// since the runner was created. Callers poll it for progress reporting.
func (b *BatchRunner) Completed() int64 {
	return b.completed.Get()
}

// RunAll submits one OCR task per page image and waits for all of them. It
// returns one PageResult per input path, in input order, each carrying either
// the recognized text or that page's error. RunAll itself fails only when a
// task cannot be submitted (pool shut down) or ctx is done before the batch
// settles.
func (b *BatchRunner) RunAll(ctx context.Context, paths []string) ([]PageResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	b.log.Info().Int("pages", len(paths)).Str("language", b.language).Msg("starting OCR batch")

	futures := make([]*pool.Future, 0, len(paths))
	for _, path := range paths {
		path := path
		fut, err := b.workers.Submit(func(context.Context) (any, error) {
			defer b.completed.Increment(1)
			return b.recognizePage(path)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to submit OCR task for %s: %w", path, err)
		}
		futures = append(futures, fut)
	}

	// Results are indexed by submission position, so a path appearing twice
	// in the input keeps both of its outcomes.
	out := make([]PageResult, len(paths))
	for i, fut := range futures {
		path := paths[i]
		v, err := fut.Wait(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			b.log.Warn().Err(err).Str("path", path).Msg("page OCR failed")
			out[i] = PageResult{Path: path, Err: err}
			continue
		}
		out[i] = PageResult{Path: path, Result: v.(*Result)}
	}
	b.log.Info().Int("pages", len(out)).Msg("OCR batch complete")
	return out, nil
}

// recognizePage decodes the page through the shared cache (warming it for
// the render path that typically follows) and runs recognition on the file.
func (b *BatchRunner) recognizePage(path string) (*Result, error) {
	if _, err := b.images.Load(path); err != nil {
		return nil, err
	}
	return b.engine.ExtractText(path, b.language)
}
