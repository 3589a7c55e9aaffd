// Package extraction runs the audit pipeline: query ids, fetch details,
// enrich each item with its comments, apply the compliance rules, and
// persist the batch. Progress is pushed to an observer at every step.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/warden/internal/compliance"
	"github.com/JaimeStill/warden/internal/records"
	"github.com/JaimeStill/warden/pkg/devops"
	"github.com/JaimeStill/warden/pkg/storage"
)

// IdleStatus is reported when no run is in flight.
const IdleStatus = "Idle"

// Runner starts extraction runs and reports on the latest one.
type Runner interface {
	// Start launches a run on its own goroutine and returns immediately.
	// Returns ErrRunInProgress while another run is in flight.
	Start() (*Run, error)
	// Current returns the latest run. Returns ErrNoRun before the first Start.
	Current() (*Run, error)
	// StatusText returns the last progress message of the in-flight run,
	// or IdleStatus.
	StatusText() string
	// Report returns the archived JSON report of a finished run.
	Report(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// Report is the archived record of a finished run.
type Report struct {
	Run     Snapshot            `json:"run"`
	Results []compliance.Result `json:"results"`
}

type runner struct {
	rt      *Runtime
	workers int
	chunked bool
	logger  *slog.Logger

	mu      sync.Mutex
	current *Run
}

// New creates a Runner from the runtime dependencies and finalized config.
func New(rt *Runtime, cfg *Config) Runner {
	return &runner{
		rt:      rt,
		workers: cfg.Workers,
		chunked: cfg.Chunked(),
		logger:  rt.Logger.With("system", "extraction"),
	}
}

func (r *runner) Start() (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current.Status() == StatusRunning {
		return nil, ErrRunInProgress
	}

	run := newRun()
	err := r.rt.Lifecycle.Go(func(ctx context.Context) {
		r.run(ctx, run)
	})
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	r.current = run
	return run, nil
}

func (r *runner) Current() (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return nil, ErrNoRun
	}
	return r.current, nil
}

func (r *runner) StatusText() string {
	run, err := r.Current()
	if err != nil || run.Status() != StatusRunning {
		return IdleStatus
	}
	if msg := run.Message(); msg != "" {
		return msg
	}
	return IdleStatus
}

func (r *runner) Report(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if r.rt.Archive == nil {
		return nil, ErrArchiveOff
	}

	data, err := r.rt.Archive.Get(ctx, reportKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("read run report: %w", err)
	}
	return data, nil
}

func (r *runner) run(ctx context.Context, run *Run) {
	logger := r.logger.With("run_id", run.ID)
	logger.Info("run started")

	results, err := r.execute(ctx, run, logger)
	if err != nil {
		logger.Error("run failed", "error", err)
		r.notify(run, "Error: "+err.Error())
		run.finish(err)
		return
	}

	if results == nil {
		// "No items found" is the terminal message of an empty query.
		run.finish(nil)
		logger.Info("run completed", "items", 0)
		return
	}

	r.notify(run, "Done")
	run.settle(nil)
	logger.Info("run completed", "items", run.Snapshot().Items)

	r.archive(ctx, run, results, logger)
	close(run.done)
}

// execute returns nil results, and no error, when the query matched nothing.
func (r *runner) execute(ctx context.Context, run *Run, logger *slog.Logger) (results []compliance.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			results = nil
			err = fmt.Errorf("%w: panic: %v", ErrPipelineFailed, p)
		}
	}()

	r.notify(run, "Step 1/5: Starting client...")

	r.notify(run, fmt.Sprintf("Step 2/5: Fetching ids (tag %s)...", r.rt.TagFilter))
	ids, err := r.rt.Client.QueryIDs(ctx, r.rt.TagFilter, r.rt.Project)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		r.notify(run, "No items found")
		return nil, nil
	}

	r.notify(run, fmt.Sprintf("Step 3/5: Fetching %d details...", len(ids)))
	items, err := r.details(ctx, ids)
	if err != nil {
		return nil, err
	}

	r.notify(run, "Step 4/5: Fetching comments...")
	batch, err := r.enrich(ctx, run, items, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: enrich items: %w", ErrPipelineFailed, err)
	}

	r.notify(run, "Step 5/5: Validating data...")
	results = r.rt.Rules.Apply(batch)

	r.notify(run, "Saving to database...")
	stored := 0
	if len(results) > 0 {
		stored, err = r.rt.Tasks.Upsert(ctx, results)
		if err != nil {
			return nil, fmt.Errorf("%w: persist results: %w", ErrPipelineFailed, err)
		}
	}

	run.counts(len(results), stored)
	return results, nil
}

func (r *runner) details(ctx context.Context, ids []int) ([]devops.WorkItem, error) {
	if !r.chunked {
		return r.rt.Client.Details(ctx, ids)
	}

	items := make([]devops.WorkItem, 0, len(ids))
	for start := 0; start < len(ids); start += devops.MaxBatchSize {
		end := min(start+devops.MaxBatchSize, len(ids))
		chunk, err := r.rt.Client.Details(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		items = append(items, chunk...)
	}
	return items, nil
}

// enrich keeps results in detail order regardless of completion order.
func (r *runner) enrich(ctx context.Context, run *Run, items []devops.WorkItem, logger *slog.Logger) ([]records.Record, error) {
	batch := make([]records.Record, len(items))
	total := len(items)
	var position atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, item := range items {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("item %d: panic: %v", item.ID, p)
				}
			}()

			if err := gctx.Err(); err != nil {
				return err
			}

			n := position.Add(1)
			r.notify(run, fmt.Sprintf("Step 4/5: Reading comments for task %d | %d/%d", item.ID, n, total))

			comments, err := r.rt.Client.Comments(gctx, item.ID)
			if err != nil {
				return fmt.Errorf("comments for %d: %w", item.ID, err)
			}

			rec := records.Normalize(item, comments)
			if rec.ParentID == nil && records.HasParentLink(item.Relations) {
				logger.Debug("malformed parent relation", "id", item.ID)
			}
			batch[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *runner) archive(ctx context.Context, run *Run, results []compliance.Result, logger *slog.Logger) {
	if r.rt.Archive == nil {
		return
	}

	data, err := json.Marshal(Report{Run: run.Snapshot(), Results: results})
	if err != nil {
		logger.Warn("run report encode failed", "error", err)
		return
	}

	if err := r.rt.Archive.Put(ctx, reportKey(run.ID), data, "application/json"); err != nil {
		logger.Warn("run report archive failed", "error", err)
		return
	}
	logger.Info("run report archived", "key", reportKey(run.ID))
}

func (r *runner) notify(run *Run, msg string) {
	run.progress(msg)
	r.rt.Observer.Notify(msg)
}

func reportKey(id uuid.UUID) string {
	return id.String() + ".json"
}
