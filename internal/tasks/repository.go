package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/warden/internal/compliance"
	"github.com/JaimeStill/warden/pkg/database"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

type repo struct {
	db     database.System
	logger *slog.Logger
}

// New creates a task repository implementing the System interface.
func New(db database.System, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "tasks"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.db.Migrate(Migrations()); err != nil {
		return fmt.Errorf("init tasks store: %w", err)
	}
	return nil
}

func (r *repo) Upsert(ctx context.Context, results []compliance.Result) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	argSets := make([][]any, len(results))
	for i, res := range results {
		if res.ID <= 0 {
			return 0, fmt.Errorf("%w: id %d", ErrInvalidResult, res.ID)
		}
		if res.Verdict != compliance.OK && res.Verdict != compliance.NOK {
			return 0, fmt.Errorf("%w: verdict %q for id %d", ErrInvalidResult, res.Verdict, res.ID)
		}
		argSets[i] = upsertArgs(res)
	}

	_, err := repository.WithTx(ctx, r.db.Connection(), func(tx *sql.Tx) (int64, error) {
		return repository.ExecEach(ctx, tx, upsertSQL, argSets)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert tasks: %w", err)
	}

	r.logger.Info("tasks upserted", "count", len(results))
	return len(results), nil
}

func (r *repo) List(ctx context.Context, filters Filters) ([]Task, error) {
	qb := query.NewBuilder(projection, defaultSort...)
	filters.Apply(qb)

	q, args := qb.Build()
	tasks, err := repository.QueryMany(ctx, r.db.Connection(), q, args, scanTask)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

func (r *repo) Find(ctx context.Context, id int) (*Task, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	t, err := repository.QueryOne(ctx, r.db.Connection(), q, args, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidResult)
	}
	return &t, nil
}
