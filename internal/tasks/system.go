package tasks

import (
	"context"

	"github.com/JaimeStill/warden/internal/compliance"
)

// System defines the public contract for task persistence.
type System interface {
	Handler() *Handler

	// Init applies the embedded schema migrations. It is safe to call on
	// every start.
	Init(ctx context.Context) error

	// Upsert inserts or updates one row per result in a single
	// transaction and returns the number of results written.
	Upsert(ctx context.Context, results []compliance.Result) (int, error)

	List(ctx context.Context, filters Filters) ([]Task, error)
	Find(ctx context.Context, id int) (*Task, error)
}
