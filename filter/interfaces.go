package filter

import (
	"context"

	"github.com/s0up4200/pvforecast/pvforecast"
)

// Filter matches a single forecast row, keyed by lower-cased column name
type Filter interface {
	// Match reports whether the row satisfies the filter
	Match(record map[string]any) (bool, error)
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// Evaluator narrows a forecast table to the rows a filter matches
type Evaluator interface {
	Evaluate(ctx context.Context, filter CompiledFilter, table *pvforecast.Table) (*pvforecast.Table, error)
}

// WorkerPool defines the interface for concurrent work execution
type WorkerPool interface {
	// Submit queues work, blocking until a worker slot frees or ctx is done
	Submit(ctx context.Context, work func()) error

	// Stop gracefully stops the worker pool
	Stop(ctx context.Context) error
}
