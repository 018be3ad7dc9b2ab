package filter

import (
	"context"
	"runtime"
	"sync"

	"github.com/s0up4200/pvforecast/pvforecast"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the minimum chunk size; smaller tables are evaluated
// without the pool.
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator evaluates a filter over table rows in chunks
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
	pool        WorkerPool
}

var _ Evaluator = (*ConcurrentEvaluator)(nil)

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   1000,
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.workerCount <= 0 {
		e.workerCount = 1
	}

	e.pool = NewWorkerPool(e.workerCount)

	return e
}

// Evaluate returns a table holding the matching rows in their original order.
// The first row that fails to evaluate aborts with an *EvaluationError.
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, table *pvforecast.Table) (*pvforecast.Table, error) {
	if table.Len() == 0 {
		return table, nil
	}

	// For small tables, don't bother with concurrency
	if table.Len() < e.batchSize {
		idx, err := matchRange(ctx, filter, table, 0, table.Len())
		if err != nil {
			return nil, err
		}
		return table.Subset(idx), nil
	}

	return e.evaluateConcurrent(ctx, filter, table)
}

// matchRange returns the indices in [start, end) matched by filter
func matchRange(ctx context.Context, filter CompiledFilter, table *pvforecast.Table, start, end int) ([]int, error) {
	var idx []int
	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := filter.Match(table.Record(i))
		if err != nil {
			return nil, &EvaluationError{Expression: filter.Expression(), Row: i, Err: err}
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, table *pvforecast.Table) (*pvforecast.Table, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := table.Len()
	chunkSize := max(n/e.workerCount, e.batchSize)
	chunks := (n + chunkSize - 1) / chunkSize

	results := make([][]int, chunks)
	errs := make([]error, chunks)
	var wg sync.WaitGroup
	var submitErr error

	for c := 0; c < chunks; c++ {
		c := c // per-iteration copy (go.mod targets go1.21 loop semantics)
		start := c * chunkSize
		end := min(start+chunkSize, n)

		wg.Add(1)
		submitErr = e.pool.Submit(ctx, func() {
			defer wg.Done()
			results[c], errs[c] = matchRange(ctx, filter, table, start, end)
			if errs[c] != nil {
				cancel()
			}
		})
		if submitErr != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()

	// Report the earliest evaluation error rather than a resulting cancellation
	firstErr := submitErr
	for _, err := range errs {
		if err == nil {
			continue
		}
		if _, ok := err.(*EvaluationError); ok {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var idx []int
	for _, r := range results {
		idx = append(idx, r...)
	}
	return table.Subset(idx), nil
}

// Stop gracefully stops the evaluator's worker pool
func (e *ConcurrentEvaluator) Stop(ctx context.Context) error {
	return e.pool.Stop(ctx)
}
