package filter

import (
	"maps"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/pvforecast/pvforecast"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
	envPool    *sync.Pool
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
		envPool:     &sync.Pool{},
	}

	for _, opt := range opts {
		opt(c)
	}

	size := len(c.helperFuncs) + 16
	c.envPool.New = func() any {
		return make(map[string]any, size)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache
	envPool     *sync.Pool // Pool for environment maps
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	// Check cache if enabled
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Column names are only known per table, so they stay undefined here
	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
		envPool:    c.envPool,
	}

	// Cache if enabled
	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Match evaluates the filter against a row. Columns are exposed both as
// top-level variables and through the Row map.
func (f *exprFilter) Match(record map[string]any) (bool, error) {
	env := f.envPool.Get().(map[string]any)
	defer func() {
		clear(env)
		f.envPool.Put(env)
	}()

	maps.Copy(env, f.helpers)
	maps.Copy(env, record)
	env["Row"] = record

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, err
	}

	// Result is guaranteed to be bool due to AsBool() option during compilation
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the static helper functions used during compilation
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)
	addHelperFunctions(funcs)
	return funcs
}

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// Time-of-day helpers, all in UTC
	env["hour"] = func(t time.Time) int {
		return t.UTC().Hour()
	}
	env["minute"] = func(t time.Time) int {
		return t.UTC().Minute()
	}
	env["clock"] = func(t time.Time) string {
		return t.UTC().Format("15:04")
	}
	env["day"] = func(t time.Time) string {
		return t.UTC().Format("2006-01-02")
	}
	env["weekday"] = func(t time.Time) string {
		return t.UTC().Weekday().String()
	}
	env["leadHours"] = func(base, target time.Time) float64 {
		return target.Sub(base).Hours()
	}
	env["parseTime"] = func(s string) time.Time {
		t, _ := pvforecast.ParseTime(s)
		return t
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().UTC().AddDate(0, 0, -days)
	}
	env["now"] = func() time.Time {
		return time.Now().UTC()
	}

	// Missing values are NaN after table conversion
	env["isNaN"] = func(v any) bool {
		f, ok := v.(float64)
		return ok && math.IsNaN(f)
	}

	// String helpers
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
}
