// Package filter narrows forecast tables with expr-lang row expressions.
//
// Every column of the table is available as a variable named after its
// lower-cased header, so a filter over a GSP forecast can read:
//
//	clock(forecast_base_gmt) == "07:00" && generation_mw > 100
//
// Missing values are NaN and can be tested with isNaN(ucl). The Row map holds
// the same values for column names that are not valid identifiers.
package filter

import (
	"context"

	"github.com/s0up4200/pvforecast/pvforecast"
)

// Apply compiles expression and returns the rows of table it matches.
func Apply(ctx context.Context, expression string, table *pvforecast.Table) (*pvforecast.Table, error) {
	f, err := NewExprCompiler().Compile(expression)
	if err != nil {
		return nil, err
	}

	e := NewConcurrentEvaluator()
	defer e.Stop(context.Background())

	return e.Evaluate(ctx, f, table)
}
