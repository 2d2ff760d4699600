package eager

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Filter narrows a batch of related records before they are attached to
// their parents. The loading collaborator applies it once per batch, not per
// parent, so a filter must not assume anything about which parent a record
// belongs to. Filters must not mutate the input slice or its records.
type Filter func(records []map[string]any) []map[string]any

// Where builds a Filter keeping the records for which pred returns true.
// Input order is preserved.
func Where(pred func(record map[string]any) bool) Filter {
	return func(records []map[string]any) []map[string]any {
		out := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			if pred(rec) {
				out = append(out, rec)
			}
		}
		return out
	}
}

// Expr compiles an expression over record attributes into a Filter. The
// record is the expression environment, so `price > 0` keeps records whose
// "price" attribute is positive. Records the expression fails to evaluate
// against, or for which it yields a non-boolean, are excluded.
func Expr(src string) (Filter, error) {
	prg, err := expr.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile eager filter %q: %w", src, err)
	}
	return Where(func(record map[string]any) bool {
		v, err := expr.Run(prg, record)
		if err != nil {
			return false
		}
		keep, ok := v.(bool)
		return ok && keep
	}), nil
}

// Compose chains two filters, applying a first, then b. Either side may be
// nil, in which case the other is returned unchanged.
func Compose(a, b Filter) Filter {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(records []map[string]any) []map[string]any {
		return b(a(records))
	}
}
