package fetch

// Fetch is an immutable description of a computation that produces an A by
// requesting data from zero or more sources. Descriptions are built with the
// package-level constructors and consumed exactly once by Run or RunEnv; the
// scheduler never mutates them, it produces reduced copies.
//
// The typed wrapper carries the result type; the underlying tree is
// type-erased so the scheduler can walk heterogeneous compositions.
type Fetch[A any] struct {
	node node
}

// node is one vertex of the description tree. Each node owns its children;
// descriptions are single-consumer so no sharing is needed.
type node interface {
	fetchNode()
}

// pureNode is an already-produced value.
type pureNode struct {
	val any
}

// failNode is an already-failed computation.
type failNode struct {
	err error
}

// leafNode is a single unresolved request.
type leafNode struct {
	req request
}

// bindNode sequences: cont is opaque until prior has produced a value, which
// is what forces dependent work into a later round.
type bindNode struct {
	prior node
	cont  func(any) node
}

// combineNode composes n branches independently: every branch is visible to
// the scheduler in the current round, which is what lets them share it.
// merge receives one value per branch, in branch order.
type combineNode struct {
	parts []node
	merge func([]any) any
}

func (pureNode) fetchNode()    {}
func (failNode) fetchNode()    {}
func (leafNode) fetchNode()    {}
func (bindNode) fetchNode()    {}
func (combineNode) fetchNode() {}

// value converts a type-erased result back to its static type. A nil erased
// value maps to the zero value so that sources returning (nil, nil) and Pure
// of a nil interface stay usable.
func value[A any](v any) A {
	if v == nil {
		var zero A
		return zero
	}
	return v.(A)
}
