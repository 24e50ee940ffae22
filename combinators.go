package fetch

// Pure describes a computation that already holds its value. Running it costs
// zero rounds.
func Pure[A any](v A) Fetch[A] {
	return Fetch[A]{node: pureNode{val: v}}
}

// Fail describes a computation that has already failed with err.
func Fail[A any](err error) Fetch[A] {
	return Fetch[A]{node: failNode{err: err}}
}

// Map transforms the result of fa. It adds no round: the transformation runs
// during reduction as soon as fa's value is available.
func Map[A, B any](fa Fetch[A], f func(A) B) Fetch[B] {
	return FlatMap(fa, func(a A) Fetch[B] { return Pure(f(a)) })
}

// FlatMap sequences: f is not invoked, and cannot be inspected, until fa has
// fully resolved. Requests made by f therefore run in a later round than the
// requests of fa, even when they target the same source.
func FlatMap[A, B any](fa Fetch[A], f func(A) Fetch[B]) Fetch[B] {
	return Fetch[B]{node: bindNode{
		prior: fa.node,
		cont:  func(v any) node { return f(value[A](v)).node },
	}}
}

// Map2 composes fa and fb independently: neither depends on the other's
// result, so their requests are scheduled in the same round and requests to a
// shared source are batched into one call.
func Map2[A, B, C any](fa Fetch[A], fb Fetch[B], f func(A, B) C) Fetch[C] {
	return Fetch[C]{node: combineNode{
		parts: []node{fa.node, fb.node},
		merge: func(vs []any) any { return f(value[A](vs[0]), value[B](vs[1])) },
	}}
}

// Pair holds the results of two independently composed computations.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Both is Map2 specialized to pairing.
func Both[A, B any](fa Fetch[A], fb Fetch[B]) Fetch[Pair[A, B]] {
	return Map2(fa, fb, func(a A, b B) Pair[A, B] { return Pair[A, B]{First: a, Second: b} })
}

// Traverse maps f over items and composes all results independently. Every
// request produced by f is a sibling of the others: one round suffices for
// the whole collection when nothing else sequences it.
func Traverse[S, A any](items []S, f func(S) Fetch[A]) Fetch[[]A] {
	if len(items) == 0 {
		return Pure([]A{})
	}
	parts := make([]node, len(items))
	for i, item := range items {
		parts[i] = f(item).node
	}
	return Fetch[[]A]{node: combineNode{
		parts: parts,
		merge: func(vs []any) any {
			out := make([]A, len(vs))
			for i, v := range vs {
				out[i] = value[A](v)
			}
			return out
		},
	}}
}

// Sequence composes an existing slice of descriptions independently.
func Sequence[A any](fs []Fetch[A]) Fetch[[]A] {
	return Traverse(fs, func(f Fetch[A]) Fetch[A] { return f })
}
