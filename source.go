package fetch

import "context"

// Source is the data-source contract. A Source instance is the batching unit:
// requests to the same instance within one round are dispatched as a single
// call. Identities are unique within one Source instance, not globally.
//
// FetchBatch must return a result for every requested identity it could
// serve; identities absent from the returned map are treated as per-identity
// failures by the engine, never silently dropped. An error return from either
// method means the call itself failed and fails the whole run.
//
// Implementations should be stateless or otherwise safe for concurrent use:
// the scheduler dispatches calls to distinct sources concurrently, and
// distinct runs may share a source.
type Source[I comparable, A any] interface {
	// Name identifies the source in Round records and events.
	Name() string

	// FetchOne fetches a single identity. The scheduler uses it when a
	// round's frontier holds exactly one identity for this source.
	FetchOne(ctx context.Context, id I) (A, error)

	// FetchBatch fetches all given identities in one call. The identity set
	// is already deduplicated by the scheduler.
	FetchBatch(ctx context.Context, ids []I) (map[I]A, error)
}

// Get describes a request for one identity from one source. It resolves in a
// single round unless the cache already holds the result, in which case it
// resolves for free.
func Get[I comparable, A any](src Source[I, A], id I) Fetch[A] {
	return Fetch[A]{node: leafNode{req: request{
		key:  cacheKey{source: src, id: id},
		name: src.Name(),
		one: func(ctx context.Context, id any) (any, error) {
			v, err := src.FetchOne(ctx, id.(I))
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		batch: func(ctx context.Context, ids []any) (map[any]any, error) {
			typed := make([]I, len(ids))
			for i, id := range ids {
				typed[i] = id.(I)
			}
			res, err := src.FetchBatch(ctx, typed)
			if err != nil {
				return nil, err
			}
			out := make(map[any]any, len(res))
			for k, v := range res {
				out[k] = v
			}
			return out, nil
		},
	}}}
}

// request is the type-erased form of one (source, identity) reference. The
// dispatch closures recover the source's static types; key is the cache and
// partition key.
type request struct {
	key   cacheKey
	name  string
	one   func(ctx context.Context, id any) (any, error)
	batch func(ctx context.Context, ids []any) (map[any]any, error)
}
