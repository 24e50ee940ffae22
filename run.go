package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	eventbus "github.com/hanpama/fetch/internal/eventbus"
	events "github.com/hanpama/fetch/internal/events"
	runid "github.com/hanpama/fetch/internal/runid"
)

// Run executes the description and returns its result, discarding the round
// log. A nil cache runs against a fresh one.
func Run[A any](ctx context.Context, f Fetch[A], cache *Cache) (A, error) {
	v, _, err := RunEnv(ctx, f, cache)
	return v, err
}

// RunEnv executes the description and returns its result together with the
// round log. The Env is returned even when the run fails: rounds appended and
// cache entries committed before the failure remain valid for diagnosis.
func RunEnv[A any](ctx context.Context, f Fetch[A], cache *Cache) (A, *Env, error) {
	if cache == nil {
		cache = NewCache()
	}
	ctx, _ = runid.NewContext(ctx)
	env := &Env{}
	s := &runState{cache: cache, env: env}

	start := time.Now()
	eventbus.Publish(ctx, events.RunStart{})
	v, err := s.run(ctx, f.node)
	eventbus.Publish(ctx, events.RunFinish{
		Rounds:   len(env.rounds),
		Err:      err,
		Duration: time.Since(start),
	})

	if err != nil {
		var zero A
		return zero, env, err
	}
	return value[A](v), env, nil
}

// runState holds the per-run scheduling context. Every run gets its own, so
// Cache and Env ownership stays unambiguous across concurrent runs.
type runState struct {
	cache *Cache
	env   *Env
	// hits counts cache hits since the last appended round; it is folded into
	// the next Round record.
	hits int
}

// run drives the round loop: reduce, collect the frontier, dispatch, commit,
// substitute, repeat. Only iterations that dispatch at least one call append
// a Round.
func (s *runState) run(ctx context.Context, cur node) (any, error) {
	for {
		cur = s.reduce(cur)
		switch n := cur.(type) {
		case pureNode:
			return n.val, nil
		case failNode:
			return nil, n.err
		}

		groups := collectFrontier(cur)
		if len(groups) == 0 {
			return nil, errStalled
		}

		resolved, err := s.dispatchRound(ctx, groups)
		cur = substitute(cur, resolved)
		if err != nil {
			return nil, err
		}
	}
}

// reduce collapses everything resolvable without a data-source call: pure
// values, cached requests, continuations whose prior resolved, and
// compositions whose branches all resolved. A failed branch collapses the
// whole subtree to its failure.
func (s *runState) reduce(n node) node {
	switch n := n.(type) {
	case leafNode:
		e, ok := s.cache.lookup(n.req.key)
		if !ok {
			return n
		}
		s.hits++
		if e.err != nil {
			return failNode{err: e.err}
		}
		return pureNode{val: e.val}

	case bindNode:
		prior := s.reduce(n.prior)
		switch p := prior.(type) {
		case pureNode:
			return s.reduce(n.cont(p.val))
		case failNode:
			return p
		}
		return bindNode{prior: prior, cont: n.cont}

	case combineNode:
		parts := make([]node, len(n.parts))
		done := true
		for i, part := range n.parts {
			r := s.reduce(part)
			if f, ok := r.(failNode); ok {
				return f
			}
			if _, ok := r.(pureNode); !ok {
				done = false
			}
			parts[i] = r
		}
		if !done {
			return combineNode{parts: parts, merge: n.merge}
		}
		vs := make([]any, len(parts))
		for i, part := range parts {
			vs[i] = part.(pureNode).val
		}
		return pureNode{val: n.merge(vs)}

	default:
		return n
	}
}

// frontierGroup is one round's request set for one source instance.
type frontierGroup struct {
	name  string
	one   func(ctx context.Context, id any) (any, error)
	batch func(ctx context.Context, ids []any) (map[any]any, error)
	keys  []cacheKey
}

// call issues the group's single data-source call: FetchOne for a singleton
// identity set, FetchBatch otherwise.
func (g *frontierGroup) call(ctx context.Context) (map[any]any, error) {
	if len(g.keys) == 1 {
		id := g.keys[0].id
		v, err := g.one(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[any]any{id: v}, nil
	}
	ids := make([]any, len(g.keys))
	for i, k := range g.keys {
		ids[i] = k.id
	}
	return g.batch(ctx, ids)
}

// collectFrontier gathers every request reachable in the current reduction
// without crossing an unresolved bind boundary, deduplicated and partitioned
// by source instance in first-appearance order.
func collectFrontier(n node) []*frontierGroup {
	c := &frontierCollector{
		bySource: make(map[any]*frontierGroup),
		seen:     make(map[cacheKey]struct{}),
	}
	c.walk(n)
	return c.order
}

type frontierCollector struct {
	order    []*frontierGroup
	bySource map[any]*frontierGroup
	seen     map[cacheKey]struct{}
}

func (c *frontierCollector) walk(n node) {
	switch n := n.(type) {
	case leafNode:
		if _, dup := c.seen[n.req.key]; dup {
			return
		}
		c.seen[n.req.key] = struct{}{}
		g := c.bySource[n.req.key.source]
		if g == nil {
			g = &frontierGroup{name: n.req.name, one: n.req.one, batch: n.req.batch}
			c.bySource[n.req.key.source] = g
			c.order = append(c.order, g)
		}
		g.keys = append(g.keys, n.req.key)
	case bindNode:
		// The continuation stays opaque; only the prior can contribute.
		c.walk(n.prior)
	case combineNode:
		for _, part := range n.parts {
			c.walk(part)
		}
	}
}

// dispatchRound issues one call per group concurrently, waits for the whole
// round at the barrier, commits results and missing-identity markers to the
// cache, and appends the Round record. On failure the record is still
// appended and completed sibling writes are kept; the first error is
// returned after the barrier.
func (s *runState) dispatchRound(ctx context.Context, groups []*frontierGroup) (map[cacheKey]entry, error) {
	number := len(s.env.rounds) + 1
	sources := make([]string, len(groups))
	for i, g := range groups {
		sources[i] = g.name
	}

	start := time.Now()
	eventbus.Publish(ctx, events.RoundStart{Number: number, Sources: sources})

	var mu sync.Mutex
	resolved := make(map[cacheKey]entry)

	var g errgroup.Group
	for _, grp := range groups {
		g.Go(func() error {
			bstart := time.Now()
			eventbus.Publish(ctx, events.BatchStart{Source: grp.name, Identities: len(grp.keys)})
			got, err := grp.call(ctx)
			eventbus.Publish(ctx, events.BatchFinish{
				Source:     grp.name,
				Identities: len(grp.keys),
				Err:        err,
				Duration:   time.Since(bstart),
			})
			if err != nil {
				return &SourceError{Source: grp.name, Err: err}
			}

			mu.Lock()
			defer mu.Unlock()
			for _, k := range grp.keys {
				e := entry{}
				if v, ok := got[k.id]; ok {
					e.val = v
				} else {
					e.err = &MissingIdentityError{Source: grp.name, ID: k.id}
				}
				s.cache.store(k, e)
				resolved[k] = e
			}
			return nil
		})
	}
	err := g.Wait()

	queries := make([]Query, len(groups))
	for i, grp := range groups {
		ids := make([]any, len(grp.keys))
		for j, k := range grp.keys {
			ids[j] = k.id
		}
		queries[i] = Query{Source: grp.name, Identities: ids}
	}
	s.env.append(Round{Queries: queries, CacheHits: s.hits, Duration: time.Since(start)})
	s.hits = 0

	eventbus.Publish(ctx, events.RoundFinish{
		Number:   number,
		Queries:  len(groups),
		Err:      err,
		Duration: time.Since(start),
	})
	return resolved, err
}

// substitute replaces requests resolved by the last round with their values
// (or failures) in place, which may expose bind continuations to the next
// reduction.
func substitute(n node, resolved map[cacheKey]entry) node {
	switch n := n.(type) {
	case leafNode:
		e, ok := resolved[n.req.key]
		if !ok {
			return n
		}
		if e.err != nil {
			return failNode{err: e.err}
		}
		return pureNode{val: e.val}
	case bindNode:
		return bindNode{prior: substitute(n.prior, resolved), cont: n.cont}
	case combineNode:
		parts := make([]node, len(n.parts))
		for i, part := range n.parts {
			parts[i] = substitute(part, resolved)
		}
		return combineNode{parts: parts, merge: n.merge}
	default:
		return n
	}
}
