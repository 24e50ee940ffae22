package fetch

import "time"

// Query records the identity set dispatched to one source within a round.
// Identities keep first-appearance order; callers must not rely on any other
// ordering.
type Query struct {
	Source     string
	Identities []any
}

// Round records one executed round: the sources queried, the identities sent
// to each, the cache hits observed while assembling the round's frontier, and
// the wall-clock time the barrier took. Immutable once appended.
type Round struct {
	Queries   []Query
	CacheHits int
	Duration  time.Duration
}

// IdentitiesFor returns the identity set this round dispatched to the named
// source, or nil when the source was not queried.
func (r Round) IdentitiesFor(source string) []any {
	for _, q := range r.Queries {
		if q.Source == source {
			return q.Identities
		}
	}
	return nil
}

// Env is the round log of one run: an append-only record of every round that
// issued at least one data-source call. It is a side channel for auditing and
// tests; the scheduler never reads it back.
type Env struct {
	rounds []Round
}

// Rounds returns the executed rounds in order.
func (e *Env) Rounds() []Round {
	out := make([]Round, len(e.rounds))
	copy(out, e.rounds)
	return out
}

func (e *Env) append(r Round) {
	e.rounds = append(e.rounds, r)
}
