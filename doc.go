// Package fetch implements a round-based, batch-friendly data-fetching engine.
// Callers describe what data they need as immutable, composable Fetch values;
// the scheduler discovers which requests are independent, batches requests to
// the same data source, deduplicates identical requests through a cache, and
// executes the minimum number of sequential rounds the data dependencies allow.
//
// # Overview
//
// A Fetch[A] is an expression tree over four node shapes:
//   - a pure value (or an already-failed computation),
//   - a single request for one identity from one data source,
//   - a sequential composition (FlatMap): the continuation cannot be inspected
//     until the prior step has produced a value,
//   - an independent composition (Map2, Both, Traverse, Sequence): all branches
//     are visible to the scheduler at once and may share a round.
//
// This shape distinction is the whole dependency analysis: sequencing hides
// work behind a continuation and therefore forces a later round, while
// independent composition exposes work immediately and therefore allows
// batching within the current round.
//
// # Execution Model
//
// Run and RunEnv repeat the following cycle until the description reduces to a
// value or an error:
//
//	A. Reduction
//	   - Pure nodes collapse to their values. Requests already present in the
//	     cache collapse to the cached result (or its error marker). A FlatMap
//	     whose prior collapsed invokes its continuation immediately. An
//	     independent composition whose branches all collapsed merges them.
//	     Reduction consumes no round.
//
//	B. Frontier collection
//	   - All requests reachable without crossing an unresolved FlatMap boundary
//	     form the frontier. Branches of nested independent compositions are
//	     siblings in the same frontier. Identical (source, identity) pairs are
//	     deduplicated.
//
//	C. Dispatch
//	   - The frontier is partitioned by data-source instance. Each partition
//	     issues exactly one call — FetchOne for a single identity, FetchBatch
//	     otherwise — and all partitions run concurrently. The round is a
//	     synchronization barrier: no later work starts until every call in the
//	     round returned.
//
//	D. Commit
//	   - Returned values are written to the cache; identities omitted from a
//	     batch response are written as per-identity error markers. One Round
//	     record is appended to the Env. Resolved requests are substituted back
//	     into the description, which may expose continuations for the next
//	     reduction.
//
// A round is counted only when it issues at least one data-source call. A pure
// value, or a description fully served by the cache, produces zero rounds.
//
// # Errors and Partial Results
//
// A failed data-source call fails the run after the in-flight round completes;
// results committed by sibling calls in the same round stay in the cache, and
// the Round records appended so far remain valid and are returned alongside
// the error. The engine never retries; retry policy belongs to the source.
//
// # Observability
//
// The scheduler publishes run, round, and batch lifecycle events on the
// process-local event bus. The fetchotel subpackage bridges those events to
// OpenTelemetry spans. Neither influences scheduling.
package fetch
