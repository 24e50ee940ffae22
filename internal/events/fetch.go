// Package events defines the payload types published on the event bus during
// a run. Context values carry the run ID from package runid.
package events

import "time"

// RunStart is emitted when a run begins, before the first reduction.
type RunStart struct{}

// RunFinish is emitted after a run produced its result or failed.
type RunFinish struct {
	Rounds   int
	Err      error
	Duration time.Duration
}

// RoundStart is emitted before a round's data-source calls are dispatched.
type RoundStart struct {
	Number  int
	Sources []string
}

// RoundFinish is emitted after every call of the round returned and the
// results were committed.
type RoundFinish struct {
	Number   int
	Queries  int
	Err      error
	Duration time.Duration
}

// BatchStart is emitted before one source's call within a round.
type BatchStart struct {
	Source     string
	Identities int
}

// BatchFinish is emitted after one source's call within a round completes.
type BatchFinish struct {
	Source     string
	Identities int
	Err        error
	Duration   time.Duration
}
