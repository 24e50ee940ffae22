package fetch

import (
	"context"
	"fmt"
	"sync"
)

// CallKind identifies whether a recorded call came through FetchOne or
// FetchBatch.
const (
	CallKindOne   = "one"
	CallKindBatch = "batch"
)

// SourceCall is one recorded data-source invocation. Batch calls share a
// BatchID > 0; FetchOne calls record 0.
type SourceCall struct {
	Kind    string
	IDs     []any
	BatchID int
}

// MockSource is an in-memory Source backed by a fixed identity table. It
// records every call so tests can assert how the scheduler batched and how
// many rounds actually reached the source.
type MockSource[I comparable, A any] struct {
	name string

	mu       sync.Mutex
	data     map[I]A
	failWith error
	calls    []SourceCall
	batchSeq int
}

// NewMockSource creates a MockSource serving the given table. Identities
// absent from the table are omitted from batch responses and error from
// FetchOne.
func NewMockSource[I comparable, A any](name string, data map[I]A) *MockSource[I, A] {
	copied := make(map[I]A, len(data))
	for k, v := range data {
		copied[k] = v
	}
	return &MockSource[I, A]{name: name, data: copied}
}

// SetFailure makes every subsequent call fail with err. Passing nil restores
// normal behavior.
func (m *MockSource[I, A]) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Name implements Source.
func (m *MockSource[I, A]) Name() string { return m.name }

// FetchOne implements Source. Unknown identities are reported as call errors:
// a single-identity call has no response to omit them from.
func (m *MockSource[I, A]) FetchOne(ctx context.Context, id I) (A, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SourceCall{Kind: CallKindOne, IDs: []any{id}})

	var zero A
	if m.failWith != nil {
		return zero, m.failWith
	}
	v, ok := m.data[id]
	if !ok {
		return zero, fmt.Errorf("%s: identity %v not found", m.name, id)
	}
	return v, nil
}

// FetchBatch implements Source. The response contains only identities present
// in the table; the engine turns omissions into per-identity failures.
func (m *MockSource[I, A]) FetchBatch(ctx context.Context, ids []I) (map[I]A, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchSeq++
	rec := SourceCall{Kind: CallKindBatch, BatchID: m.batchSeq}
	for _, id := range ids {
		rec.IDs = append(rec.IDs, id)
	}
	m.calls = append(m.calls, rec)

	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make(map[I]A, len(ids))
	for _, id := range ids {
		if v, ok := m.data[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// Calls returns a copy of the recorded calls in order.
func (m *MockSource[I, A]) Calls() []SourceCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SourceCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount reports the total number of calls the source received.
func (m *MockSource[I, A]) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and counters; the identity table remains.
func (m *MockSource[I, A]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.batchSeq = 0
}
