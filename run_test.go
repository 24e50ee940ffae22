package fetch

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newUsers() *MockSource[int, string] {
	return NewMockSource("users", map[int]string{
		1: "ada", 2: "grace", 3: "edsger", 4: "barbara",
	})
}

func newLists() *MockSource[int, []int] {
	return NewMockSource("lists", map[int][]int{3: {1, 2, 4}})
}

func TestPureValueRunsZeroRounds(t *testing.T) {
	cache := NewCache()
	v, env, err := RunEnv(context.Background(), Pure(42), cache)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Empty(t, env.Rounds())
	require.Equal(t, 0, cache.Size())
}

func TestSingleRequestResolvesInOneRound(t *testing.T) {
	users := newUsers()
	v, env, err := RunEnv(context.Background(), Get(users, 1), nil)
	require.NoError(t, err)
	require.Equal(t, "ada", v)
	require.Len(t, env.Rounds(), 1)

	// A singleton identity set goes through FetchOne.
	calls := users.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, CallKindOne, calls[0].Kind)
	require.Equal(t, []any{1}, calls[0].IDs)
}

func TestSequencingForcesANewRound(t *testing.T) {
	users := newUsers()
	fetch := FlatMap(Get(users, 1), func(_ string) Fetch[string] {
		return Get(users, 2)
	})

	v, env, err := RunEnv(context.Background(), fetch, nil)
	require.NoError(t, err)
	require.Equal(t, "grace", v)
	require.Len(t, env.Rounds(), 2)
	require.Equal(t, 2, users.CallCount())

	rounds := env.Rounds()
	require.Equal(t, []any{1}, rounds[0].IdentitiesFor("users"))
	require.Equal(t, []any{2}, rounds[1].IdentitiesFor("users"))
}

func TestSequencedSameIdentityResolvesFromCache(t *testing.T) {
	users := newUsers()
	fetch := FlatMap(Get(users, 1), func(_ string) Fetch[string] {
		return Get(users, 1)
	})

	v, env, err := RunEnv(context.Background(), fetch, nil)
	require.NoError(t, err)
	require.Equal(t, "ada", v)
	// The second request is served by the cache without a dispatch, so it
	// contributes no round.
	require.Len(t, env.Rounds(), 1)
	require.Equal(t, 1, users.CallCount())
}

func TestIndependentSourcesShareARound(t *testing.T) {
	users := newUsers()
	lists := newLists()
	fetch := Both(Get(users, 1), Get(lists, 3))

	v, env, err := RunEnv(context.Background(), fetch, nil)
	require.NoError(t, err)
	require.Equal(t, "ada", v.First)
	require.Equal(t, []int{1, 2, 4}, v.Second)

	rounds := env.Rounds()
	require.Len(t, rounds, 1)
	require.Equal(t, []any{1}, rounds[0].IdentitiesFor("users"))
	require.Equal(t, []any{3}, rounds[0].IdentitiesFor("lists"))
	require.Nil(t, rounds[0].IdentitiesFor("unqueried"))
	require.Equal(t, 1, users.CallCount())
	require.Equal(t, 1, lists.CallCount())
}

func TestSameSourceBatchesIntoOneCall(t *testing.T) {
	users := newUsers()
	fetch := Map2(Get(users, 1), Get(users, 2), func(a, b string) string {
		return a + " & " + b
	})

	v, env, err := RunEnv(context.Background(), fetch, nil)
	require.NoError(t, err)
	require.Equal(t, "ada & grace", v)
	require.Len(t, env.Rounds(), 1)

	calls := users.Calls()
	require.Len(t, calls, 1, "both identities must travel in one batch call")
	require.Equal(t, CallKindBatch, calls[0].Kind)
	if diff := cmp.Diff([]any{1, 2}, calls[0].IDs); diff != "" {
		t.Fatalf("batch identity set mismatch (-want +got):\n%s", diff)
	}
}

func TestDependentTraverseTakesTwoRounds(t *testing.T) {
	users := newUsers()
	lists := newLists()
	fetch := FlatMap(Get(lists, 3), func(ids []int) Fetch[[]string] {
		return Traverse(ids, func(id int) Fetch[string] { return Get(users, id) })
	})

	v, env, err := RunEnv(context.Background(), fetch, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"ada", "grace", "barbara"}, v)

	rounds := env.Rounds()
	require.Len(t, rounds, 2)
	require.Equal(t, []any{3}, rounds[0].IdentitiesFor("lists"))
	if diff := cmp.Diff([]any{1, 2, 4}, rounds[1].IdentitiesFor("users")); diff != "" {
		t.Fatalf("second-round identity set mismatch (-want +got):\n%s", diff)
	}
	// The traverse collapses into a single batch call.
	require.Equal(t, 1, users.CallCount())
}

func TestIndependentBranchesInterleaveRounds(t *testing.T) {
	users := newUsers()
	singles := NewMockSource("singles", map[int]string{3: "solo"})

	seq1 := FlatMap(Get(users, 1), func(_ string) Fetch[string] { return Get(users, 2) })
	seq2 := FlatMap(Get(users, 3), func(_ string) Fetch[string] { return Get(users, 4) })
	inner := Map2(seq1, seq2, func(a, b string) string { return a + "+" + b })
	fetch := Map2(inner, Get(singles, 3), func(a, b string) string { return a + "+" + b })

	v, env, err := RunEnv(context.Background(), fetch, nil)
	require.NoError(t, err)
	require.Equal(t, "grace+barbara+solo", v)

	// Total rounds equal the maximum depth across branches, not the sum.
	rounds := env.Rounds()
	require.Len(t, rounds, 2)
	if diff := cmp.Diff([]any{1, 3}, rounds[0].IdentitiesFor("users")); diff != "" {
		t.Fatalf("first-round identity set mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []any{3}, rounds[0].IdentitiesFor("singles"))
	if diff := cmp.Diff([]any{2, 4}, rounds[1].IdentitiesFor("users")); diff != "" {
		t.Fatalf("second-round identity set mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, rounds[1].IdentitiesFor("singles"))
	require.Equal(t, 1, singles.CallCount())
}

func TestRerunningReducedResultIsNoop(t *testing.T) {
	users := newUsers()
	cache := NewCache()
	v, _, err := RunEnv(context.Background(), Get(users, 1), cache)
	require.NoError(t, err)
	size := cache.Size()

	v2, env, err := RunEnv(context.Background(), Pure(v), cache)
	require.NoError(t, err)
	require.Equal(t, v, v2)
	require.Empty(t, env.Rounds())
	require.Equal(t, size, cache.Size())
}

func TestCacheHitAvoidsRefetch(t *testing.T) {
	users := newUsers()
	cache := NewCache()

	_, env1, err := RunEnv(context.Background(), Get(users, 1), cache)
	require.NoError(t, err)
	require.Len(t, env1.Rounds(), 1)

	// The cached identity joins a round driven by the fresh one, but only
	// the fresh identity is dispatched.
	fetch := Both(Get(users, 1), Get(users, 2))
	v, env2, err := RunEnv(context.Background(), fetch, cache)
	require.NoError(t, err)
	require.Equal(t, "ada", v.First)
	require.Equal(t, "grace", v.Second)

	rounds := env2.Rounds()
	require.Len(t, rounds, 1)
	require.Equal(t, []any{2}, rounds[0].IdentitiesFor("users"))
	require.Equal(t, 1, rounds[0].CacheHits)
	require.Equal(t, 2, users.CallCount(), "one call per run, no refetch of identity 1")
}

func TestFullyCachedRunDispatchesNothing(t *testing.T) {
	users := newUsers()
	cache := NewCache()
	_, _, err := RunEnv(context.Background(), Both(Get(users, 1), Get(users, 2)), cache)
	require.NoError(t, err)
	calls := users.CallCount()

	v, env, err := RunEnv(context.Background(), Both(Get(users, 2), Get(users, 1)), cache)
	require.NoError(t, err)
	require.Equal(t, "grace", v.First)
	require.Equal(t, "ada", v.Second)
	require.Empty(t, env.Rounds())
	require.Equal(t, calls, users.CallCount())
}
