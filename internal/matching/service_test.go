package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store, opts...), store
}

func countPair(t *testing.T, store *MemoryStore, kind Kind, key, category string) int {
	t.Helper()
	entries, err := store.List(context.Background(), kind)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.Key == key && e.Category == category {
			n++
		}
	}
	return n
}

func TestSubmitFound_RegisteredThenDuplicate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "12.345.678", Contact: "c"})
	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, first.Status)
	assert.Equal(t, "12345678", first.Entry.Key)
	assert.NotZero(t, first.Entry.InternalID)

	second, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "12345678", Contact: "c"})
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.Contains(t, second.Message, "12345678")
	assert.Contains(t, second.Message, "DNI")
	assert.Nil(t, second.Match)

	assert.Equal(t, 1, countPair(t, store, KindFound, "12345678", "DNI"))
}

func TestSubmitLost_RegisteredThenDuplicate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.SubmitLost(ctx, Submission{Category: "patente", Identifier: "ab 123 cd"})
	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, first.Status)
	assert.Zero(t, first.Entry.InternalID)

	second, err := svc.SubmitLost(ctx, Submission{Category: "PATENTE", Identifier: "AB-123-CD"})
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)

	assert.Equal(t, 1, countPair(t, store, KindLost, "AB123CD", "PATENTE"))
}

func TestSubmitFound_MatchesLostEntry(t *testing.T) {
	var events []MatchEvent
	svc, store := newTestService(t, WithMatchListener(func(ev MatchEvent) { events = append(events, ev) }))
	ctx := context.Background()

	_, err := svc.SubmitLost(ctx, Submission{Category: "DNI", Identifier: "12345678", Contact: "owner"})
	require.NoError(t, err)

	res, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "12345678", Contact: "finder"})
	require.NoError(t, err)
	assert.Equal(t, StatusMatch, res.Status)
	require.NotNil(t, res.Match)
	assert.Equal(t, "owner", res.Match.Contact)

	assert.Equal(t, 1, countPair(t, store, KindFound, "12345678", "DNI"))

	require.Len(t, events, 1)
	assert.Equal(t, KindFound, events[0].Trigger)
	assert.Equal(t, "finder", events[0].Found.Contact)
	assert.Equal(t, "owner", events[0].Lost.Contact)
}

func TestSubmitFound_RepeatedMatchStillReportsMatch(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitLost(ctx, Submission{Category: "DNI", Identifier: "12345678", Contact: "owner"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "12345678", Contact: "finder"})
		require.NoError(t, err)
		assert.Equal(t, StatusMatch, res.Status)
	}
	assert.Equal(t, 1, countPair(t, store, KindFound, "12345678", "DNI"))
}

func TestSubmitLost_MatchesFoundEntry(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitFound(ctx, Submission{Category: "CEDULA", Identifier: "AA11", Contact: "finder"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := svc.SubmitLost(ctx, Submission{Category: "cedula", Identifier: "aa-11", Contact: "owner"})
		require.NoError(t, err)
		assert.Equal(t, StatusMatch, res.Status)
		require.NotNil(t, res.Match)
		assert.Equal(t, "finder", res.Match.Contact)
	}
	assert.Equal(t, 1, countPair(t, store, KindLost, "AA11", "CEDULA"))
}

func TestSubmit_DifferentCategoryDoesNotMatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitLost(ctx, Submission{Category: "DNI", Identifier: "123"})
	require.NoError(t, err)

	res, err := svc.SubmitFound(ctx, Submission{Category: "PATENTE", Identifier: "123"})
	require.NoError(t, err)
	assert.Equal(t, StatusRegistered, res.Status)
}

func TestSubmit_CategoryDefaultsToOther(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.SubmitFound(context.Background(), Submission{Identifier: "xyz"})
	require.NoError(t, err)
	assert.Equal(t, "OTHER", res.Entry.Category)
}

func TestSubmit_RejectsEmptyIdentifier(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: " .- "})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SubmitLost(ctx, Submission{Category: "DNI"})
	require.ErrorIs(t, err, ErrValidation)

	n, _ := store.Count(ctx, KindFound)
	assert.Zero(t, n)
}

func TestSubmitFound_InternalIDsIncrease(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	a, err := svc.SubmitFound(ctx, Submission{Identifier: "A"})
	require.NoError(t, err)
	b, err := svc.SubmitFound(ctx, Submission{Identifier: "B"})
	require.NoError(t, err)

	assert.Greater(t, b.Entry.InternalID, a.Entry.InternalID)
	assert.Equal(t, fixed, a.Entry.CreatedAt)
}

func TestSubmitFound_CarriesPayload(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitFound(ctx, Submission{Identifier: "A", Payload: map[string]string{"tipo": "hallazgo"}})
	require.NoError(t, err)

	entries, err := store.List(ctx, KindFound)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hallazgo", entries[0].Payload["tipo"])
}

func TestDeleteMatch_RemovesBothSides(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitLost(ctx, Submission{Category: "DNI", Identifier: "12345678"})
	require.NoError(t, err)
	_, err = svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "12345678"})
	require.NoError(t, err)

	counts, err := svc.DeleteMatch(ctx, "12345678")
	require.NoError(t, err)
	assert.Equal(t, DeleteCounts{Found: 1, Lost: 1}, counts)

	assert.Zero(t, countPair(t, store, KindFound, "12345678", "DNI"))
	assert.Zero(t, countPair(t, store, KindLost, "12345678", "DNI"))
}

// Deletion is keyed by identifier only, so unrelated categories sharing the
// key go too.
func TestDeleteMatch_IgnoresCategory(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "777"})
	require.NoError(t, err)
	_, err = svc.SubmitFound(ctx, Submission{Category: "OTHER", Identifier: "777"})
	require.NoError(t, err)
	_, err = svc.SubmitLost(ctx, Submission{Category: "PATENTE", Identifier: "777"})
	require.NoError(t, err)
	_, err = svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "888"})
	require.NoError(t, err)

	counts, err := svc.DeleteMatch(ctx, "777")
	require.NoError(t, err)
	assert.Equal(t, DeleteCounts{Found: 2, Lost: 1}, counts)

	n, _ := store.Count(ctx, KindFound)
	assert.Equal(t, 1, n)
}

func TestDeleteMatch_NothingToRemove(t *testing.T) {
	svc, _ := newTestService(t)

	counts, err := svc.DeleteMatch(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, DeleteCounts{}, counts)
}

func TestDeleteFound_FirstOnly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "555"})
	require.NoError(t, err)
	_, err = svc.SubmitFound(ctx, Submission{Category: "OTHER", Identifier: "555"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFound(ctx, "555"))

	entries, err := store.List(ctx, KindFound)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "OTHER", entries[0].Category)
}

func TestDeleteFoundAndLost_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteFound(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, svc.DeleteLost(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, svc.DeleteLost(ctx, ""), ErrValidation)
}

func TestDeleteLost_NormalizesKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitLost(ctx, Submission{Category: "DNI", Identifier: "12345678"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLost(ctx, "12.345.678"))
}

func TestSnapshotAndCounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _ = svc.SubmitFound(ctx, Submission{Identifier: "A"})
	_, _ = svc.SubmitFound(ctx, Submission{Identifier: "B"})
	_, _ = svc.SubmitLost(ctx, Submission{Identifier: "C"})

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Found, 2)
	assert.Len(t, snap.Lost, 1)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Found: 2, Lost: 1}, counts)
}

func TestSubmit_ConcurrentSamePairInsertsOnce(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[Status]int{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.SubmitFound(ctx, Submission{Category: "DNI", Identifier: "99.999.999"})
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			statuses[res.Status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[StatusRegistered])
	assert.Equal(t, 49, statuses[StatusDuplicate])
	assert.Equal(t, 1, countPair(t, store, KindFound, "99999999", "DNI"))
}
