package remind

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data    map[string]string
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryStore) Load(context.Context) (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memoryStore) Save(_ context.Context, tracking map[string]string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.data = make(map[string]string, len(tracking))
	for k, v := range tracking {
		m.data[k] = v
	}
	return nil
}

func newTestScheduler(t *testing.T, store *memoryStore) *Scheduler {
	t.Helper()
	s := NewScheduler(store, 48*time.Hour)
	require.NoError(t, s.Begin(context.Background()))
	return s
}

func TestShouldSendWindow(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, &memoryStore{})
	t0 := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	assert.True(t, s.ShouldSend("rec-1", t0), "never notified")

	s.RecordSent("rec-1", t0)
	assert.False(t, s.ShouldSend("rec-1", t0.Add(48*time.Hour-time.Second)))
	assert.True(t, s.ShouldSend("rec-1", t0.Add(48*time.Hour)))
}

func TestShouldSendUnparseableTimestamp(t *testing.T) {
	t.Parallel()

	store := &memoryStore{data: map[string]string{"rec-1": "not-a-time"}}
	s := newTestScheduler(t, store)

	assert.True(t, s.ShouldSend("rec-1", time.Now()))
}

func TestTrackingSurvivesRestart(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	t0 := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	s := newTestScheduler(t, store)
	s.RecordSent("rec-1", t0)
	require.NoError(t, s.Flush(context.Background()))

	// A fresh scheduler over the same store sees the timestamp.
	restarted := newTestScheduler(t, store)
	assert.False(t, restarted.ShouldSend("rec-1", t0.Add(time.Hour)))
	assert.True(t, restarted.ShouldSend("rec-1", t0.Add(72*time.Hour)))
}

func TestResetMakesEligibleImmediately(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	t0 := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	s := newTestScheduler(t, store)
	s.RecordSent("rec-1", t0)
	s.RecordSent("rec-2", t0)
	require.NoError(t, s.Flush(context.Background()))

	require.NoError(t, s.Reset(context.Background(), "rec-1"))
	assert.True(t, s.ShouldSend("rec-1", t0))
	assert.False(t, s.ShouldSend("rec-2", t0.Add(time.Hour)), "other records keep their window")

	// Reset persisted, not just in memory.
	_, tracked := store.data["rec-1"]
	assert.False(t, tracked)
}

func TestResetAll(t *testing.T) {
	t.Parallel()

	store := &memoryStore{data: map[string]string{"a": "x", "b": "y"}}
	s := newTestScheduler(t, store)

	require.NoError(t, s.ResetAll(context.Background()))
	assert.Empty(t, store.data)
	assert.True(t, s.ShouldSend("a", time.Now()))
}

func TestBeginLoadFailureStartsEmpty(t *testing.T) {
	t.Parallel()

	store := &memoryStore{loadErr: errors.New("disk gone")}
	s := NewScheduler(store, time.Hour)

	err := s.Begin(context.Background())
	assert.Error(t, err)
	assert.True(t, s.ShouldSend("rec-1", time.Now()))
}

func TestResetAbortsOnLoadFailure(t *testing.T) {
	t.Parallel()

	store := &memoryStore{loadErr: errors.New("disk gone"), data: map[string]string{"rec-1": "x"}}
	s := NewScheduler(store, time.Hour)

	// A failed load must not wipe the store with an empty save.
	err := s.Reset(context.Background(), "rec-1")
	assert.Error(t, err)
	assert.Zero(t, store.saves)
}
