package alert

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgehq/nudge/internal/eventlog"
	"github.com/nudgehq/nudge/internal/hookevent"
	"github.com/nudgehq/nudge/internal/notify"
	"github.com/nudgehq/nudge/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *eventlog.Log) {
	t.Helper()
	dir := t.TempDir()
	log := eventlog.New(filepath.Join(dir, "events.jsonl"))
	return NewRegistry(store.New(dir), log), log
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload *hookevent.Payload
		want    Type
	}{
		{"nil payload", nil, TypeNone},
		{"permission type", &hookevent.Payload{NotificationType: "permission_prompt"}, TypePermission},
		{"idle type", &hookevent.Payload{NotificationType: "idle_prompt", Message: "permission"}, TypeInput},
		{"permission message", &hookevent.Payload{Message: "Claude needs your permission to use Bash"}, TypePermission},
		{"waiting message", &hookevent.Payload{Message: "Claude is waiting for your input"}, TypeInput},
		{"error message", &hookevent.Payload{Message: "Tool call failed with an error"}, TypeError},
		{"routine progress", &hookevent.Payload{Message: "Finished reading 12 files"}, TypeNone},
		{"unknown type falls back to message", &hookevent.Payload{NotificationType: "other", Message: "build failed"}, TypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.payload))
		})
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"permission": TypePermission, "INPUT": TypeInput, "error": TypeError, "none": TypeNone, "": TypeNone} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseType("bogus")
	assert.Error(t, err)
}

func TestSetRefreshPreservesCountAndWatcher(t *testing.T) {
	r, log := newTestRegistry(t)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return t0 }

	a, created, err := r.Set("S1", "proj1", TypePermission, "needs permission")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, a.ReminderCount)

	n, ok, err := r.IncrementReminder("S1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, n)
	require.NoError(t, r.SetWatcher("S1", 4242))

	r.now = func() time.Time { return t0.Add(3 * time.Minute) }
	a, created, err = r.Set("S1", "proj1", TypeInput, "waiting for input")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, TypeInput, a.Type)
	assert.Equal(t, "waiting for input", a.Message)
	assert.Equal(t, t0.Add(3*time.Minute), a.CreatedAt)
	assert.Equal(t, 1, a.ReminderCount)
	assert.Equal(t, 4242, a.WatcherPID)

	all, err := r.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	events, err := log.Read(eventlog.Filter{})
	require.NoError(t, err)
	kinds := make([]string, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{eventlog.KindAlertCreated, eventlog.KindAlertRefreshed}, kinds)
}

func TestSetRequiresSession(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, _, err := r.Set("", "proj", TypeInput, "x")
	assert.Error(t, err)
}

func TestClearAndIncrementMissing(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, _, err := r.Set("S1", "proj1", TypeError, "boom")
	require.NoError(t, err)

	cleared, err := r.Clear("S1", "test")
	require.NoError(t, err)
	assert.True(t, cleared)

	cleared, err = r.Clear("S1", "test")
	require.NoError(t, err)
	assert.False(t, cleared)

	_, ok, err := r.IncrementReminder("S1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Watcher bookkeeping on a missing alert is a no-op
	require.NoError(t, r.SetWatcher("S1", 1))
	a, err := r.Get("S1")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestReleaseWatcherOnlyWhenOwned(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, _, err := r.Set("S1", "proj1", TypeInput, "waiting")
	require.NoError(t, err)
	require.NoError(t, r.SetWatcher("S1", 200))

	require.NoError(t, r.ReleaseWatcher("S1", 100))
	a, err := r.Get("S1")
	require.NoError(t, err)
	assert.Equal(t, 200, a.WatcherPID)

	require.NoError(t, r.ReleaseWatcher("S1", 200))
	a, err = r.Get("S1")
	require.NoError(t, err)
	assert.Zero(t, a.WatcherPID)
}

func TestClearAll(t *testing.T) {
	r, _ := newTestRegistry(t)
	for _, id := range []string{"S1", "S2", "S3"} {
		_, _, err := r.Set(id, "p", TypeInput, "waiting")
		require.NoError(t, err)
	}
	res, err := r.ClearAll()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S1", "S2", "S3"}, res.Cleared)
	assert.Empty(t, res.TerminatedPIDs)

	all, err := r.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

type fakeSpawner struct {
	mu    sync.Mutex
	calls []string
	pid   int
	err   error
}

func (f *fakeSpawner) Spawn(sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sessionID)
	if f.err != nil {
		return 0, f.err
	}
	f.pid++
	return f.pid, nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, note)
}

func newTestHandler(t *testing.T, alive map[int]bool) (*Handler, *fakeSpawner, *recordingNotifier) {
	t.Helper()
	r, log := newTestRegistry(t)
	sp := &fakeSpawner{pid: 1000}
	n := &recordingNotifier{}
	return &Handler{
		Registry:  r,
		Spawner:   sp,
		Notifier:  n,
		Templates: notify.DefaultTemplates(),
		Events:    log,
		IsRunning: func(pid int) bool { return alive[pid] },
	}, sp, n
}

func TestOnNotificationSingleWatcher(t *testing.T) {
	alive := map[int]bool{}
	h, sp, n := newTestHandler(t, alive)
	ctx := context.Background()

	res, err := h.OnNotification(ctx, "S1", "proj1", TypePermission, "needs permission")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.WatcherSpawned)
	assert.Equal(t, 1001, res.WatcherPID)
	alive[1001] = true

	// Refresh while the watcher lives: no second watcher
	res, err = h.OnNotification(ctx, "S1", "proj1", TypeInput, "waiting for input")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.WatcherSpawned)
	assert.Equal(t, 1001, res.WatcherPID)
	assert.Equal(t, []string{"S1"}, sp.calls)

	require.Len(t, n.got, 1, "only the new alert is announced")
	assert.Equal(t, "proj1 needs your permission", n.got[0].Speech)

	// Dead watcher is replaced
	alive[1001] = false
	res, err = h.OnNotification(ctx, "S1", "proj1", TypeInput, "still waiting")
	require.NoError(t, err)
	assert.True(t, res.WatcherSpawned)
	assert.Equal(t, 1002, res.WatcherPID)

	a, err := h.Registry.Get("S1")
	require.NoError(t, err)
	assert.Equal(t, 1002, a.WatcherPID)
}

func TestOnNotificationRoutineIsIgnored(t *testing.T) {
	h, sp, n := newTestHandler(t, nil)
	res, err := h.OnNotification(context.Background(), "S1", "proj1", TypeNone, "progress")
	require.NoError(t, err)
	assert.Nil(t, res.Alert)
	assert.Empty(t, sp.calls)
	assert.Empty(t, n.got)

	a, err := h.Registry.Get("S1")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestOnNotificationSpawnFailureKeepsAlert(t *testing.T) {
	h, sp, _ := newTestHandler(t, nil)
	sp.err = errors.New("no executable")
	_, err := h.OnNotification(context.Background(), "S1", "proj1", TypeError, "boom")
	assert.Error(t, err)

	a, err := h.Registry.Get("S1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Zero(t, a.WatcherPID)
}

func TestOnPromptSubmit(t *testing.T) {
	h, _, _ := newTestHandler(t, nil)
	_, err := h.OnNotification(context.Background(), "S1", "proj1", TypeInput, "waiting")
	require.NoError(t, err)

	assert.True(t, h.OnPromptSubmit("S1"))
	assert.False(t, h.OnPromptSubmit("S1"))
	assert.False(t, h.OnPromptSubmit(""))
}

func TestConcurrentNotificationsSpawnOneWatcher(t *testing.T) {
	r, log := newTestRegistry(t)
	sp := &fakeSpawner{pid: 1000}
	h := &Handler{
		Registry:  r,
		Spawner:   sp,
		Templates: notify.DefaultTemplates(),
		Events:    log,
		IsRunning: func(pid int) bool { return pid > 1000 },
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.OnNotification(context.Background(), "S7", "proj7", TypePermission, "needs permission")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"S7"}, sp.calls)
	a, err := r.Get("S7")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1001, a.WatcherPID)
}

func TestEnsureWatcherWithoutAlert(t *testing.T) {
	r, _ := newTestRegistry(t)
	pid, spawned, err := r.EnsureWatcher("gone", func(int) bool { return false }, func() (int, error) {
		t.Fatal("spawn called for a missing alert")
		return 0, nil
	})
	require.NoError(t, err)
	assert.Zero(t, pid)
	assert.False(t, spawned)
}
