package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cotpanel/cotpanel/internal/storage"
	"github.com/cotpanel/cotpanel/internal/unit"
)

type fakeManager struct {
	mu    sync.Mutex
	infos []unit.Info
	err   error
	idx   int
}

func (f *fakeManager) Name() string { return "adsbcot" }

func (f *fakeManager) Get(ctx context.Context) (unit.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return unit.Info{}, f.err
	}
	i := f.idx
	if i >= len(f.infos) {
		i = len(f.infos) - 1
	}
	f.idx++
	return f.infos[i], nil
}

func (f *fakeManager) Start(ctx context.Context) error   { return nil }
func (f *fakeManager) Stop(ctx context.Context) error    { return nil }
func (f *fakeManager) Restart(ctx context.Context) error { return nil }
func (f *fakeManager) Enable(ctx context.Context) error  { return nil }
func (f *fakeManager) Disable(ctx context.Context) error { return nil }

func (f *fakeManager) IsActive(ctx context.Context) (string, error) {
	info, err := f.Get(ctx)
	return info.Status, err
}

func newTestPoller(t *testing.T, manager unit.Manager, store *storage.Storage) *Poller {
	t.Helper()
	p := NewPoller(manager, store, zerolog.Nop(), time.Minute, 3)
	p.stats = func(pid int) (*unit.ProcessStats, error) {
		return &unit.ProcessStats{PID: pid, CPUPercent: 1.5}, nil
	}
	return p
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "cotpanel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPollRecordsSnapshot(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{
		Name:    "adsbcot",
		Status:  unit.StatusRunning,
		MainPID: 4242,
	}}}
	p := newTestPoller(t, manager, nil)

	p.poll(context.Background())

	latest := p.Latest()
	assert.Equal(t, unit.StatusRunning, latest.Unit.Status)
	assert.False(t, latest.Timestamp.IsZero())
	require.NotNil(t, latest.Process)
	assert.Equal(t, 4242, latest.Process.PID)
}

func TestPollWithoutPIDSkipsProcessStats(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{
		Name:   "adsbcot",
		Status: unit.StatusStopped,
	}}}
	p := newTestPoller(t, manager, nil)

	p.poll(context.Background())

	assert.Nil(t, p.Latest().Process)
}

func TestPollErrorFallsBackToUnknown(t *testing.T) {
	manager := &fakeManager{err: errors.New("dbus is down")}
	p := newTestPoller(t, manager, nil)

	p.poll(context.Background())

	latest := p.Latest()
	assert.Equal(t, unit.StatusUnknown, latest.Unit.Status)
	assert.Equal(t, "adsbcot", latest.Unit.Name)
}

func TestHistoryCapped(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{Name: "adsbcot", Status: unit.StatusRunning}}}
	p := newTestPoller(t, manager, nil)

	for i := 0; i < 5; i++ {
		p.poll(context.Background())
	}

	assert.Len(t, p.History(), 3)
}

func TestHistoryReturnsCopy(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{Name: "adsbcot", Status: unit.StatusRunning}}}
	p := newTestPoller(t, manager, nil)

	p.poll(context.Background())

	history := p.History()
	require.Len(t, history, 1)
	history[0].Unit.Status = "tampered"

	assert.Equal(t, unit.StatusRunning, p.Latest().Unit.Status)
}

func TestLatestBeforeFirstPoll(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{Name: "adsbcot"}}}
	p := newTestPoller(t, manager, nil)

	assert.Equal(t, Snapshot{}, p.Latest())
}

func TestTransitionsRecorded(t *testing.T) {
	store := newTestStorage(t)
	manager := &fakeManager{infos: []unit.Info{
		{Name: "adsbcot", Status: unit.StatusStopped},
		{Name: "adsbcot", Status: unit.StatusRunning},
		{Name: "adsbcot", Status: unit.StatusRunning},
		{Name: "adsbcot", Status: unit.StatusFailed},
	}}
	p := newTestPoller(t, manager, store)

	for i := 0; i < 4; i++ {
		p.poll(context.Background())
	}

	events, err := store.LatestStatusEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first.
	assert.Equal(t, unit.StatusRunning, events[0].From)
	assert.Equal(t, unit.StatusFailed, events[0].To)
	assert.Equal(t, unit.StatusStopped, events[1].From)
	assert.Equal(t, unit.StatusRunning, events[1].To)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{Name: "adsbcot", Status: unit.StatusRunning}}}
	p := newTestPoller(t, manager, nil)

	ch := p.Subscribe()
	p.poll(context.Background())

	select {
	case snapshot := <-ch:
		assert.Equal(t, unit.StatusRunning, snapshot.Unit.Status)
	case <-time.After(time.Second):
		t.Fatal("no snapshot received")
	}

	p.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestNotifySkipsFullSubscribers(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{Name: "adsbcot", Status: unit.StatusRunning}}}
	p := newTestPoller(t, manager, nil)

	ch := p.Subscribe()
	defer p.Unsubscribe(ch)

	// Well past the channel buffer; poll must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 25; i++ {
			p.poll(context.Background())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poll blocked on a full subscriber")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	manager := &fakeManager{infos: []unit.Info{{Name: "adsbcot", Status: unit.StatusRunning}}}
	p := newTestPoller(t, manager, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	// The initial poll runs before the first tick.
	require.Eventually(t, func() bool {
		return len(p.History()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestGetSystemInfo(t *testing.T) {
	info, err := GetSystemInfo(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, info.Hostname)
	assert.Greater(t, info.NumCPU, 0)
}
