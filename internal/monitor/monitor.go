// Package monitor polls the managed unit's state on an interval, keeps a
// short in-memory history, records status transitions, and fans snapshots
// out to subscribers.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cotpanel/cotpanel/internal/storage"
	"github.com/cotpanel/cotpanel/internal/unit"
)

// Snapshot is one observation of the managed unit.
type Snapshot struct {
	Timestamp time.Time          `json:"timestamp"`
	Unit      unit.Info          `json:"unit"`
	Process   *unit.ProcessStats `json:"process,omitempty"`
}

// Poller drives the status loop.
type Poller struct {
	manager  unit.Manager
	storage  *storage.Storage
	log      zerolog.Logger
	interval time.Duration
	histSize int

	mu         sync.RWMutex
	history    []Snapshot
	lastStatus string

	subscribers []chan Snapshot
	subMu       sync.RWMutex

	stats func(pid int) (*unit.ProcessStats, error)
}

// NewPoller creates a poller over the unit manager. store may be nil, in
// which case transitions are only logged.
func NewPoller(manager unit.Manager, store *storage.Storage, log zerolog.Logger, interval time.Duration, historySize int) *Poller {
	return &Poller{
		manager:  manager,
		storage:  store,
		log:      log,
		interval: interval,
		histSize: historySize,
		history:  make([]Snapshot, 0, historySize),
		stats:    unit.Stats,
	}
}

// Start polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll gathers one snapshot
func (p *Poller) poll(ctx context.Context) {
	snapshot := Snapshot{Timestamp: time.Now().UTC()}

	info, err := p.manager.Get(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("unit status poll failed")
		info = unit.Info{Name: p.manager.Name(), Status: unit.StatusUnknown}
	}
	snapshot.Unit = info

	if info.MainPID > 0 {
		if stats, err := p.stats(info.MainPID); err == nil {
			snapshot.Process = stats
		}
	}

	p.recordTransition(info.Status)

	p.mu.Lock()
	p.history = append(p.history, snapshot)
	if len(p.history) > p.histSize {
		p.history = p.history[1:]
	}
	p.mu.Unlock()

	p.notifySubscribers(snapshot)
}

func (p *Poller) recordTransition(status string) {
	p.mu.Lock()
	last := p.lastStatus
	p.lastStatus = status
	p.mu.Unlock()

	if last == "" || last == status {
		return
	}

	p.log.Info().Str("from", last).Str("to", status).Msg("unit status changed")
	if p.storage == nil {
		return
	}
	event := storage.StatusEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		From:      last,
		To:        status,
	}
	if err := p.storage.AddStatusEvent(event); err != nil {
		p.log.Warn().Err(err).Msg("failed to record status event")
	}
}

// Subscribe returns a channel that receives every new snapshot.
func (p *Poller) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 10)
	p.subMu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (p *Poller) Unsubscribe(ch chan Snapshot) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for i, sub := range p.subscribers {
		if sub == ch {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// notifySubscribers sends the snapshot to everyone listening. Full
// channels are skipped rather than blocked on.
func (p *Poller) notifySubscribers(snapshot Snapshot) {
	p.subMu.RLock()
	defer p.subMu.RUnlock()

	for _, ch := range p.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Latest returns the most recent snapshot, zero-valued before the first
// poll completes.
func (p *Poller) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.history) == 0 {
		return Snapshot{}
	}
	return p.history[len(p.history)-1]
}

// History returns a copy of the retained snapshots, oldest first.
func (p *Poller) History() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]Snapshot, len(p.history))
	copy(result, p.history)
	return result
}
