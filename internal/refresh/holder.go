// Package refresh runs the ingestion pipeline on a fixed interval and keeps
// the most recent result available to readers.
package refresh

import (
	"sync"
	"time"

	"github.com/lnies/pressure-display/internal/ingest"
	"github.com/lnies/pressure-display/internal/seriesdb"
	"github.com/rs/zerolog/log"
)

// Snapshot is one published refresh. It is immutable once published.
type Snapshot struct {
	Seq         uint64
	PublishedAt time.Time
	Result      *ingest.Result
	index       *seriesdb.Index
}

// Tick is the notification sent to subscribers after every publish.
type Tick struct {
	Seq         uint64    `json:"seq" msgpack:"seq"`
	RunID       string    `json:"runId" msgpack:"runId"`
	PublishedAt time.Time `json:"publishedAt" msgpack:"publishedAt"`
	NoData      bool      `json:"noData" msgpack:"noData"`
	Rows        int       `json:"rows" msgpack:"rows"`
	Files       []string  `json:"files" msgpack:"files"`
}

// Holder owns the latest Snapshot. Only "latest" survives between
// refreshes; publishing replaces it and releases the previous index.
type Holder struct {
	mu     sync.RWMutex
	latest *Snapshot
	seq    uint64

	subMu  sync.Mutex
	subs   map[int]chan Tick
	nextID int
}

// NewHolder creates an empty holder.
func NewHolder() *Holder {
	return &Holder{subs: make(map[int]chan Tick)}
}

// Publish installs a new result and its index (which may be nil) and
// notifies subscribers.
func (h *Holder) Publish(result *ingest.Result, index *seriesdb.Index) *Snapshot {
	h.mu.Lock()
	h.seq++
	snap := &Snapshot{
		Seq:         h.seq,
		PublishedAt: time.Now(),
		Result:      result,
		index:       index,
	}
	prev := h.latest
	h.latest = snap
	h.mu.Unlock()

	// Readers of the old index hold the read lock, so once the swap is done
	// nobody can still be using it.
	if prev != nil && prev.index != nil {
		if err := prev.index.Close(); err != nil {
			log.Warn().Err(err).Uint64("seq", prev.Seq).Msg("Failed to close previous series index")
		}
	}

	h.notify(tickOf(snap))
	return snap
}

// Latest returns the current snapshot, or nil before the first publish.
func (h *Holder) Latest() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// WithIndex runs fn against the current series index while guaranteeing it
// is not closed underneath. ok is false when no index is available.
func (h *Holder) WithIndex(fn func(*Snapshot, *seriesdb.Index) error) (ok bool, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil || h.latest.index == nil {
		return false, nil
	}
	return true, fn(h.latest, h.latest.index)
}

// Subscribe registers for tick notifications. Each subscriber buffers one
// tick; a slow subscriber only ever sees the newest one and never blocks the
// publisher. The returned func unsubscribes and closes the channel.
func (h *Holder) Subscribe() (<-chan Tick, func()) {
	ch := make(chan Tick, 1)

	h.subMu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subs, id)
			h.subMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Holder) Subscribers() int {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	return len(h.subs)
}

// Close releases the current index. The holder keeps its result.
func (h *Holder) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil || h.latest.index == nil {
		return nil
	}
	err := h.latest.index.Close()
	h.latest = &Snapshot{Seq: h.latest.Seq, PublishedAt: h.latest.PublishedAt, Result: h.latest.Result}
	return err
}

func (h *Holder) notify(t Tick) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- t
	}
}

func tickOf(s *Snapshot) Tick {
	t := Tick{Seq: s.Seq, PublishedAt: s.PublishedAt, Files: []string{}}
	if s.Result == nil {
		t.NoData = true
		return t
	}
	t.RunID = s.Result.RunID
	t.NoData = s.Result.NoData
	if s.Result.Series != nil {
		t.Rows = s.Result.Series.Len()
		t.Files = append(t.Files, s.Result.Series.Files...)
	}
	return t
}
