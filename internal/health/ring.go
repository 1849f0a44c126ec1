package health

import "sync"

// snapshotRing is a fixed-capacity buffer of recent snapshots. When full,
// the oldest entry is evicted first.
type snapshotRing struct {
	mu    sync.RWMutex
	buf   []Snapshot
	start int
	size  int
}

func newSnapshotRing(capacity int) *snapshotRing {
	return &snapshotRing{buf: make([]Snapshot, capacity)}
}

func (r *snapshotRing) append(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// recent returns up to limit snapshots, oldest first within the window.
// A non-positive limit returns everything retained.
func (r *snapshotRing) recent(limit int) []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Snapshot, 0, n)
	for i := r.size - n; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

func (r *snapshotRing) latest() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return Snapshot{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}
