// Package store holds the client-side source of truth for notifications.
//
// Every notification the session knows about lives here, keyed by server id.
// Push events and snapshot fetches both land in the same upsert path, so
// duplicates and races between the two sources collapse into a single record.
// UI surfaces subscribe for deltas and never keep private copies.
package store

import (
	"sync"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
)

// DeltaKind classifies a store change for subscribers.
type DeltaKind string

const (
	// DeltaAdded fires when an id becomes known to this client for the
	// first time, whether it arrived by push or by snapshot.
	DeltaAdded DeltaKind = "added"
	// DeltaUpdatedRead fires for local read-state changes: an optimistic
	// mark-read or its rollback.
	DeltaUpdatedRead DeltaKind = "updated-read"
	// DeltaReplaced fires when a push or snapshot carries an already-known
	// id with different content.
	DeltaReplaced DeltaKind = "replaced"
)

// Delta describes one store change.
type Delta struct {
	Kind   DeltaKind
	Record notification.Record
}

// Subscriber receives the full current record list plus the delta that
// caused the call. Callbacks run synchronously on the mutating goroutine and
// must not call back into the Store; everything they need is in the
// arguments.
type Subscriber func(records []notification.Record, delta Delta)

// entry tracks the displayed record alongside the latest server-known read
// state, which is the rollback target while an optimistic mark-read is in
// flight.
type entry struct {
	rec          notification.Record
	serverRead   bool
	serverReadAt *time.Time
	pendingRead  bool
}

// Store is the single in-process source of truth for one session.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	subs      map[int]Subscriber
	nextSubID int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry),
		subs:    make(map[int]Subscriber),
	}
}

// Subscribe registers a consumer for delta notifications and returns an
// unsubscribe function.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ApplyPush upserts a record delivered on the push channel. Duplicate
// delivery of the same id is harmless: an identical record changes nothing
// and emits no delta.
func (s *Store) ApplyPush(rec notification.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(rec)
}

// ApplySnapshot upserts every record of a snapshot window. Snapshots are
// partial by contract: a record absent from the snapshot is never deleted.
func (s *Store) ApplySnapshot(recs []notification.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.upsertLocked(rec)
	}
}

// upsertLocked applies the id-keyed replacement rule. A later-arriving
// record replaces the earlier one entirely, except that a pending optimistic
// read=true stays on display; the incoming server value becomes the rollback
// target instead.
func (s *Store) upsertLocked(rec notification.Record) {
	e, exists := s.entries[rec.ID]
	if !exists {
		s.entries[rec.ID] = &entry{
			rec:          rec,
			serverRead:   rec.IsRead,
			serverReadAt: rec.ReadAt,
		}
		s.emitLocked(Delta{Kind: DeltaAdded, Record: rec})
		return
	}

	e.serverRead = rec.IsRead
	e.serverReadAt = rec.ReadAt

	next := rec
	if e.pendingRead && !rec.IsRead {
		next.IsRead = true
		next.ReadAt = e.rec.ReadAt
	}

	if recordsEqual(next, e.rec) {
		return
	}

	e.rec = next
	s.emitLocked(Delta{Kind: DeltaReplaced, Record: next})
}

// recordsEqual compares records by value. ReadAt is a pointer, so two
// decodes of the same payload would never compare equal with ==.
func recordsEqual(a, b notification.Record) bool {
	if a.ID != b.ID || a.Category != b.Category || a.Title != b.Title ||
		a.Message != b.Message || a.Link != b.Link || a.IsRead != b.IsRead ||
		!a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if (a.ReadAt == nil) != (b.ReadAt == nil) {
		return false
	}
	return a.ReadAt == nil || a.ReadAt.Equal(*b.ReadAt)
}

// MarkReadOptimistic flips a record to read ahead of server confirmation.
// It reports false when the id is unknown or the record is already read, in
// which case no mutation should be issued.
func (s *Store) MarkReadOptimistic(id string, at time.Time) (notification.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.rec.IsRead {
		return notification.Record{}, false
	}

	e.pendingRead = true
	e.rec.IsRead = true
	readAt := at
	e.rec.ReadAt = &readAt

	s.emitLocked(Delta{Kind: DeltaUpdatedRead, Record: e.rec})
	return e.rec, true
}

// ResolveRead settles an optimistic mark-read. On commit the server value is
// now read; on rollback the record reverts to the latest server-known read
// state, which a concurrent replacement may have changed since the
// optimistic flip.
func (s *Store) ResolveRead(id string, committed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !e.pendingRead {
		return
	}

	e.pendingRead = false

	if committed {
		e.serverRead = true
		e.serverReadAt = e.rec.ReadAt
		return
	}

	prev := e.rec
	e.rec.IsRead = e.serverRead
	e.rec.ReadAt = e.serverReadAt
	if !recordsEqual(e.rec, prev) {
		s.emitLocked(Delta{Kind: DeltaUpdatedRead, Record: e.rec})
	}
}

// Get returns the record for an id.
func (s *Store) Get(id string) (notification.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return notification.Record{}, false
	}
	return e.rec, true
}

// List returns every record matching the predicate. A nil predicate matches
// everything. No ordering is imposed; sorting for display is the caller's
// concern.
func (s *Store) List(pred func(notification.Record) bool) []notification.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notification.Record, 0, len(s.entries))
	for _, e := range s.entries {
		if pred == nil || pred(e.rec) {
			out = append(out, e.rec)
		}
	}
	return out
}

// UnreadCount recomputes the unread counter from current contents. It is
// never cached: the count cannot drift from the records.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCountLocked()
}

func (s *Store) unreadCountLocked() int {
	count := 0
	for _, e := range s.entries {
		if !e.rec.IsRead {
			count++
		}
	}
	return count
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset discards all records and pending optimistic state. Used on explicit
// clear and on session teardown; nothing else ever evicts a record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// emitLocked delivers a delta to every subscriber. Caller holds s.mu, so
// deltas reach subscribers in mutation order.
func (s *Store) emitLocked(delta Delta) {
	if len(s.subs) == 0 {
		return
	}

	records := make([]notification.Record, 0, len(s.entries))
	for _, e := range s.entries {
		records = append(records, e.rec)
	}

	for _, fn := range s.subs {
		fn(records, delta)
	}
}
