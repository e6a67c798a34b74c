// Package observable implements an ordered container that notifies
// registered observers of every mutation with a structured change
// descriptor. It is the primitive underneath the notebook cell list and
// the per-cell output list.
package observable

import (
	"fmt"
	"sort"

	"github.com/starford/laguz/internal/apperr"
)

// Op identifies the kind of mutation a Change describes.
type Op int

const (
	OpInsert Op = iota
	OpRemove
	OpMove
	OpSet
)

// String returns the wire name of the operation.
func (op Op) String() string {
	switch op {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	case OpSet:
		return "set"
	default:
		return "unknown"
	}
}

// Change describes exactly one successful mutation. It carries enough
// data for an observer to mirror the change onto a derived structure
// without re-scanning the sequence:
//
//   - OpInsert: New items were inserted starting at Index.
//   - OpRemove: Old items were removed starting at Index.
//   - OpMove:   len(New) items were moved from Index to To.
//   - OpSet:    the item at Index changed from Old[0] to New[0].
type Change[T any] struct {
	Op    Op
	Index int
	To    int
	Old   []T
	New   []T
}

// Observer receives change descriptors. Delivery is synchronous: the
// mutating call does not return until every observer has run.
type Observer[T any] func(Change[T])

// Sequence is a mutable ordered container with observer fan-out.
// It is not safe for concurrent use; callers serialize their edits.
type Sequence[T any] struct {
	items     []T
	observers map[int]Observer[T]
	nextID    int
	disposed  bool
}

// New creates a sequence holding a copy of the initial items.
func New[T any](initial ...T) *Sequence[T] {
	s := &Sequence[T]{observers: make(map[int]Observer[T])}
	s.items = append(s.items, initial...)
	return s
}

// Len returns the number of items.
func (s *Sequence[T]) Len() int {
	return len(s.items)
}

// Get returns the item at index i.
func (s *Sequence[T]) Get(i int) (T, error) {
	if i < 0 || i >= len(s.items) {
		var zero T
		return zero, fmt.Errorf("observable: get index %d with length %d: %w", i, len(s.items), apperr.ErrOutOfRange)
	}
	return s.items[i], nil
}

// Items returns a copy of the current contents.
func (s *Sequence[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Insert inserts items at index i (0 <= i <= Len). Inserting zero items
// is a no-op and emits no change.
func (s *Sequence[T]) Insert(i int, items ...T) error {
	if s.disposed {
		return fmt.Errorf("observable: insert on disposed sequence: %w", apperr.ErrInvalidOperation)
	}
	if i < 0 || i > len(s.items) {
		return fmt.Errorf("observable: insert index %d with length %d: %w", i, len(s.items), apperr.ErrOutOfRange)
	}
	if len(items) == 0 {
		return nil
	}
	inserted := make([]T, len(items))
	copy(inserted, items)

	s.items = append(s.items[:i], append(inserted, s.items[i:]...)...)
	s.notify(Change[T]{Op: OpInsert, Index: i, New: inserted})
	return nil
}

// RemoveRange removes count items starting at index i and returns them.
// Removing zero items is a no-op and emits no change.
func (s *Sequence[T]) RemoveRange(i, count int) ([]T, error) {
	if s.disposed {
		return nil, fmt.Errorf("observable: remove on disposed sequence: %w", apperr.ErrInvalidOperation)
	}
	if count < 0 || i < 0 || i+count > len(s.items) {
		return nil, fmt.Errorf("observable: remove range [%d,%d) with length %d: %w", i, i+count, len(s.items), apperr.ErrOutOfRange)
	}
	if count == 0 {
		return nil, nil
	}
	removed := make([]T, count)
	copy(removed, s.items[i:i+count])

	s.items = append(s.items[:i], s.items[i+count:]...)
	s.notify(Change[T]{Op: OpRemove, Index: i, Old: removed})
	return removed, nil
}

// Move relocates the block of count items starting at from so that it
// begins at index to in the resulting sequence (0 <= to <= Len-count).
// The inverse of Move(from, to, n) is Move(to, from, n).
func (s *Sequence[T]) Move(from, to, count int) error {
	if s.disposed {
		return fmt.Errorf("observable: move on disposed sequence: %w", apperr.ErrInvalidOperation)
	}
	if count < 0 || from < 0 || from+count > len(s.items) || to < 0 || to > len(s.items)-count {
		return fmt.Errorf("observable: move %d items from %d to %d with length %d: %w", count, from, to, len(s.items), apperr.ErrOutOfRange)
	}
	if count == 0 || from == to {
		return nil
	}
	block := make([]T, count)
	copy(block, s.items[from:from+count])

	rest := append(s.items[:from], s.items[from+count:]...)
	s.items = append(rest[:to], append(block, rest[to:]...)...)
	s.notify(Change[T]{Op: OpMove, Index: from, To: to, New: block})
	return nil
}

// Set replaces the item at index i.
func (s *Sequence[T]) Set(i int, item T) error {
	if s.disposed {
		return fmt.Errorf("observable: set on disposed sequence: %w", apperr.ErrInvalidOperation)
	}
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("observable: set index %d with length %d: %w", i, len(s.items), apperr.ErrOutOfRange)
	}
	old := s.items[i]
	s.items[i] = item
	s.notify(Change[T]{Op: OpSet, Index: i, Old: []T{old}, New: []T{item}})
	return nil
}

// Observe registers an observer and returns a handle for Unobserve.
// Observers registered during a notification do not see the change
// currently being delivered.
func (s *Sequence[T]) Observe(fn Observer[T]) int {
	if s.disposed {
		return -1
	}
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return id
}

// Unobserve removes the observer with the given handle. Unknown handles
// are ignored.
func (s *Sequence[T]) Unobserve(handle int) {
	delete(s.observers, handle)
}

// Dispose detaches all observers synchronously. The sequence rejects
// further mutation once disposed.
func (s *Sequence[T]) Dispose() {
	s.disposed = true
	s.observers = make(map[int]Observer[T])
}

// notify delivers a change to a point-in-time snapshot of the observer
// set, in registration order. Snapshotting makes re-entrant
// subscribe/unsubscribe (and re-entrant mutation) safe during delivery.
func (s *Sequence[T]) notify(ch Change[T]) {
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	snapshot := make([]Observer[T], 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, s.observers[id])
	}
	for i, fn := range snapshot {
		// An observer may have unregistered itself or a peer mid-delivery.
		if _, ok := s.observers[ids[i]]; !ok {
			continue
		}
		fn(ch)
	}
}
