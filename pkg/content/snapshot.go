package content

import (
	"fmt"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable, fully indexed view of every content kind.
// It is never mutated after publish; a newer build supersedes it wholesale.
type Snapshot struct {
	id          uuid.UUID
	builtAt     time.Time
	collections map[Kind]*Collection
}

// ID returns the snapshot id (a time-ordered UUIDv7).
func (s *Snapshot) ID() uuid.UUID { return s.id }

// BuiltAt returns when the snapshot was published.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Kinds returns the kinds covered by the snapshot in canonical order.
func (s *Snapshot) Kinds() []Kind {
	out := make([]Kind, 0, len(s.collections))

	for _, k := range knownKinds {
		if _, ok := s.collections[k]; ok {
			out = append(out, k)
		}
	}

	return out
}

// collection returns the collection for kind, or nil.
func (s *Snapshot) collection(kind Kind) *Collection {
	return s.collections[kind]
}

// Store owns the current snapshot pointer.
//
// Current never blocks and is safe to call from any goroutine. Publish is a
// single atomic pointer store; callers serialize publishes ([Engine] does).
type Store struct {
	kinds   []Kind
	now     func() time.Time
	current atomic.Pointer[Snapshot]
}

// NewStore returns a Store covering kinds, bootstrapped with an empty
// snapshot. now defaults to [time.Now].
func NewStore(kinds []Kind, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}

	s := &Store{kinds: slices.Clone(kinds), now: now}

	boot := make(map[Kind]*Collection, len(kinds))
	for _, k := range kinds {
		boot[k] = emptyCollection(k)
	}

	s.current.Store(s.newSnapshot(boot))

	return s
}

// Current returns the latest published snapshot. Never nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Publish makes collections the current snapshot.
//
// collections must hold exactly the store's kinds. Otherwise nothing is
// published, the previous snapshot stays current and the error wraps
// [ErrPartialPublish].
func (s *Store) Publish(collections map[Kind]*Collection) (*Snapshot, error) {
	for _, k := range s.kinds {
		c, ok := collections[k]
		if !ok || c == nil {
			return nil, fmt.Errorf("publish: %w: kind %q missing", ErrPartialPublish, k)
		}

		if c.kind != k {
			return nil, fmt.Errorf("publish: %w: collection for %q holds %q", ErrPartialPublish, k, c.kind)
		}
	}

	for k := range collections {
		if !slices.Contains(s.kinds, k) {
			return nil, fmt.Errorf("publish: %w: %w: %q", ErrPartialPublish, ErrUnknownKind, k)
		}
	}

	snap := s.newSnapshot(collections)
	s.current.Store(snap)

	return snap, nil
}

func (s *Store) newSnapshot(collections map[Kind]*Collection) *Snapshot {
	return &Snapshot{
		id:          uuid.Must(uuid.NewV7()),
		builtAt:     s.now(),
		collections: maps.Clone(collections),
	}
}
