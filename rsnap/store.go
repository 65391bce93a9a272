// Package rsnap stores serialized world snapshots keyed by frame,
// with a checksum per entry, over a bounded rolling window.
package rsnap

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/rewind-engine/rewind/rframe"
)

// SnapshotMissingError is returned by [*Store.Load]
// when the exact requested frame is not present.
//
// The session saves a snapshot for every frame inside the window,
// so a miss there means a window sizing or eviction bug;
// callers inside this module treat it as fatal.
type SnapshotMissingError struct {
	Frame rframe.Frame
}

func (e SnapshotMissingError) Error() string {
	return fmt.Sprintf("no snapshot for frame %d", e.Frame)
}

type entry struct {
	frame    rframe.Frame
	state    []byte
	checksum uint64
}

// Store is a fixed-capacity ring of snapshots.
//
// The snapshot for frame f is the world state *before* simulating f,
// i.e. the state a rollback to f restores and feeds to the stepper.
//
// Store is not safe for concurrent use; the session owns it.
type Store struct {
	entries []entry
}

// New returns a Store retaining up to capacity snapshots.
func New(capacity int) *Store {
	if capacity <= 0 {
		panic(fmt.Errorf("BUG: invalid snapshot capacity %d", capacity))
	}

	s := &Store{entries: make([]entry, capacity)}
	for i := range s.entries {
		s.entries[i].frame = rframe.NullFrame
	}
	return s
}

func (s *Store) slot(f rframe.Frame) *entry {
	return &s.entries[uint(f)%uint(len(s.entries))]
}

// Save stores a copy of state for frame f,
// computing and returning its checksum.
// Saving the same frame again overwrites the entry;
// that is the normal path when a rollback replay
// rewrites intermediate snapshots.
func (s *Store) Save(f rframe.Frame, state []byte) uint64 {
	if f < 0 {
		panic(fmt.Errorf("BUG: negative snapshot frame %d", f))
	}

	e := s.slot(f)

	sum := xxhash.Sum64(state)

	// Reuse the existing allocation when the slot is recycled
	// and the state size is stable, which it usually is.
	e.frame = f
	e.state = append(e.state[:0], state...)
	e.checksum = sum

	return sum
}

// Load returns a copy of the state for exactly frame f.
func (s *Store) Load(f rframe.Frame) ([]byte, error) {
	if f < 0 {
		return nil, SnapshotMissingError{Frame: f}
	}

	e := s.slot(f)
	if e.frame != f {
		return nil, SnapshotMissingError{Frame: f}
	}

	return bytes.Clone(e.state), nil
}

// LoadNearest returns the state for the highest stored frame <= f,
// along with that frame.
// It returns a [SnapshotMissingError] if nothing at or before f is stored.
func (s *Store) LoadNearest(f rframe.Frame) (rframe.Frame, []byte, error) {
	best := rframe.NullFrame
	var bestState []byte

	for i := range s.entries {
		e := &s.entries[i]
		if e.frame == rframe.NullFrame || e.frame > f {
			continue
		}
		if e.frame > best {
			best = e.frame
			bestState = e.state
		}
	}

	if best == rframe.NullFrame {
		return rframe.NullFrame, nil, SnapshotMissingError{Frame: f}
	}

	return best, bytes.Clone(bestState), nil
}

// Checksum returns the stored checksum for frame f,
// and whether that frame is present.
func (s *Store) Checksum(f rframe.Frame) (uint64, bool) {
	if f < 0 {
		return 0, false
	}

	e := s.slot(f)
	if e.frame != f {
		return 0, false
	}
	return e.checksum, true
}

// EvictBefore drops every snapshot older than frame f.
// Eviction is oldest-first by construction:
// entries are keyed by frame, so dropping "frame < f" cannot
// leave an older entry behind a newer hole.
func (s *Store) EvictBefore(f rframe.Frame) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.frame != rframe.NullFrame && e.frame < f {
			e.frame = rframe.NullFrame
			e.state = e.state[:0]
			e.checksum = 0
		}
	}
}
