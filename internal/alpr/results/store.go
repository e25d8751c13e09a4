// Package results accumulates recognition outcomes for one run, keyed by
// frame index and vehicle track identity.
package results

import (
	"image"
	"sort"
	"strings"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/frames"
)

// Outcome is a recognition result for one plate crop.
type Outcome struct {
	Text       string
	Confidence float64
	Crop       *frames.Image // raw plate crop taken from the frame
	Enhanced   *frames.Image // crop after enhancement, as seen by the recognizer
	Polygon    []image.Point
	Plate      alpr.Detection
}

// HasText reports whether the outcome carries usable text.
func (o Outcome) HasText() bool {
	return strings.TrimSpace(o.Text) != ""
}

// Entry is a stored outcome together with its key.
type Entry struct {
	Frame   int
	TrackID int
	Outcome Outcome
}

type frameEntries struct {
	order   []int
	byTrack map[int]Outcome
}

// Store maps frame index to track id to Outcome. Keys are only ever added;
// an outcome without text is never stored. A Store is owned by a single
// goroutine.
type Store struct {
	frames map[int]*frameEntries
	count  int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{frames: make(map[int]*frameEntries)}
}

// Put stores o under (frame, trackID). A later Put for the same key replaces
// the outcome but keeps the key's original position within the frame.
// Outcomes without text are dropped and Put returns false.
func (s *Store) Put(frame, trackID int, o Outcome) bool {
	if !o.HasText() {
		return false
	}
	fe, ok := s.frames[frame]
	if !ok {
		fe = &frameEntries{byTrack: make(map[int]Outcome)}
		s.frames[frame] = fe
	}
	if _, exists := fe.byTrack[trackID]; !exists {
		fe.order = append(fe.order, trackID)
		s.count++
	}
	fe.byTrack[trackID] = o
	return true
}

// Get returns the outcome stored under (frame, trackID).
func (s *Store) Get(frame, trackID int) (Outcome, bool) {
	fe, ok := s.frames[frame]
	if !ok {
		return Outcome{}, false
	}
	o, ok := fe.byTrack[trackID]
	return o, ok
}

// Len returns the number of stored (frame, track) keys.
func (s *Store) Len() int { return s.count }

// Frames returns the frame indexes holding at least one entry, ascending.
func (s *Store) Frames() []int {
	out := make([]int, 0, len(s.frames))
	for f := range s.frames {
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}

// Tracks returns the track ids stored for frame in insertion order.
func (s *Store) Tracks(frame int) []int {
	fe, ok := s.frames[frame]
	if !ok {
		return nil
	}
	out := make([]int, len(fe.order))
	copy(out, fe.order)
	return out
}

// Entries returns every stored entry ordered by ascending frame index, then
// by insertion order of the track id within the frame.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, s.count)
	for _, f := range s.Frames() {
		fe := s.frames[f]
		for _, id := range fe.order {
			out = append(out, Entry{Frame: f, TrackID: id, Outcome: fe.byTrack[id]})
		}
	}
	return out
}

// Pending stages the writes of a single frame so they reach the store only
// once the frame has been processed completely.
type Pending struct {
	frame   int
	entries []Entry
}

// NewPending starts staging writes for frame.
func NewPending(frame int) *Pending {
	return &Pending{frame: frame}
}

// Put stages an outcome. Outcomes without text are refused.
func (p *Pending) Put(trackID int, o Outcome) bool {
	if !o.HasText() {
		return false
	}
	p.entries = append(p.entries, Entry{Frame: p.frame, TrackID: trackID, Outcome: o})
	return true
}

// Len returns the number of staged writes, including ones a later write for
// the same track will replace.
func (p *Pending) Len() int { return len(p.entries) }

// Commit applies the staged writes to s in staging order and returns the
// resulting entries for the frame.
func (p *Pending) Commit(s *Store) []Entry {
	for _, e := range p.entries {
		s.Put(e.Frame, e.TrackID, e.Outcome)
	}
	p.entries = nil
	out := make([]Entry, 0)
	for _, id := range s.Tracks(p.frame) {
		o, _ := s.Get(p.frame, id)
		out = append(out, Entry{Frame: p.frame, TrackID: id, Outcome: o})
	}
	return out
}
