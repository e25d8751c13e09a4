package results

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DropsAbsentText(t *testing.T) {
	t.Parallel()

	s := NewStore()
	assert.False(t, s.Put(0, 5, Outcome{Text: "", Confidence: 0.9}))
	assert.False(t, s.Put(0, 5, Outcome{Text: "   \t", Confidence: 0.9}))
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get(0, 5)
	assert.False(t, ok)
	assert.Empty(t, s.Frames())
}

func TestStore_LastWriteWinsKeepsPosition(t *testing.T) {
	t.Parallel()

	s := NewStore()
	require.True(t, s.Put(3, 7, Outcome{Text: "FIRST", Confidence: 0.5}))
	require.True(t, s.Put(3, 2, Outcome{Text: "OTHER", Confidence: 0.6}))
	require.True(t, s.Put(3, 7, Outcome{Text: "SECOND", Confidence: 0.8}))

	got, ok := s.Get(3, 7)
	require.True(t, ok)
	assert.Equal(t, "SECOND", got.Text)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []int{7, 2}, s.Tracks(3))
}

func TestStore_EntriesOrder(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Put(10, 4, Outcome{Text: "D"})
	s.Put(2, 9, Outcome{Text: "A"})
	s.Put(2, 1, Outcome{Text: "B"})
	s.Put(5, 1, Outcome{Text: "C"})

	type key struct{ Frame, Track int }
	var got []key
	for _, e := range s.Entries() {
		got = append(got, key{e.Frame, e.TrackID})
	}
	want := []key{{2, 9}, {2, 1}, {5, 1}, {10, 4}}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Entries order mismatch (-got +want):\n%s", diff)
	}
	assert.Equal(t, []int{2, 5, 10}, s.Frames())
	assert.Nil(t, s.Tracks(99))
}

func TestStore_InvariantEveryKeyHasText(t *testing.T) {
	t.Parallel()

	s := NewStore()
	inputs := []Outcome{{Text: "AB1"}, {Text: ""}, {Text: " "}, {Text: "CD2"}, {Text: "\n"}}
	for i, o := range inputs {
		s.Put(i%2, i, o)
	}
	for _, e := range s.Entries() {
		assert.True(t, e.Outcome.HasText(), "frame %d track %d stored without text", e.Frame, e.TrackID)
	}
	assert.Equal(t, 2, s.Len())
}

func TestPending_CommitAppliesInOrder(t *testing.T) {
	t.Parallel()

	s := NewStore()
	p := NewPending(0)
	assert.True(t, p.Put(5, Outcome{Text: "OLD"}))
	assert.False(t, p.Put(6, Outcome{}))
	assert.True(t, p.Put(5, Outcome{Text: "NEW"}))
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 0, s.Len(), "staged writes are invisible before commit")

	committed := p.Commit(s)
	require.Len(t, committed, 1)
	assert.Equal(t, "NEW", committed[0].Outcome.Text)
	assert.Equal(t, 0, p.Len())
}

func TestPending_DiscardLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	s := NewStore()
	p := NewPending(4)
	p.Put(1, Outcome{Text: "XYZ"})
	// An aborted frame simply never commits.
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get(4, 1)
	assert.False(t, ok)
}
