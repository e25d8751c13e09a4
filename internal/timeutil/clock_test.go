package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Ticker(t *testing.T) {
	var c Clock = RealClock{}
	assert.False(t, c.Now().IsZero())

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not fire")
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewMockClock(start)

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestMockClock_Ticker(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewMockClock(start)
	tk := c.NewTicker(10 * time.Second)

	c.Advance(5 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case got := <-tk.C():
		assert.Equal(t, start.Add(10*time.Second), got)
	default:
		t.Fatal("ticker did not fire")
	}

	// An unread tick is not queued twice.
	c.Advance(10 * time.Second)
	c.Advance(10 * time.Second)
	assert.Len(t, tk.C(), 1)
	<-tk.C()

	tk.Stop()
	c.Advance(time.Minute)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFrameTimeline(t *testing.T) {
	ntsc := 29.97
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		fps   float64
		ok    bool
		index int
		want  time.Time
	}{
		{"25 fps", 25, true, 50, start.Add(2 * time.Second)},
		{"first frame", 30, true, 0, start},
		{"ntsc", 29.97, true, 2997, start.Add(time.Duration(2997) * time.Duration(float64(time.Second)/ntsc))},
		{"zero rate", 0, false, 0, time.Time{}},
		{"negative rate", -1, false, 0, time.Time{}},
		{"implausible rate", 90000, false, 0, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, ok := NewFrameTimeline(start, tt.fps)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, tl.At(tt.index))
			}
		})
	}
}
