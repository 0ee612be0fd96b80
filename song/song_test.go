package song

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveNoteBounds(t *testing.T) {
	m := Demo()
	empty := EmptyRow()

	assert.Equal(t, empty, m.ActiveNote(1, 0, 0, 0))  // no such track
	assert.Equal(t, empty, m.ActiveNote(0, 5, 0, 0))  // no such frame
	assert.Equal(t, empty, m.ActiveNote(0, 0, 9, 0))  // no such channel
	assert.Equal(t, empty, m.ActiveNote(0, 0, 0, 99)) // no such row

	ev := m.ActiveNote(0, 0, ChanPulse1, 0)
	assert.Equal(t, KindNote, ev.Kind)
	assert.Equal(t, 4*12+4, ev.Note) // E-4
}

func TestFrameIndirection(t *testing.T) {
	m := Demo()
	// Frame 1 maps pulse 2 back onto pattern 0.
	f0 := m.ActiveNote(0, 0, ChanPulse2, 0)
	f1 := m.ActiveNote(0, 1, ChanPulse2, 0)
	assert.Equal(t, f0, f1)
}

func TestFrameRate(t *testing.T) {
	m := &Module{Machine: NTSC}
	assert.Equal(t, 60, m.FrameRate())
	m.Machine = PAL
	assert.Equal(t, 50, m.FrameRate())
	m.EngineRate = 70
	assert.Equal(t, 70, m.FrameRate())
}

func TestHighlightFallback(t *testing.T) {
	m := &Module{Tracks: []*Track{{Rows: 4}}}
	assert.Equal(t, 4, m.HighlightAt(0, 0, 0))
	m.Tracks[0].Highlight = 8
	assert.Equal(t, 8, m.HighlightAt(0, 0, 0))
}

func TestFileLoadedFlag(t *testing.T) {
	m := &Module{}
	assert.False(t, m.IsFileLoaded())
	m.SetFileLoaded(true)
	assert.True(t, m.IsFileLoaded())
}

func TestInstrumentLookup(t *testing.T) {
	m := Demo()
	assert.NotNil(t, m.Instrument(0))
	assert.Nil(t, m.Instrument(-1))
	assert.Nil(t, m.Instrument(99))
}
