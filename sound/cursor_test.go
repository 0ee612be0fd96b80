package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazune/famisound/song"
)

func TestCursorStepRowAdvancesFrames(t *testing.T) {
	doc := song.Demo()
	c := NewPlayerCursor(doc, 0)

	for i := 0; i < 15; i++ {
		assert.False(t, c.StepRow())
	}
	assert.Equal(t, 0, c.Frame())
	assert.Equal(t, 15, c.Row())

	assert.False(t, c.StepRow())
	assert.Equal(t, 1, c.Frame())
	assert.Equal(t, 0, c.Row())
}

func TestCursorWrapsAtLastFrame(t *testing.T) {
	doc := song.Demo()
	c := NewPlayerCursorAt(doc, 0, 1, 15)
	assert.True(t, c.StepRow())
	assert.Equal(t, 0, c.Frame())
	assert.Equal(t, 0, c.Row())
}

func TestCursorQueuedFrameJump(t *testing.T) {
	doc := song.Demo()
	c := NewPlayerCursorAt(doc, 0, 1, 15)

	_, ok := c.QueuedFrame()
	require.False(t, ok)

	c.QueueFrame(1)
	f, ok := c.QueuedFrame()
	require.True(t, ok)
	assert.Equal(t, 1, f)

	// The jump is consumed at the frame change instead of wrapping.
	assert.False(t, c.StepRow())
	assert.Equal(t, 1, c.Frame())
	assert.Equal(t, 0, c.Row())
	_, ok = c.QueuedFrame()
	assert.False(t, ok)
}

func TestCursorNextFrameClampsRow(t *testing.T) {
	doc := song.Demo()
	c := NewPlayerCursor(doc, 0)
	c.NextFrame(99)
	assert.Equal(t, 1, c.Frame())
	assert.Equal(t, 0, c.Row())
}

func TestCursorTickCount(t *testing.T) {
	c := NewPlayerCursor(song.Demo(), 0)
	for i := 0; i < 7; i++ {
		c.Tick()
	}
	assert.Equal(t, 7, c.TotalTicks())
}
