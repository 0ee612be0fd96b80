package sound

import (
	"sync/atomic"

	"github.com/mkazune/famisound/song"
)

// PlayerCursor identifies a track selection and the mutable playback
// position within it. Created by the foreground caller, handed to
// the engine as a command payload, and owned by the engine goroutine
// while playback is active. Only the queued-frame target may be set
// from the foreground while the engine owns the cursor.
type PlayerCursor struct {
	doc   song.Document
	track int

	frame      int
	row        int
	totalTicks int

	queuedFrame atomic.Int32 // -1 when no jump is queued
}

// NewPlayerCursor creates a cursor at the start of a track.
func NewPlayerCursor(doc song.Document, track int) *PlayerCursor {
	return NewPlayerCursorAt(doc, track, 0, 0)
}

// NewPlayerCursorAt creates a cursor at an arbitrary position.
func NewPlayerCursorAt(doc song.Document, track, frame, row int) *PlayerCursor {
	c := &PlayerCursor{doc: doc, track: track, frame: frame, row: row}
	c.queuedFrame.Store(-1)
	return c
}

func (c *PlayerCursor) Track() int      { return c.track }
func (c *PlayerCursor) Frame() int      { return c.frame }
func (c *PlayerCursor) Row() int        { return c.row }
func (c *PlayerCursor) TotalTicks() int { return c.totalTicks }

// QueueFrame requests a jump to the frame at the next frame change.
func (c *PlayerCursor) QueueFrame(frame int) {
	c.queuedFrame.Store(int32(frame))
}

// QueuedFrame returns the pending jump target, if any.
func (c *PlayerCursor) QueuedFrame() (int, bool) {
	f := c.queuedFrame.Load()
	return int(f), f >= 0
}

// SetPosition moves the cursor without touching the tick count.
func (c *PlayerCursor) SetPosition(frame, row int) {
	c.frame = frame
	c.row = row
}

// Tick counts one elapsed engine tick.
func (c *PlayerCursor) Tick() {
	c.totalTicks++
}

// StepRow advances to the next row, moving to the next frame at the
// end of the pattern. Returns true when the arrangement wrapped back
// to the first frame.
func (c *PlayerCursor) StepRow() bool {
	t := c.doc.Track(c.track)
	if t == nil {
		return false
	}
	c.row++
	if c.row >= t.Rows {
		return c.NextFrame(0)
	}
	return false
}

// NextFrame moves to the next frame (or a queued jump target) at the
// given row. Returns true when the arrangement wrapped.
func (c *PlayerCursor) NextFrame(row int) bool {
	t := c.doc.Track(c.track)
	if t == nil {
		return false
	}
	wrapped := false
	if target := c.queuedFrame.Swap(-1); target >= 0 {
		c.frame = int(target)
	} else {
		c.frame++
	}
	if c.frame >= t.FrameCount() || c.frame < 0 {
		c.frame = 0
		wrapped = true
	}
	c.row = row
	if c.row >= t.Rows || c.row < 0 {
		c.row = 0
	}
	return wrapped
}
