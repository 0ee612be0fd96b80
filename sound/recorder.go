package sound

import (
	"fmt"

	"github.com/mkazune/famisound/song"
)

// maxRecordTicks bounds a recorded sequence so runaway captures
// cannot grow without limit.
const maxRecordTicks = 252

// instrumentRecorder captures the live output of one channel into
// instrument sequences, one entry per tick. Arpeggio entries are
// stored relative to the first recorded note.
type instrumentRecorder struct {
	channel  int
	baseNote int

	volume   []int
	arpeggio []int
	duty     []int
}

func newInstrumentRecorder() *instrumentRecorder {
	return &instrumentRecorder{channel: -1, baseNote: -1}
}

// Armed reports whether a channel is set up for recording.
func (r *instrumentRecorder) Armed() bool { return r.channel >= 0 }

func (r *instrumentRecorder) Channel() int { return r.channel }

// StartRecording arms the recorder on a channel and clears any
// previous capture.
func (r *instrumentRecorder) StartRecording(channel int) {
	r.channel = channel
	r.baseNote = -1
	r.volume = r.volume[:0]
	r.arpeggio = r.arpeggio[:0]
	r.duty = r.duty[:0]
}

// RecordTick appends one tick's worth of channel output. Silent
// ticks before the first note are skipped.
func (r *instrumentRecorder) RecordTick(note, volume, duty int) {
	if !r.Armed() || len(r.volume) >= maxRecordTicks {
		return
	}
	if r.baseNote < 0 {
		if note < 0 {
			return
		}
		r.baseNote = note
	}
	arp := 0
	if note >= 0 {
		arp = note - r.baseNote
	}
	r.volume = append(r.volume, volume)
	r.arpeggio = append(r.arpeggio, arp)
	r.duty = append(r.duty, duty)
}

// StopRecording disarms the recorder and returns the capture as an
// instrument, or nil when nothing was recorded.
func (r *instrumentRecorder) StopRecording() *song.Instrument {
	defer func() {
		r.channel = -1
		r.baseNote = -1
	}()
	if len(r.volume) == 0 {
		return nil
	}
	inst := &song.Instrument{
		Name:     fmt.Sprintf("recorded (%d ticks)", len(r.volume)),
		Volume:   append([]int(nil), r.volume...),
		Arpeggio: append([]int(nil), r.arpeggio...),
		Duty:     append([]int(nil), r.duty...),
	}
	r.volume = r.volume[:0]
	r.arpeggio = r.arpeggio[:0]
	r.duty = r.duty[:0]
	return inst
}
