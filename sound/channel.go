package sound

import (
	"sync/atomic"

	"github.com/mkazune/famisound/apu"
	"github.com/mkazune/famisound/song"
)

// NotePriority orders notes queued for the same channel within the
// same tick. A higher priority always wins; equal priority is
// last-write-wins.
type NotePriority int

const (
	NotePrio0 NotePriority = iota // previews and echoes
	NotePrio1                     // regular row playback
	NotePrio2                     // forced halt, overrides everything
)

type queuedNote struct {
	ev   song.RowEvent
	prio NotePriority
}

// channelHandler turns one channel's note and effect state into APU
// register writes, once per engine tick. All fields are owned by the
// engine goroutine; the display mirrors are the only cross-context
// reads.
type channelHandler struct {
	id      int
	doc     song.Document
	machine song.Machine

	queued *queuedNote

	active   bool
	released bool
	note     int
	period   int
	volume   int // channel volume column, 0..15
	duty     int

	instrument int
	seqVolPos  int
	seqArpPos  int
	seqDutyPos int

	arpeggio byte
	arpPhase int
	vibSpeed int
	vibDepth int
	vibPhase int
	portaUp  int
	portaDn  int

	trigger bool // a note was triggered this tick, reload length
	cut     bool // silencing registers were written

	lastHiPeriod int

	// Display mirrors, read by the foreground without a lock.
	dispNote       atomic.Int32
	dispVolume     atomic.Int32
	dispInstrument atomic.Int32
}

func newChannelHandler(id int, doc song.Document, machine song.Machine) *channelHandler {
	h := &channelHandler{id: id, doc: doc, machine: machine}
	h.reset()
	return h
}

// reset returns the handler to silence without touching the mute
// flag owned by the engine.
func (h *channelHandler) reset() {
	h.queued = nil
	h.active = false
	h.released = false
	h.note = -1
	h.period = 0
	h.volume = 15
	h.duty = 0
	h.instrument = -1
	h.seqVolPos = 0
	h.seqArpPos = 0
	h.seqDutyPos = 0
	h.arpeggio = 0
	h.arpPhase = 0
	h.vibSpeed = 0
	h.vibDepth = 0
	h.vibPhase = 0
	h.portaUp = 0
	h.portaDn = 0
	h.trigger = false
	h.cut = false
	h.lastHiPeriod = -1
	h.dispNote.Store(-1)
	h.dispVolume.Store(0)
	h.dispInstrument.Store(-1)
}

// QueueNote stores a row event to be applied at the next tick
// boundary. A pending lower-priority note is replaced.
func (h *channelHandler) QueueNote(ev song.RowEvent, prio NotePriority) {
	if h.queued == nil || prio >= h.queued.prio {
		h.queued = &queuedNote{ev: ev, prio: prio}
	}
}

// ForceReloadInstrument restarts the instrument sequences.
func (h *channelHandler) ForceReloadInstrument() {
	h.seqVolPos = 0
	h.seqArpPos = 0
	h.seqDutyPos = 0
}

// handleNote applies a row event to the channel state.
func (h *channelHandler) handleNote(ev song.RowEvent) {
	if ev.Instrument >= 0 {
		h.instrument = ev.Instrument
	}
	if ev.Volume >= 0 {
		h.volume = ev.Volume
	}

	switch ev.Kind {
	case song.KindNote:
		h.note = ev.Note
		if h.id == song.ChanNoise {
			// The noise channel maps the note onto the 16-entry
			// period table, higher notes sounding brighter.
			h.period = 15 - ev.Note%16
		} else {
			h.period = ReadPeriodTable(ev.Note, h.machine)
		}
		h.active = true
		h.released = false
		h.trigger = true
		h.cut = false
		h.vibPhase = 0
		h.arpPhase = 0
		h.ForceReloadInstrument()
	case song.KindHalt:
		h.active = false
	case song.KindRelease:
		h.released = true
	}

	switch ev.Effect {
	case song.EffArpeggio:
		h.arpeggio = ev.Param
		h.arpPhase = 0
	case song.EffVibrato:
		h.vibSpeed = int(ev.Param >> 4)
		h.vibDepth = int(ev.Param & 0x0f)
	case song.EffPortaUp:
		h.portaUp = int(ev.Param)
		h.portaDn = 0
	case song.EffPortaDown:
		h.portaDn = int(ev.Param)
		h.portaUp = 0
	}
}

// applyState restores sustained state captured from the song without
// retriggering: the note keeps playing from past its attack.
func (h *channelHandler) applyState(cs channelState) {
	if cs.Instrument >= 0 {
		h.instrument = cs.Instrument
	}
	if cs.Volume >= 0 {
		h.volume = cs.Volume
	}
	if cs.Note >= 0 {
		h.note = cs.Note
		if h.id == song.ChanNoise {
			h.period = 15 - cs.Note%16
		} else {
			h.period = ReadPeriodTable(cs.Note, h.machine)
		}
		h.active = true
		h.released = false
		h.cut = false
		// Jump the envelopes past the attack.
		h.seqVolPos = 1 << 16
		h.seqArpPos = 1 << 16
		h.seqDutyPos = 1 << 16
	}
}

// Tick consumes the queued note and runs the per-tick effect and
// envelope processing.
func (h *channelHandler) Tick() {
	if q := h.queued; q != nil {
		h.queued = nil
		h.handleNote(q.ev)
	}

	if h.active {
		if h.portaUp > 0 && h.id != song.ChanNoise {
			h.period = clampPeriod(h.period - h.portaUp)
		} else if h.portaDn > 0 && h.id != song.ChanNoise {
			h.period = clampPeriod(h.period + h.portaDn)
		}
		if h.vibDepth > 0 {
			h.vibPhase = (h.vibPhase + h.vibSpeed) % VibratoLength
		}
		if h.arpeggio != 0 {
			h.arpPhase = (h.arpPhase + 1) % 3
		}
	}

	h.stepSequences()

	h.dispNote.Store(int32(h.displayNote()))
	h.dispVolume.Store(int32(h.outputVolume()))
	h.dispInstrument.Store(int32(h.instrument))
}

func (h *channelHandler) stepSequences() {
	if !h.active {
		return
	}
	inst := h.doc.Instrument(h.instrument)
	if inst == nil {
		return
	}
	if h.seqVolPos < len(inst.Volume) {
		h.seqVolPos++
	}
	if h.seqArpPos < len(inst.Arpeggio) {
		h.seqArpPos++
	}
	if h.seqDutyPos < len(inst.Duty) {
		h.seqDutyPos++
	}
}

func seqValue(seq []int, pos, fallback int) int {
	if len(seq) == 0 {
		return fallback
	}
	if pos >= len(seq) {
		pos = len(seq) - 1
	}
	if pos < 0 {
		pos = 0
	}
	return seq[pos]
}

// outputVolume combines the channel volume column with the
// instrument envelope. A released note is silent once its envelope
// ran out; a nonzero input never rounds down to silence.
func (h *channelHandler) outputVolume() int {
	if !h.active {
		return 0
	}
	inst := h.doc.Instrument(h.instrument)
	iv := 15
	if inst != nil && len(inst.Volume) > 0 {
		pos := h.seqVolPos
		if pos > 0 {
			pos--
		}
		iv = seqValue(inst.Volume, pos, 15)
	}
	if h.released {
		iv = 0
	}
	v := h.volume * iv / 15
	if v == 0 && h.volume > 0 && iv > 0 {
		v = 1
	}
	if v > 15 {
		v = 15
	}
	return v
}

// displayNote returns the effective note including the arpeggio
// offsets, for the UI readout.
func (h *channelHandler) displayNote() int {
	if !h.active {
		return -1
	}
	return h.note + h.arpOffset()
}

func (h *channelHandler) arpOffset() int {
	off := 0
	inst := h.doc.Instrument(h.instrument)
	if inst != nil && len(inst.Arpeggio) > 0 {
		pos := h.seqArpPos
		if pos > 0 {
			pos--
		}
		off += seqValue(inst.Arpeggio, pos, 0)
	}
	if h.arpeggio != 0 {
		switch h.arpPhase {
		case 1:
			off += int(h.arpeggio >> 4)
		case 2:
			off += int(h.arpeggio & 0x0f)
		}
	}
	return off
}

// outputPeriod returns the timer period after arpeggio and vibrato.
func (h *channelHandler) outputPeriod() int {
	p := h.period
	if off := h.arpOffset(); off != 0 && h.note >= 0 {
		p = ReadPeriodTable(h.note+off, h.machine)
		// Portamento offsets survive an arpeggio.
		p += h.period - ReadPeriodTable(h.note, h.machine)
	}
	if h.vibDepth > 0 {
		p += ReadVibratoTable(h.vibDepth*VibratoLength + h.vibPhase)
	}
	return clampPeriod(p)
}

func (h *channelHandler) outputDuty() int {
	inst := h.doc.Instrument(h.instrument)
	if inst != nil && len(inst.Duty) > 0 {
		pos := h.seqDutyPos
		if pos > 0 {
			pos--
		}
		return seqValue(inst.Duty, pos, 0) & 3
	}
	return h.duty & 3
}

// RefreshRegisters pushes the channel's current state into the APU.
// Muted or inactive channels write their silencing sequence exactly
// once and nothing after that.
func (h *channelHandler) RefreshRegisters(a *apu.APU, muted bool) {
	silent := muted || !h.active
	switch h.id {
	case song.ChanPulse1:
		h.refreshPulse(a, 0x4000, silent)
	case song.ChanPulse2:
		h.refreshPulse(a, 0x4004, silent)
	case song.ChanTriangle:
		h.refreshTriangle(a, silent)
	case song.ChanNoise:
		h.refreshNoise(a, silent)
	case song.ChanDPCM:
		h.refreshDPCM(a, silent)
	}
	h.trigger = false
}

func (h *channelHandler) refreshPulse(a *apu.APU, base uint16, silent bool) {
	if silent {
		if !h.cut {
			a.Write(base, 0x30)
			h.cut = true
		}
		return
	}
	period := h.outputPeriod()
	a.Write(base, 0x30|byte(h.outputDuty())<<6|byte(h.outputVolume()))
	a.Write(base+1, 0x08)
	a.Write(base+2, byte(period&0xff))
	hi := period >> 8
	if h.trigger || hi != h.lastHiPeriod {
		a.Write(base+3, byte(hi))
		h.lastHiPeriod = hi
	}
}

func (h *channelHandler) refreshTriangle(a *apu.APU, silent bool) {
	if silent || h.outputVolume() == 0 {
		if !h.cut {
			a.Write(0x4008, 0x80)
			h.cut = true
		}
		return
	}
	period := h.outputPeriod()
	a.Write(0x4008, 0xff)
	a.Write(0x400a, byte(period&0xff))
	hi := period >> 8
	if h.trigger || hi != h.lastHiPeriod {
		a.Write(0x400b, byte(hi))
		h.lastHiPeriod = hi
	}
}

func (h *channelHandler) refreshNoise(a *apu.APU, silent bool) {
	if silent {
		if !h.cut {
			a.Write(0x400c, 0x30)
			h.cut = true
		}
		return
	}
	a.Write(0x400c, 0x30|byte(h.outputVolume()))
	a.Write(0x400e, byte(h.period&0x0f))
	if h.trigger {
		a.Write(0x400f, 0)
	}
}

func (h *channelHandler) refreshDPCM(a *apu.APU, silent bool) {
	if silent {
		if !h.cut {
			a.Write(0x4015, 0x0f)
			h.cut = true
		}
		return
	}
	if !h.trigger {
		return
	}
	inst := h.doc.Instrument(h.instrument)
	if inst == nil || len(inst.Sample) == 0 {
		return
	}
	a.LoadSample(inst.Sample)
	a.Write(0x4010, byte(inst.SamplePitch&0x0f))
	a.Write(0x4012, 0)
	a.Write(0x4013, byte((len(inst.Sample)-1)>>4))
	a.Write(0x4015, 0x0f)
	a.Write(0x4015, 0x1f)
}

// Note and Volume are the display readouts, eventually consistent
// with the engine goroutine.
func (h *channelHandler) Note() int       { return int(h.dispNote.Load()) }
func (h *channelHandler) Volume() int     { return int(h.dispVolume.Load()) }
func (h *channelHandler) Instrument() int { return int(h.dispInstrument.Load()) }
