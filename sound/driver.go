package sound

import (
	"sync/atomic"

	"github.com/mkazune/famisound/apu"
	"github.com/mkazune/famisound/song"
)

// driverHost receives the sequencer's notifications. Implemented by
// the engine; everything is called on the engine goroutine.
type driverHost interface {
	OnTick()
	OnStepRow()
	OnPlayNote(channel int, ev song.RowEvent)
	OnUpdateRow(frame, row int)
	IsChannelMuted(channel int) bool
}

// driver decodes song rows into channel commands and feeds the APU.
// Owned and run by the engine goroutine; the cursor pointer is
// atomic because the foreground reads it for position queries.
type driver struct {
	host  driverHost
	apu   *apu.APU
	tempo *tempoCounter

	doc     song.Document
	machine song.Machine

	// channels is replaced wholesale on document load and unload and
	// published atomically: the foreground display accessors read it
	// concurrently with the engine goroutine.
	channels atomic.Pointer[[]*channelHandler]

	cursor     atomic.Pointer[PlayerCursor]
	playing    atomic.Bool
	shouldHalt bool

	// Jump state collected while decoding a row, applied when the
	// cursor advances past it.
	jumpFrame int
	skipRow   int
}

func newDriver(host driverHost, a *apu.APU, tempo *tempoCounter) *driver {
	return &driver{
		host:      host,
		apu:       a,
		tempo:     tempo,
		jumpFrame: -1,
		skipRow:   -1,
	}
}

// LoadDocument sets up one handler per channel of the document.
func (d *driver) LoadDocument(doc song.Document) {
	d.doc = doc
	d.machine = doc.GetMachine()
	hs := make([]*channelHandler, 0, doc.ChannelCount())
	for ch := 0; ch < doc.ChannelCount(); ch++ {
		hs = append(hs, newChannelHandler(ch, doc, d.machine))
	}
	d.channels.Store(&hs)
}

// UnloadDocument drops the document and its handlers. Foreground
// readouts see an empty channel set from here on.
func (d *driver) UnloadDocument() {
	d.doc = nil
	d.channels.Store(nil)
}

func (d *driver) handlers() []*channelHandler {
	if p := d.channels.Load(); p != nil {
		return *p
	}
	return nil
}

func (d *driver) StartPlayer(cur *PlayerCursor) {
	d.cursor.Store(cur)
	d.shouldHalt = false
	d.jumpFrame = -1
	d.skipRow = -1
	d.playing.Store(true)
}

func (d *driver) StopPlayer() {
	d.playing.Store(false)
	d.cursor.Store(nil)
}

func (d *driver) IsPlaying() bool { return d.playing.Load() }

func (d *driver) ShouldHalt() bool { return d.shouldHalt }

// PlayerCursor returns the active cursor, or nil outside playback.
func (d *driver) PlayerCursor() *PlayerCursor { return d.cursor.Load() }

// ResetTracks silences every channel handler.
func (d *driver) ResetTracks() {
	for _, h := range d.handlers() {
		h.reset()
	}
}

// Tick runs one scheduler tick: row decoding when the tempo counter
// crosses a row boundary, then effect processing on every channel.
func (d *driver) Tick() {
	if d.playing.Load() {
		if cur := d.cursor.Load(); cur != nil {
			cur.Tick()
			if d.tempo.Tick() {
				d.playRow(cur)
				d.host.OnStepRow()
				d.advance(cur)
			}
		}
	}
	d.host.OnTick()
	for _, h := range d.handlers() {
		h.Tick()
	}
}

// playRow decodes the current row into queued notes and collects the
// row's global effects.
func (d *driver) playRow(cur *PlayerCursor) {
	frame, row := cur.Frame(), cur.Row()
	d.host.OnUpdateRow(frame, row)

	for ch := range d.handlers() {
		ev := d.doc.ActiveNote(cur.Track(), frame, ch, row)

		switch ev.Effect {
		case song.EffSpeed:
			if ev.Param < 0x20 {
				d.tempo.SetSpeed(int(ev.Param))
			} else {
				d.tempo.SetTempo(int(ev.Param))
			}
		case song.EffJump:
			d.jumpFrame = int(ev.Param)
		case song.EffSkip:
			d.skipRow = int(ev.Param)
		case song.EffHalt:
			d.shouldHalt = true
		}

		if ev.Kind == song.KindNone && ev.Instrument < 0 && ev.Volume < 0 && ev.Effect == song.EffNone {
			continue
		}
		d.QueueNote(ch, ev, NotePrio1)
		if ev.Kind == song.KindNote {
			d.host.OnPlayNote(ch, ev)
		}
	}
}

// advance moves the cursor to the next position, honoring Bxx jumps
// and Dxx skips decoded from the row just played.
func (d *driver) advance(cur *PlayerCursor) {
	switch {
	case d.jumpFrame >= 0:
		cur.QueueFrame(d.jumpFrame)
		cur.NextFrame(0)
	case d.skipRow >= 0:
		cur.NextFrame(d.skipRow)
	default:
		cur.StepRow()
	}
	d.jumpFrame = -1
	d.skipRow = -1
}

// QueueNote queues a row event on a channel. Notes for muted
// channels are discarded so they never reach the APU.
func (d *driver) QueueNote(channel int, ev song.RowEvent, prio NotePriority) {
	hs := d.handlers()
	if channel < 0 || channel >= len(hs) {
		return
	}
	if d.host.IsChannelMuted(channel) {
		return
	}
	hs[channel].QueueNote(ev, prio)
}

func (d *driver) ForceReloadInstrument(channel int) {
	if hs := d.handlers(); channel >= 0 && channel < len(hs) {
		hs[channel].ForceReloadInstrument()
	}
}

// UpdateAPU pushes the channel register changes into the APU and
// advances the emulation by one tick's worth of cycles. Caller holds
// the engine's APU lock.
func (d *driver) UpdateAPU(cycles int) []int16 {
	for ch, h := range d.handlers() {
		h.RefreshRegisters(d.apu, d.host.IsChannelMuted(ch))
	}
	return d.apu.Process(cycles)
}

// LoadSoundState restores all channels to match a captured song
// state without retriggering sustaining notes.
func (d *driver) LoadSoundState(st *SongState) {
	for ch, h := range d.handlers() {
		if ch < len(st.Channels) {
			h.applyState(st.Channels[ch])
		}
	}
}

// ChannelNote returns the channel's effective note for display, -1
// when silent.
func (d *driver) ChannelNote(channel int) int {
	hs := d.handlers()
	if channel < 0 || channel >= len(hs) {
		return -1
	}
	return hs[channel].Note()
}

// ChannelVolume returns the channel's output volume for display.
func (d *driver) ChannelVolume(channel int) int {
	hs := d.handlers()
	if channel < 0 || channel >= len(hs) {
		return 0
	}
	return hs[channel].Volume()
}

// ChannelStateString formats the live state of a channel.
func (d *driver) ChannelStateString(channel int) string {
	hs := d.handlers()
	if channel < 0 || channel >= len(hs) {
		return ""
	}
	h := hs[channel]
	st := SongState{}
	st.Channels[channel] = channelState{
		Note:       h.Note(),
		Instrument: h.Instrument(),
		Volume:     h.Volume(),
	}
	return st.ChannelStateString(channel)
}
