package song

import "sync"

// Machine selects the emulated video standard, which decides the
// sound chip clock and the default engine refresh rate.
type Machine int

const (
	NTSC Machine = iota
	PAL
)

// DefaultFrameRate returns the engine tick rate for the machine.
func (m Machine) DefaultFrameRate() int {
	if m == PAL {
		return 50
	}
	return 60
}

// Channel indices of the 2A03.
const (
	ChanPulse1 = iota
	ChanPulse2
	ChanTriangle
	ChanNoise
	ChanDPCM

	NumChannels
)

// NoteKind tells how a row event affects the channel's note state.
type NoteKind int

const (
	KindNone    NoteKind = iota // empty row, nothing changes
	KindNote                    // trigger the note in RowEvent.Note
	KindHalt                    // cut the channel
	KindRelease                 // release the sustaining note
)

// Effect commands, a subset of the usual tracker column.
type Effect int

const (
	EffNone Effect = iota
	EffArpeggio
	EffPortaUp
	EffPortaDown
	EffVibrato
	EffSpeed // param < 0x20 sets speed, otherwise tempo
	EffJump
	EffSkip
	EffHalt
)

// RowEvent is one cell of a pattern: note, instrument, volume and
// one effect with its parameter. Note is a semitone index where 0 is
// C-0 and 57 is A-4 (440 Hz). Instrument and Volume are -1 when the
// column is empty.
type RowEvent struct {
	Kind       NoteKind
	Note       int
	Instrument int
	Volume     int
	Effect     Effect
	Param      byte
}

// EmptyRow returns a row event with all columns empty.
func EmptyRow() RowEvent {
	return RowEvent{Kind: KindNone, Instrument: -1, Volume: -1}
}

// Instrument holds the 2A03 instrument sequences. A sequence is
// stepped once per engine tick and the last value holds. Sample is
// raw DPCM data for the DPCM channel, played at SamplePitch.
type Instrument struct {
	Name        string
	Volume      []int // 0..15
	Arpeggio    []int // semitone offsets
	Duty        []int // 0..3
	Sample      []byte
	SamplePitch int
}

// Pattern is one pattern of a single channel, indexed by row.
type Pattern []RowEvent

// Track is one song of a module: a frame list referencing per-channel
// patterns, plus the tempo settings the playback starts with.
type Track struct {
	Name      string
	Rows      int // rows per pattern
	Speed     int // ticks per row at default tempo
	Tempo     int // BPM-style tempo, 150 plays a row every Speed ticks on NTSC
	Highlight int // rows between accented beat markers

	// Frames[f][ch] is the pattern index channel ch plays at frame f.
	Frames   [][NumChannels]int
	Patterns [NumChannels][]Pattern
}

// FrameCount returns the number of frames in the track arrangement.
func (t *Track) FrameCount() int {
	return len(t.Frames)
}

// Module is the in-memory song document. The playback engine only
// reads it; the file-loaded flag is the single mutation entry point
// and may be flipped from any goroutine.
type Module struct {
	Machine     Machine
	EngineRate  int // 0 means the machine default
	Tracks      []*Track
	Instruments []*Instrument

	mu     sync.Mutex
	loaded bool
}

// Document is the read-only view of a module the engine depends on.
type Document interface {
	TrackCount() int
	Track(index int) *Track
	FrameRate() int
	GetMachine() Machine
	ChannelCount() int
	Instrument(index int) *Instrument
	// ActiveNote returns the row event at the position, or an empty
	// event when the position is out of range.
	ActiveNote(track, frame, channel, row int) RowEvent
	// HighlightAt returns the highlight interval effective at the
	// position.
	HighlightAt(track, frame, row int) int
	IsFileLoaded() bool
	SetFileLoaded(loaded bool)
}

func (m *Module) TrackCount() int {
	return len(m.Tracks)
}

func (m *Module) Track(index int) *Track {
	if index < 0 || index >= len(m.Tracks) {
		return nil
	}
	return m.Tracks[index]
}

// FrameRate returns the engine tick rate, EngineRate if the module
// declares one, otherwise the machine default.
func (m *Module) FrameRate() int {
	if m.EngineRate > 0 {
		return m.EngineRate
	}
	return m.Machine.DefaultFrameRate()
}

func (m *Module) GetMachine() Machine {
	return m.Machine
}

func (m *Module) ChannelCount() int {
	return NumChannels
}

func (m *Module) Instrument(index int) *Instrument {
	if index < 0 || index >= len(m.Instruments) {
		return nil
	}
	return m.Instruments[index]
}

func (m *Module) ActiveNote(track, frame, channel, row int) RowEvent {
	t := m.Track(track)
	if t == nil || frame < 0 || frame >= len(t.Frames) || channel < 0 || channel >= NumChannels {
		return EmptyRow()
	}
	if row < 0 || row >= t.Rows {
		return EmptyRow()
	}
	idx := t.Frames[frame][channel]
	if idx < 0 || idx >= len(t.Patterns[channel]) {
		return EmptyRow()
	}
	p := t.Patterns[channel][idx]
	if row >= len(p) {
		return EmptyRow()
	}
	return p[row]
}

func (m *Module) HighlightAt(track, frame, row int) int {
	t := m.Track(track)
	if t == nil || t.Highlight <= 0 {
		return 4
	}
	return t.Highlight
}

func (m *Module) IsFileLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Module) SetFileLoaded(loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = loaded
}
