package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazune/famisound/apu"
	"github.com/mkazune/famisound/song"
)

type fakeHost struct {
	ticks int
	rows  int
	notes []int
	muted map[int]bool
}

func (f *fakeHost) OnTick()    { f.ticks++ }
func (f *fakeHost) OnStepRow() { f.rows++ }
func (f *fakeHost) OnPlayNote(channel int, ev song.RowEvent) {
	f.notes = append(f.notes, channel)
}
func (f *fakeHost) OnUpdateRow(frame, row int) {}
func (f *fakeHost) IsChannelMuted(channel int) bool {
	return f.muted[channel]
}

func newTestDriver(doc song.Document) (*driver, *fakeHost, *apu.APU) {
	a := apu.New()
	a.SetupSound(44100, apu.MachineNTSC)
	a.SetupMixer(30, 12000, 100)
	a.Reset()
	a.Write(0x4015, 0x0f)
	a.Write(0x4017, 0x00)
	host := &fakeHost{muted: map[int]bool{}}
	tempo := newTempoCounter()
	d := newDriver(host, a, tempo)
	d.LoadDocument(doc)
	tempo.LoadTempo(doc.Track(0), doc.FrameRate())
	return d, host, a
}

// testModule builds a one-track module with the given pulse 1
// pattern, every other channel empty.
func testModule(rows, frames int, p1 map[int]song.RowEvent) *song.Module {
	t := &song.Track{
		Name:  "test",
		Rows:  rows,
		Speed: 6,
		Tempo: 150,
	}
	for f := 0; f < frames; f++ {
		t.Frames = append(t.Frames, [song.NumChannels]int{f, 0, 0, 0, 0})
	}
	empty := func() song.Pattern {
		p := make(song.Pattern, rows)
		for i := range p {
			p[i] = song.EmptyRow()
		}
		return p
	}
	for f := 0; f < frames; f++ {
		p := empty()
		if f == 0 {
			for r, ev := range p1 {
				p[r] = ev
			}
		}
		t.Patterns[song.ChanPulse1] = append(t.Patterns[song.ChanPulse1], p)
	}
	for ch := song.ChanPulse2; ch < song.NumChannels; ch++ {
		t.Patterns[ch] = []song.Pattern{empty()}
	}
	m := &song.Module{
		Machine:     song.NTSC,
		Tracks:      []*song.Track{t},
		Instruments: []*song.Instrument{{Name: "flat", Volume: []int{15}}},
	}
	m.SetFileLoaded(true)
	return m
}

func TestQueuedNotePriority(t *testing.T) {
	h := newChannelHandler(song.ChanPulse1, song.Demo(), song.NTSC)
	evA := song.RowEvent{Kind: song.KindNote, Note: 40, Instrument: 0, Volume: 15}
	evB := song.RowEvent{Kind: song.KindNote, Note: 41, Instrument: 0, Volume: 15}
	evC := song.RowEvent{Kind: song.KindNote, Note: 42, Instrument: 0, Volume: 15}
	evD := song.RowEvent{Kind: song.KindHalt, Instrument: -1, Volume: -1}

	h.QueueNote(evA, NotePrio1)
	h.QueueNote(evB, NotePrio0) // lower priority loses
	require.Equal(t, evA, h.queued.ev)

	h.QueueNote(evC, NotePrio1) // equal priority, last write wins
	require.Equal(t, evC, h.queued.ev)

	h.QueueNote(evD, NotePrio2)
	h.QueueNote(evA, NotePrio1) // cannot displace the forced halt
	assert.Equal(t, evD, h.queued.ev)
	assert.Equal(t, NotePrio2, h.queued.prio)
}

func TestMutedChannelNeverReachesAPU(t *testing.T) {
	doc := song.Demo()
	d, host, a := newTestDriver(doc)
	host.muted[song.ChanPulse1] = true

	d.QueueNote(song.ChanPulse1, song.RowEvent{Kind: song.KindNote, Note: 52, Instrument: 0, Volume: 15}, NotePrio1)
	d.Tick()
	d.UpdateAPU(apu.BaseFreqNTSC / 60)

	// Only the silencing write lands, no period or trigger.
	assert.Equal(t, byte(0x30), a.GetReg(0x4000))
	assert.Equal(t, byte(0x00), a.GetReg(0x4002))
	assert.Equal(t, byte(0x00), a.GetReg(0x4003))
}

func TestRowSequencing(t *testing.T) {
	doc := song.Demo()
	d, host, a := newTestDriver(doc)
	d.StartPlayer(NewPlayerCursor(doc, 0))

	for i := 0; i < 60; i++ {
		d.Tick()
		d.UpdateAPU(apu.BaseFreqNTSC / 60)
	}
	// 60 ticks at the default tempo is 10 rows.
	assert.Equal(t, 10, host.rows)
	assert.Equal(t, 60, host.ticks)

	// The demo's first pulse 1 note made it to the registers.
	assert.NotZero(t, a.GetReg(0x4002))
	assert.Equal(t, byte(0x0f)&a.GetReg(0x4015), byte(0x0f))
}

func TestSpeedEffect(t *testing.T) {
	doc := testModule(4, 1, map[int]song.RowEvent{
		0: {Instrument: -1, Volume: -1, Effect: song.EffSpeed, Param: 3},
	})
	d, _, _ := newTestDriver(doc)
	d.StartPlayer(NewPlayerCursor(doc, 0))
	d.Tick()
	assert.Equal(t, 3, d.tempo.speed)
}

func TestTempoEffect(t *testing.T) {
	doc := testModule(4, 1, map[int]song.RowEvent{
		0: {Instrument: -1, Volume: -1, Effect: song.EffSpeed, Param: 0x96},
	})
	d, _, _ := newTestDriver(doc)
	d.StartPlayer(NewPlayerCursor(doc, 0))
	d.Tick()
	assert.Equal(t, 150, d.tempo.tempo)
}

func TestJumpEffect(t *testing.T) {
	doc := testModule(4, 2, map[int]song.RowEvent{
		0: {Instrument: -1, Volume: -1, Effect: song.EffJump, Param: 1},
	})
	d, _, _ := newTestDriver(doc)
	cur := NewPlayerCursor(doc, 0)
	d.StartPlayer(cur)
	d.Tick() // plays row 0, then jumps
	assert.Equal(t, 1, cur.Frame())
	assert.Equal(t, 0, cur.Row())
}

func TestSkipEffect(t *testing.T) {
	doc := testModule(4, 2, map[int]song.RowEvent{
		0: {Instrument: -1, Volume: -1, Effect: song.EffSkip, Param: 2},
	})
	d, _, _ := newTestDriver(doc)
	cur := NewPlayerCursor(doc, 0)
	d.StartPlayer(cur)
	d.Tick()
	assert.Equal(t, 1, cur.Frame())
	assert.Equal(t, 2, cur.Row())
}

func TestHaltEffect(t *testing.T) {
	doc := testModule(4, 1, map[int]song.RowEvent{
		1: {Instrument: -1, Volume: -1, Effect: song.EffHalt},
	})
	d, _, _ := newTestDriver(doc)
	d.StartPlayer(NewPlayerCursor(doc, 0))
	d.Tick()
	require.False(t, d.ShouldHalt())
	for i := 0; i < 6; i++ {
		d.Tick()
	}
	assert.True(t, d.ShouldHalt())
}

func TestStateRetrieve(t *testing.T) {
	doc := song.Demo()
	var st SongState
	st.Retrieve(doc, 0, 0, 15)

	p1 := st.Channels[song.ChanPulse1]
	assert.Equal(t, 4*12+7, p1.Note) // G-4 from row 12
	assert.Equal(t, 0, p1.Instrument)
	assert.Equal(t, 12, p1.Volume)

	tri := st.Channels[song.ChanTriangle]
	assert.Equal(t, 2*12+9, tri.Note) // A-2 from row 12
	assert.Equal(t, 1, tri.Instrument)
}

func TestStateRestoreWithoutRetrigger(t *testing.T) {
	doc := song.Demo()
	d, _, a := newTestDriver(doc)

	var st SongState
	st.Retrieve(doc, 0, 0, 15)
	d.LoadSoundState(&st)
	d.Tick()
	d.UpdateAPU(apu.BaseFreqNTSC / 60)

	// The sustained note is sounding without a fresh length load:
	// the period registers are set but no $4003 trigger happened.
	assert.NotZero(t, a.GetReg(0x4002))
	h := d.handlers()[song.ChanPulse1]
	assert.True(t, h.active)
	assert.False(t, h.trigger)
}

func TestChannelStateString(t *testing.T) {
	var st SongState
	st.Retrieve(song.Demo(), 0, 0, 15)
	assert.Equal(t, "G-4 00 C", st.ChannelStateString(song.ChanPulse1))
	assert.Equal(t, "", st.ChannelStateString(-1))
}
