// Package sound runs the tracker playback engine. An Engine owns a
// dedicated goroutine that sequences song rows, drives the APU
// emulation and pushes the mixed PCM to an output device or a WAV
// file. The foreground talks to it through commands and lock-free
// display readouts.
package sound

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/mkazune/famisound/apu"
	"github.com/mkazune/famisound/config"
	"github.com/mkazune/famisound/song"
)

// Output is a PCM sink for live playback. FlushBuffer may block to
// pace the engine against the device clock.
type Output interface {
	FlushBuffer(samples []int16) error
	Reset()
	Close() error
}

// OpenChannelFunc opens an Output at the given format. Injected so
// the engine does not depend on a concrete audio backend.
type OpenChannelFunc func(device, sampleRate, sampleSize, channels, bufferLenMs int) (Output, error)

// View supplies the UI selection and receives row updates. Calls
// arrive on the engine goroutine.
type View interface {
	UpdateRow(frame, row int)
	Selection() (track, frame, row int)
}

// Visualizer consumes the mixed sample blocks, once per tick.
type Visualizer interface {
	FlushSamples(samples []int16)
}

// Messenger receives engine state notifications, on the engine
// goroutine.
type Messenger interface {
	PlayerStateChanged(playing bool)
	NotePlayed(channel int, ev song.RowEvent)
	RenderStateChanged(rendering bool)
	DeviceError(err error)
}

// PlayMode selects where playback starts.
type PlayMode int

const (
	PlayFromStart PlayMode = iota // first frame, first row
	PlayFromFrame                 // top of the selected frame
	PlayFromRow                   // exactly at the selection
)

type cmdStartPlayer struct {
	mode  PlayMode
	track int
}
type cmdResetPlayer struct{}
type cmdSilentAll struct{}
type cmdPlayRow struct{}
type cmdMoveToFrame struct{ frame int }
type cmdLoadSettings struct{ cfg config.Config }
type cmdStartRender struct{ r *waveRenderer }
type cmdStopRender struct{}
type cmdPreviewSample struct {
	data   []byte
	offset int
	pitch  int
	loop   bool
}
type cmdWriteAPU struct {
	address uint16
	data    byte
}
type cmdRemoveDocument struct{}
type cmdQuit struct{}

type docBox struct{ doc song.Document }
type viewBox struct{ view View }
type msgBox struct{ m Messenger }

// Engine is the playback actor. Construct with NewEngine, start its
// goroutine with go Run, stop it with Shutdown. All mutation of the
// driver, the tempo counter and the renderer happens on the engine
// goroutine; the foreground API is commands plus atomic readouts.
type Engine struct {
	cfgPtr atomic.Pointer[config.Config]
	open   OpenChannelFunc

	a        *apu.APU
	tempo    *tempoCounter
	bpmDisp  *tempoDisplay
	driver   *driver
	recorder *instrumentRecorder

	// Engine goroutine only.
	output       Output
	frameRate    int
	updateCycles int

	// apuMu guards APU register writes and snapshot reads. renderMu
	// guards the renderer pointer and the visualizer.
	apuMu    sync.Mutex
	renderMu sync.Mutex
	renderer *waveRenderer
	visual   Visualizer

	docPtr  atomic.Pointer[docBox]
	viewPtr atomic.Pointer[viewBox]
	msgPtr  atomic.Pointer[msgBox]

	cmds chan any
	done chan struct{}

	running      atomic.Bool
	haltRequest  atomic.Bool
	frameCounter atomic.Int32

	muted         [song.NumChannels]atomic.Bool
	recordChannel atomic.Int32
	recordResult  atomic.Pointer[song.Instrument]

	dispTrack atomic.Int32
	dispFrame atomic.Int32
	dispRow   atomic.Int32
	dispTicks atomic.Int32
	bpm       atomic.Uint64
	avgBPM    atomic.Uint64
}

func NewEngine(cfg config.Config, open OpenChannelFunc) *Engine {
	a := apu.New()
	tempo := newTempoCounter()
	e := &Engine{
		open:      open,
		a:         a,
		tempo:     tempo,
		bpmDisp:   newTempoDisplay(tempo),
		recorder:  newInstrumentRecorder(),
		cmds:      make(chan any, 64),
		done:      make(chan struct{}),
		frameRate: song.NTSC.DefaultFrameRate(),
	}
	e.cfgPtr.Store(&cfg)
	e.driver = newDriver(e, a, tempo)
	e.recordChannel.Store(-1)
	e.updateCycles = apu.BaseFreqNTSC / e.frameRate
	return e
}

func (e *Engine) config() config.Config { return *e.cfgPtr.Load() }

func (e *Engine) document() song.Document {
	if b := e.docPtr.Load(); b != nil {
		return b.doc
	}
	return nil
}

func (e *Engine) messenger() Messenger {
	if b := e.msgPtr.Load(); b != nil {
		return b.m
	}
	return nil
}

func (e *Engine) viewSelection() (track, frame, row int) {
	if b := e.viewPtr.Load(); b != nil && b.view != nil {
		return b.view.Selection()
	}
	return 0, 0, 0
}

// AssignDocument attaches the song document. The first assignment
// wins; later calls are rejected until RemoveDocument.
func (e *Engine) AssignDocument(doc song.Document) bool {
	return e.docPtr.CompareAndSwap(nil, &docBox{doc: doc})
}

// AssignView sets the UI selection source.
func (e *Engine) AssignView(v View) { e.viewPtr.Store(&viewBox{view: v}) }

// SetMessenger sets the notification sink.
func (e *Engine) SetMessenger(m Messenger) { e.msgPtr.Store(&msgBox{m: m}) }

// SetVisualizer sets the sample consumer for waveform displays.
func (e *Engine) SetVisualizer(v Visualizer) {
	e.renderMu.Lock()
	e.visual = v
	e.renderMu.Unlock()
}

// send delivers a command to the engine goroutine. It only blocks on
// a full queue while the goroutine is alive to drain it; without one,
// commands beyond the queue capacity are dropped.
func (e *Engine) send(c any) {
	select {
	case e.cmds <- c:
		return
	case <-e.done:
		return
	default:
	}
	if !e.running.Load() {
		glog.Warningf("Dropping %T: engine is not running", c)
		return
	}
	select {
	case e.cmds <- c:
	case <-e.done:
	}
}

// Run is the engine goroutine body. It loops until Shutdown,
// draining commands then producing one tick of audio; the blocking
// device writes pace the loop in real time.
func (e *Engine) Run() {
	e.running.Store(true)
	defer func() {
		e.stopRendering()
		if e.driver.IsPlaying() {
			e.haltPlayer()
		}
		if e.output != nil {
			e.output.Close()
			e.output = nil
		}
		e.running.Store(false)
		close(e.done)
	}()

	if err := e.resetAudioDevice(); err != nil {
		glog.Errorf("Failed to open the audio device: %v", err)
		if m := e.messenger(); m != nil {
			m.DeviceError(err)
		}
	}
	e.loadMachineSettings()
	e.makeSilent()

	for e.processCommands() {
		e.tick()
	}
}

// IsRunning reports whether the engine goroutine is alive.
func (e *Engine) IsRunning() bool { return e.running.Load() }

// processCommands drains all pending commands. Returns false when a
// quit command was seen.
func (e *Engine) processCommands() bool {
	for {
		select {
		case c := <-e.cmds:
			if _, quit := c.(cmdQuit); quit {
				return false
			}
			e.handleCommand(c)
		default:
			return true
		}
	}
}

func (e *Engine) handleCommand(c any) {
	switch c := c.(type) {
	case cmdStartPlayer:
		if e.IsRendering() {
			glog.Warningf("Cannot start playback while rendering")
			return
		}
		e.beginPlayer(c.mode, c.track)
	case cmdResetPlayer:
		if e.IsRendering() {
			return
		}
		e.beginPlayer(PlayFromStart, int(e.dispTrack.Load()))
	case cmdSilentAll:
		if e.driver.IsPlaying() {
			e.haltPlayer()
		}
		e.makeSilent()
	case cmdPlayRow:
		e.playSingleRow()
	case cmdMoveToFrame:
		if cur := e.driver.PlayerCursor(); cur != nil {
			cur.SetPosition(c.frame, 0)
		}
	case cmdLoadSettings:
		cfg := c.cfg
		e.cfgPtr.Store(&cfg)
		if err := e.resetAudioDevice(); err != nil {
			glog.Errorf("Failed to reopen the audio device: %v", err)
			if m := e.messenger(); m != nil {
				m.DeviceError(err)
			}
		}
		e.loadMachineSettings()
	case cmdStartRender:
		e.startRendering(c.r)
	case cmdStopRender:
		e.stopRendering()
	case cmdPreviewSample:
		e.playPreviewSample(c)
	case cmdWriteAPU:
		e.apuMu.Lock()
		e.a.Write(c.address, c.data)
		e.apuMu.Unlock()
	case cmdRemoveDocument:
		e.detachDocument()
	default:
		glog.Errorf("Unknown engine command: %T", c)
	}
}

// tick produces one engine frame: sequencing, emulation, output.
func (e *Engine) tick() {
	e.frameCounter.Add(1)

	doc := e.document()
	if doc == nil || !doc.IsFileLoaded() {
		time.Sleep(time.Second / time.Duration(e.frameRate))
		return
	}
	if e.driver.doc != doc {
		e.driver.LoadDocument(doc)
		e.loadMachineSettings()
	}

	if e.haltRequest.Swap(false) && e.driver.IsPlaying() {
		e.haltPlayer()
	}

	e.renderMu.Lock()
	r := e.renderer
	e.renderMu.Unlock()
	if r != nil && r.ShouldStartPlayer() {
		e.beginPlayer(PlayFromStart, r.RenderTrack())
		r.PlayerStarted()
	}

	e.driver.Tick()
	if cur := e.driver.PlayerCursor(); cur != nil {
		e.dispTrack.Store(int32(cur.Track()))
		e.dispTicks.Store(int32(cur.TotalTicks()))
	}

	e.apuMu.Lock()
	pcm := e.driver.UpdateAPU(e.updateCycles)
	e.apuMu.Unlock()

	e.flushSamples(pcm, r)

	if r != nil {
		r.Tick()
		if r.ShouldStopPlayer() && e.driver.IsPlaying() {
			e.haltPlayer()
		}
		if r.ShouldStopRender() {
			e.stopRendering()
		}
	}
	if e.driver.IsPlaying() && e.driver.ShouldHalt() {
		e.haltPlayer()
	}
}

// flushSamples hands a tick's PCM to the renderer or the device,
// then to the visualizer. Without a sink it sleeps one tick to keep
// the loop paced.
func (e *Engine) flushSamples(pcm []int16, r *waveRenderer) {
	switch {
	case r != nil:
		if err := r.FlushBuffer(pcm); err != nil {
			glog.Errorf("Render write failed, stopping: %v", err)
			e.stopRendering()
		}
	case e.output != nil:
		if err := e.output.FlushBuffer(pcm); err != nil {
			glog.Errorf("Audio output failed: %v", err)
			e.output.Close()
			e.output = nil
		}
	default:
		time.Sleep(time.Second / time.Duration(e.frameRate))
	}

	e.renderMu.Lock()
	if e.visual != nil {
		e.visual.FlushSamples(pcm)
	}
	e.renderMu.Unlock()
}

// resetAudioDevice closes and reopens the output from the current
// settings.
func (e *Engine) resetAudioDevice() error {
	if e.output != nil {
		e.output.Close()
		e.output = nil
	}
	if e.open == nil {
		return nil
	}
	cfg := e.config()
	out, err := e.open(cfg.Sound.Device, cfg.Sound.SampleRate, cfg.Sound.SampleSize, 1, cfg.Sound.BufferLength)
	if err != nil {
		return fmt.Errorf("failed to open the audio channel: %w", err)
	}
	e.output = out
	return nil
}

// loadMachineSettings applies the document's machine type and the
// mixer settings to the APU.
func (e *Engine) loadMachineSettings() {
	cfg := e.config()
	machine := apu.MachineNTSC
	e.frameRate = song.NTSC.DefaultFrameRate()
	base := apu.BaseFreqNTSC
	if doc := e.document(); doc != nil {
		if doc.GetMachine() == song.PAL {
			machine = apu.MachinePAL
			base = apu.BaseFreqPAL
		}
		e.frameRate = doc.FrameRate()
	}
	e.updateCycles = base / e.frameRate

	e.apuMu.Lock()
	e.a.SetupSound(cfg.Sound.SampleRate, machine)
	e.a.SetChipLevel(apu.LevelAPU1, float64(cfg.ChipLevels.APU1)/100)
	e.a.SetChipLevel(apu.LevelAPU2, float64(cfg.ChipLevels.APU2)/100)
	e.a.SetupMixer(cfg.Sound.BassFilter, cfg.Sound.TrebleFilter, cfg.Sound.MixVolume)
	e.apuMu.Unlock()
	glog.Infof("Machine settings: %d Hz frame rate, %d cycles per tick", e.frameRate, e.updateCycles)
}

// resetAPULocked runs the power-on sequence: hardware reset, all
// channels enabled, frame sequencer in 4-step mode.
func (e *Engine) resetAPULocked() {
	e.a.Reset()
	e.a.Write(0x4015, 0x0f)
	e.a.Write(0x4017, 0x00)
}

// makeSilent resets every channel handler and the APU, and drops any
// PCM queued on the device.
func (e *Engine) makeSilent() {
	e.apuMu.Lock()
	e.driver.ResetTracks()
	e.resetAPULocked()
	e.apuMu.Unlock()
	if e.output != nil {
		e.output.Reset()
	}
}

// beginPlayer starts playback on the engine goroutine.
func (e *Engine) beginPlayer(mode PlayMode, track int) {
	doc := e.document()
	if doc == nil || !doc.IsFileLoaded() {
		return
	}
	if track < 0 || track >= doc.TrackCount() {
		track = 0
	}
	if e.driver.doc != doc {
		e.driver.LoadDocument(doc)
	}

	frame, row := 0, 0
	switch mode {
	case PlayFromFrame:
		_, frame, _ = e.viewSelection()
	case PlayFromRow:
		_, frame, row = e.viewSelection()
	}

	e.tempo.LoadTempo(doc.Track(track), e.frameRate)
	e.makeSilent()
	e.driver.StartPlayer(NewPlayerCursorAt(doc, track, frame, row))
	e.applyGlobalState(doc)

	e.dispTrack.Store(int32(track))
	e.dispFrame.Store(int32(frame))
	e.dispRow.Store(int32(row))
	e.storeBPM()
	glog.Infof("Playback started: track %d, frame %d, row %d", track, frame, row)
	if m := e.messenger(); m != nil {
		m.PlayerStateChanged(true)
	}
}

// haltPlayer stops playback, silences the APU and finalizes any
// instrument recording.
func (e *Engine) haltPlayer() {
	// Finalize the recording before the playing flag drops so a
	// waiting foreground sees the result.
	if inst := e.recorder.StopRecording(); inst != nil {
		e.recordResult.Store(inst)
		glog.Infof("Recorded instrument: %s", inst.Name)
	}
	e.driver.StopPlayer()
	e.makeSilent()
	glog.Infof("Playback stopped")
	if m := e.messenger(); m != nil {
		m.PlayerStateChanged(false)
	}
}

// applyGlobalState restores per-channel state for the current
// position: the player position while playing, the UI selection
// otherwise. Only active when state recall is enabled.
func (e *Engine) applyGlobalState(doc song.Document) {
	if !e.config().General.RetrieveChanState {
		return
	}
	track, frame, row := e.viewSelection()
	if cur := e.driver.PlayerCursor(); cur != nil && e.driver.IsPlaying() {
		track, frame, row = cur.Track(), cur.Frame(), cur.Row()
	}
	var st SongState
	st.Retrieve(doc, track, frame, row)
	e.driver.LoadSoundState(&st)
}

// playSingleRow queues the selected row's notes once, without
// starting the player.
func (e *Engine) playSingleRow() {
	doc := e.document()
	if doc == nil || !doc.IsFileLoaded() || e.driver.IsPlaying() {
		return
	}
	if e.driver.doc != doc {
		e.driver.LoadDocument(doc)
	}
	e.applyGlobalState(doc)
	track, frame, row := e.viewSelection()
	for ch := 0; ch < doc.ChannelCount(); ch++ {
		ev := doc.ActiveNote(track, frame, ch, row)
		if ev.Kind == song.KindNone && ev.Instrument < 0 && ev.Volume < 0 && ev.Effect == song.EffNone {
			continue
		}
		e.driver.QueueNote(ch, ev, NotePrio1)
	}
}

// playPreviewSample plays a DPCM sample directly, bypassing the
// sequencer. The offset skips 64-byte pages from the start of the
// sample, shortening the played length accordingly.
func (e *Engine) playPreviewSample(c cmdPreviewSample) {
	if len(c.data) == 0 {
		return
	}
	ctrl := byte(c.pitch & 0x0f)
	if c.loop {
		ctrl |= 0x40
	}
	offset := c.offset & 0x3f
	length := (len(c.data)-1)>>4 - offset<<2
	if length < 0 {
		length = 0
	}
	e.apuMu.Lock()
	e.a.LoadSample(c.data)
	e.a.Write(0x4010, ctrl)
	e.a.Write(0x4012, byte(offset))
	e.a.Write(0x4013, byte(length))
	e.a.Write(0x4015, 0x0f)
	e.a.Write(0x4015, 0x1f)
	e.apuMu.Unlock()
}

func (e *Engine) startRendering(r *waveRenderer) {
	if e.driver.IsPlaying() {
		e.haltPlayer()
	}
	e.renderMu.Lock()
	busy := e.renderer != nil
	if !busy {
		e.renderer = r
	}
	e.renderMu.Unlock()
	if busy {
		glog.Warningf("A render is already in progress")
		r.Close()
		return
	}
	r.Start()
	glog.Infof("Rendering track %d", r.RenderTrack())
	if m := e.messenger(); m != nil {
		m.RenderStateChanged(true)
	}
}

func (e *Engine) stopRendering() {
	e.renderMu.Lock()
	r := e.renderer
	e.renderer = nil
	e.renderMu.Unlock()
	if r == nil {
		return
	}
	if e.driver.IsPlaying() {
		e.haltPlayer()
	}
	if err := r.Close(); err != nil {
		glog.Errorf("Failed to finalize the render file: %v", err)
	}
	glog.Infof("Render finished: %d samples", r.SamplesWritten())
	if m := e.messenger(); m != nil {
		m.RenderStateChanged(false)
	}
}

func (e *Engine) detachDocument() {
	if e.driver.IsPlaying() {
		e.haltPlayer()
	}
	e.makeSilent()
	e.driver.UnloadDocument()
	e.docPtr.Store(nil)
	glog.Infof("Document detached")
}

// storeBPM publishes the current and averaged BPM readouts, capped
// to the tick rate and scaled to the row highlight interval.
func (e *Engine) storeBPM() {
	doc := e.document()
	cur := e.driver.PlayerCursor()
	if doc == nil || cur == nil {
		return
	}
	highlight := doc.HighlightAt(cur.Track(), cur.Frame(), cur.Row())
	if highlight <= 0 {
		highlight = 4
	}
	limit := float64(e.frameRate * 15)
	scale := 4.0 / float64(highlight)

	instant := e.tempo.Tempo()
	if instant > limit {
		instant = limit
	}
	e.bpm.Store(math.Float64bits(instant * scale))

	avg := e.bpmDisp.AverageBPM()
	if avg > limit {
		avg = limit
	}
	e.avgBPM.Store(math.Float64bits(avg * scale))
}

// driverHost notifications, engine goroutine.

func (e *Engine) OnTick() {
	ch := int(e.recordChannel.Load())
	hs := e.driver.handlers()
	if ch >= 0 && ch < len(hs) && e.driver.IsPlaying() {
		if !e.recorder.Armed() {
			e.recorder.StartRecording(ch)
		}
		h := hs[ch]
		e.recorder.RecordTick(h.Note(), h.Volume(), h.outputDuty())
	}
}

func (e *Engine) OnStepRow() {
	e.bpmDisp.Tick()
	e.storeBPM()
	e.renderMu.Lock()
	if e.renderer != nil {
		e.renderer.StepRow()
	}
	e.renderMu.Unlock()
}

func (e *Engine) OnUpdateRow(frame, row int) {
	e.dispFrame.Store(int32(frame))
	e.dispRow.Store(int32(row))
	if b := e.viewPtr.Load(); b != nil && b.view != nil {
		b.view.UpdateRow(frame, row)
	}
}

func (e *Engine) OnPlayNote(channel int, ev song.RowEvent) {
	if m := e.messenger(); m != nil {
		m.NotePlayed(channel, ev)
	}
}

// IsChannelMuted reports whether a channel is muted. Muted channels
// never receive queued notes.
func (e *Engine) IsChannelMuted(channel int) bool {
	if channel < 0 || channel >= len(e.muted) {
		return true
	}
	return e.muted[channel].Load()
}

// Foreground API.

// StartPlayer begins playback of a track from the position the mode
// selects.
func (e *Engine) StartPlayer(mode PlayMode, track int) {
	e.send(cmdStartPlayer{mode: mode, track: track})
}

// StopPlayer requests a halt. The engine observes the flag on its
// next tick.
func (e *Engine) StopPlayer() { e.haltRequest.Store(true) }

// ResetPlayer restarts playback from the top of the current track.
func (e *Engine) ResetPlayer() { e.send(cmdResetPlayer{}) }

// SilentAll stops playback and silences every channel.
func (e *Engine) SilentAll() { e.send(cmdSilentAll{}) }

// PlaySingleRow plays the selected row's notes once.
func (e *Engine) PlaySingleRow() { e.send(cmdPlayRow{}) }

// MoveToFrame jumps the player to the top of a frame.
func (e *Engine) MoveToFrame(frame int) { e.send(cmdMoveToFrame{frame: frame}) }

// LoadSettings applies new settings, reopening the audio device on
// the engine goroutine.
func (e *Engine) LoadSettings(cfg config.Config) { e.send(cmdLoadSettings{cfg: cfg}) }

// WriteAPU performs a direct register write, serialized with the
// engine's own writes.
func (e *Engine) WriteAPU(address uint16, data byte) {
	e.send(cmdWriteAPU{address: address, data: data})
}

// PreviewSample plays a DPCM sample at the given pitch, starting
// offset 64-byte pages into the sample.
func (e *Engine) PreviewSample(data []byte, offset, pitch int, loop bool) {
	e.send(cmdPreviewSample{data: data, offset: offset, pitch: pitch, loop: loop})
}

// PreviewDone reports whether a previewed sample finished playing.
func (e *Engine) PreviewDone() bool {
	e.apuMu.Lock()
	defer e.apuMu.Unlock()
	return !e.a.DPCMPlaying()
}

// IsPlaying reports whether the player is active.
func (e *Engine) IsPlaying() bool { return e.driver.IsPlaying() }

// WaitForStop blocks until playback halts, polling for up to four
// seconds. Returns false on timeout.
func (e *Engine) WaitForStop() bool {
	for i := 0; i < 40; i++ {
		if !e.IsPlaying() {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return !e.IsPlaying()
}

// Shutdown stops the engine goroutine, waiting up to three seconds
// for it to exit.
func (e *Engine) Shutdown() bool {
	e.send(cmdQuit{})
	select {
	case <-e.done:
		return true
	case <-time.After(3 * time.Second):
		glog.Errorf("Engine goroutine did not stop within 3s")
		return false
	}
}

// RemoveDocument detaches the document, polling up to five seconds
// for the engine to let go of it.
func (e *Engine) RemoveDocument() bool {
	e.send(cmdRemoveDocument{})
	for i := 0; i < 50; i++ {
		if e.document() == nil {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return e.document() == nil
}

// RenderToFile starts rendering a track to a WAV file. Active
// playback is halted first; only a render already in progress makes
// the call fail.
func (e *Engine) RenderToFile(path string, spec RenderSpec) error {
	if e.IsRendering() {
		return fmt.Errorf("a render is already in progress")
	}
	if e.IsPlaying() {
		e.StopPlayer()
		if !e.WaitForStop() {
			return fmt.Errorf("playback did not stop")
		}
	}
	doc := e.document()
	if doc == nil || !doc.IsFileLoaded() {
		return fmt.Errorf("no song loaded")
	}
	t := doc.Track(spec.Track)
	if t == nil {
		return fmt.Errorf("no such track: %d", spec.Track)
	}
	cfg := e.config()
	r, err := newWaveRenderer(path, spec, cfg.Sound.SampleRate, cfg.Sound.SampleSize, t.Rows*len(t.Frames))
	if err != nil {
		return err
	}
	e.send(cmdStartRender{r: r})
	return nil
}

// IsRendering reports whether a render job is active.
func (e *Engine) IsRendering() bool {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()
	return e.renderer != nil
}

// StopRender aborts the active render job.
func (e *Engine) StopRender() { e.send(cmdStopRender{}) }

// SetChannelMute mutes or unmutes a channel. Muting the record
// channel cancels recording.
func (e *Engine) SetChannelMute(channel int, mute bool) {
	if channel < 0 || channel >= len(e.muted) {
		return
	}
	e.muted[channel].Store(mute)
	if mute {
		e.recordChannel.CompareAndSwap(int32(channel), -1)
	}
}

// SetRecordChannel arms instrument recording on a channel, or disarms
// with a negative index.
func (e *Engine) SetRecordChannel(channel int) {
	if channel >= int(song.NumChannels) {
		return
	}
	if channel < 0 {
		channel = -1
	}
	e.recordChannel.Store(int32(channel))
}

// RecordChannel returns the armed record channel, -1 when disarmed.
func (e *Engine) RecordChannel() int { return int(e.recordChannel.Load()) }

// GetRecordInstrument returns the last finished recording, once.
func (e *Engine) GetRecordInstrument() *song.Instrument {
	return e.recordResult.Swap(nil)
}

// GetFrameRate returns the ticks run since the last call.
func (e *Engine) GetFrameRate() int { return int(e.frameCounter.Swap(0)) }

// RegisterSnapshot returns a copy of the APU registers and readouts.
func (e *Engine) RegisterSnapshot() apu.RegisterImage {
	e.apuMu.Lock()
	defer e.apuMu.Unlock()
	return e.a.Snapshot()
}

// GetReg returns one APU register value.
func (e *Engine) GetReg(address uint16) byte {
	e.apuMu.Lock()
	defer e.apuMu.Unlock()
	return e.a.GetReg(address)
}

// ChannelFrequency returns a channel's current frequency in Hz.
func (e *Engine) ChannelFrequency(channel int) float64 {
	e.apuMu.Lock()
	defer e.apuMu.Unlock()
	return e.a.ChannelFrequency(channel)
}

// GetChannelNote returns the note a channel is sounding, -1 when
// silent.
func (e *Engine) GetChannelNote(channel int) int { return e.driver.ChannelNote(channel) }

// GetChannelVolume returns a channel's sequencer output volume.
func (e *Engine) GetChannelVolume(channel int) int { return e.driver.ChannelVolume(channel) }

// RecallChannelState formats a channel's state: the live driver
// state while playing, the state stored in the song at the selection
// otherwise.
func (e *Engine) RecallChannelState(channel int) string {
	if e.IsPlaying() {
		return e.driver.ChannelStateString(channel)
	}
	doc := e.document()
	if doc == nil || !doc.IsFileLoaded() {
		return ""
	}
	track, frame, row := e.viewSelection()
	var st SongState
	st.Retrieve(doc, track, frame, row)
	return st.ChannelStateString(channel)
}

// GetPlayerPos returns the frame and row last played.
func (e *Engine) GetPlayerPos() (frame, row int) {
	return int(e.dispFrame.Load()), int(e.dispRow.Load())
}

// GetPlayerTrack returns the track being played.
func (e *Engine) GetPlayerTrack() int { return int(e.dispTrack.Load()) }

// GetPlayerTicks returns the tick count since playback started.
func (e *Engine) GetPlayerTicks() int { return int(e.dispTicks.Load()) }

// SetQueueFrame queues a frame jump for when the current frame ends.
func (e *Engine) SetQueueFrame(frame int) {
	if cur := e.driver.PlayerCursor(); cur != nil {
		cur.QueueFrame(frame)
	}
}

// GetQueueFrame returns the queued frame jump, if any.
func (e *Engine) GetQueueFrame() (int, bool) {
	if cur := e.driver.PlayerCursor(); cur != nil {
		return cur.QueuedFrame()
	}
	return 0, false
}

// GetCurrentBPM returns the instantaneous BPM readout.
func (e *Engine) GetCurrentBPM() float64 {
	return math.Float64frombits(e.bpm.Load())
}

// GetAverageBPM returns the BPM averaged over the display window.
func (e *Engine) GetAverageBPM() float64 {
	if !e.config().Display.AverageBPM {
		return e.GetCurrentBPM()
	}
	return math.Float64frombits(e.avgBPM.Load())
}
