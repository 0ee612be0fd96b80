package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkazune/famisound/config"
	"github.com/mkazune/famisound/song"
)

type fakeOutput struct {
	mu      sync.Mutex
	samples int
	resets  int
	closed  bool
}

func (o *fakeOutput) FlushBuffer(samples []int16) error {
	o.mu.Lock()
	o.samples += len(samples)
	o.mu.Unlock()
	// Keep the free-running loop from starving the foreground.
	time.Sleep(time.Millisecond)
	return nil
}

func (o *fakeOutput) Reset() {
	o.mu.Lock()
	o.resets++
	o.mu.Unlock()
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

type fakeOpener struct {
	opens atomic.Int32
	out   *fakeOutput
	fail  bool
}

func (f *fakeOpener) open(device, sampleRate, sampleSize, channels, bufferLenMs int) (Output, error) {
	f.opens.Add(1)
	if f.fail {
		return nil, fmt.Errorf("no such device: %d", device)
	}
	return f.out, nil
}

func startTestEngine(t *testing.T) (*Engine, *fakeOpener) {
	t.Helper()
	opener := &fakeOpener{out: &fakeOutput{}}
	e := NewEngine(config.Default(), opener.open)
	require.True(t, e.AssignDocument(song.Demo()))
	go e.Run()
	t.Cleanup(func() { e.Shutdown() })
	require.Eventually(t, e.IsRunning, time.Second, time.Millisecond)
	return e, opener
}

func TestEngineStartStop(t *testing.T) {
	e, _ := startTestEngine(t)

	e.StartPlayer(PlayFromStart, 0)
	require.Eventually(t, e.IsPlaying, time.Second, time.Millisecond)

	// The power-on sequence is observable as soon as playback runs.
	assert.Equal(t, byte(0x0f), e.GetReg(0x4015))
	require.Eventually(t, func() bool { return e.GetPlayerTicks() > 0 }, time.Second, time.Millisecond)

	e.StopPlayer()
	assert.True(t, e.WaitForStop())
	assert.False(t, e.IsPlaying())
}

func TestEngineShutdownClosesOutput(t *testing.T) {
	opener := &fakeOpener{out: &fakeOutput{}}
	e := NewEngine(config.Default(), opener.open)
	e.AssignDocument(song.Demo())
	go e.Run()
	require.Eventually(t, e.IsRunning, time.Second, time.Millisecond)

	require.True(t, e.Shutdown())
	assert.False(t, e.IsRunning())
	opener.out.mu.Lock()
	defer opener.out.mu.Unlock()
	assert.True(t, opener.out.closed)
}

func TestEngineSurvivesDeviceFailure(t *testing.T) {
	opener := &fakeOpener{fail: true}
	e := NewEngine(config.Default(), opener.open)
	e.AssignDocument(song.Demo())
	go e.Run()
	t.Cleanup(func() { e.Shutdown() })
	require.Eventually(t, e.IsRunning, time.Second, time.Millisecond)

	// Playback still sequences without a device.
	e.StartPlayer(PlayFromStart, 0)
	require.Eventually(t, e.IsPlaying, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return e.GetPlayerTicks() > 5 }, time.Second, time.Millisecond)
}

func TestLoadSettingsReopensDevice(t *testing.T) {
	e, opener := startTestEngine(t)
	require.Eventually(t, func() bool { return opener.opens.Load() == 1 }, time.Second, time.Millisecond)

	cfg := config.Default()
	cfg.Sound.BufferLength = 80
	e.LoadSettings(cfg)
	require.Eventually(t, func() bool { return opener.opens.Load() == 2 }, time.Second, time.Millisecond)
}

func TestAssignDocumentFirstWins(t *testing.T) {
	e, _ := startTestEngine(t)
	assert.False(t, e.AssignDocument(song.Demo()))
}

func TestRemoveDocument(t *testing.T) {
	e, _ := startTestEngine(t)
	e.StartPlayer(PlayFromStart, 0)
	require.Eventually(t, e.IsPlaying, time.Second, time.Millisecond)

	require.True(t, e.RemoveDocument())
	assert.False(t, e.IsPlaying())
	// A new document can attach once the old one is gone.
	assert.True(t, e.AssignDocument(song.Demo()))
}

func TestBPMReadout(t *testing.T) {
	e, _ := startTestEngine(t)
	e.StartPlayer(PlayFromStart, 0)
	// Demo: tempo 150, highlight 4, so the readout settles at 150.
	require.Eventually(t, func() bool { return e.GetCurrentBPM() == 150.0 }, time.Second, time.Millisecond)
	assert.Equal(t, 150.0, e.GetAverageBPM())
}

func TestMuteCancelsRecordArming(t *testing.T) {
	e, _ := startTestEngine(t)
	e.SetRecordChannel(song.ChanPulse2)
	require.Equal(t, song.ChanPulse2, e.RecordChannel())

	e.SetChannelMute(song.ChanPulse2, true)
	assert.Equal(t, -1, e.RecordChannel())
	assert.True(t, e.IsChannelMuted(song.ChanPulse2))
}

func TestInstrumentRecording(t *testing.T) {
	e, _ := startTestEngine(t)
	e.SetRecordChannel(song.ChanPulse1)
	e.StartPlayer(PlayFromStart, 0)
	require.Eventually(t, func() bool { return e.GetPlayerTicks() > 10 }, time.Second, time.Millisecond)

	e.StopPlayer()
	require.True(t, e.WaitForStop())
	inst := e.GetRecordInstrument()
	require.NotNil(t, inst)
	assert.NotEmpty(t, inst.Volume)
	assert.Len(t, inst.Arpeggio, len(inst.Volume))
	// The result is handed out exactly once.
	assert.Nil(t, e.GetRecordInstrument())
}

func TestRenderHaltsPlayback(t *testing.T) {
	e, _ := startTestEngine(t)
	e.StartPlayer(PlayFromStart, 0)
	require.Eventually(t, e.IsPlaying, time.Second, time.Millisecond)

	// A render request during playback halts the player first and
	// then proceeds.
	err := e.RenderToFile(filepath.Join(t.TempDir(), "out.wav"), RenderSpec{Ticks: 10})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !e.IsRendering() }, 10*time.Second, time.Millisecond)
	assert.False(t, e.IsPlaying())
}

func TestRenderStopsItsPlayer(t *testing.T) {
	e := NewEngine(config.Default(), nil)
	e.AssignDocument(song.Demo())
	go e.Run()
	t.Cleanup(func() { e.Shutdown() })
	require.Eventually(t, e.IsRunning, time.Second, time.Millisecond)

	require.NoError(t, e.RenderToFile(filepath.Join(t.TempDir(), "out.wav"), RenderSpec{Ticks: 30}))
	require.Eventually(t, e.IsRendering, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !e.IsRendering() }, 10*time.Second, time.Millisecond)
	assert.False(t, e.IsPlaying())
}

func TestChannelReadoutsSurviveDocumentSwap(t *testing.T) {
	e, _ := startTestEngine(t)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			e.GetChannelNote(0)
			e.GetChannelVolume(0)
			e.RecallChannelState(0)
		}
	}()

	for i := 0; i < 5; i++ {
		require.True(t, e.RemoveDocument())
		require.True(t, e.AssignDocument(song.Demo()))
		e.StartPlayer(PlayFromStart, 0)
		require.Eventually(t, e.IsPlaying, time.Second, time.Millisecond)
	}
	close(stop)
	<-done

	// With no document the readouts report silence.
	require.True(t, e.RemoveDocument())
	assert.Equal(t, -1, e.GetChannelNote(0))
	assert.Equal(t, 0, e.GetChannelVolume(0))
}

func TestPreviewSampleOffset(t *testing.T) {
	e, _ := startTestEngine(t)

	data := make([]byte, 129)
	e.PreviewSample(data, 1, 0x0e, false)
	require.Eventually(t, func() bool { return e.GetReg(0x4012) == 1 }, time.Second, time.Millisecond)
	// 129 bytes is 8 length units; one 64-byte page of offset takes 4.
	assert.Equal(t, byte(4), e.GetReg(0x4013))
	assert.Equal(t, byte(0x0e), e.GetReg(0x4010))
}

func TestCommandsDroppedWithoutEngine(t *testing.T) {
	e := NewEngine(config.Default(), nil)
	// More commands than the queue holds must not block when the
	// engine goroutine was never started.
	for i := 0; i < 100; i++ {
		e.SilentAll()
	}
	assert.False(t, e.IsRunning())
}

func TestPlaybackRejectedWhileRendering(t *testing.T) {
	e := NewEngine(config.Default(), nil)
	e.AssignDocument(song.Demo())
	go e.Run()
	t.Cleanup(func() { e.Shutdown() })
	require.Eventually(t, e.IsRunning, time.Second, time.Millisecond)

	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, e.RenderToFile(path, RenderSpec{Loops: 1}))
	require.Eventually(t, e.IsRendering, time.Second, time.Millisecond)

	// The render job drives its own player; a second render is
	// refused while it runs.
	assert.Error(t, e.RenderToFile(path, RenderSpec{Ticks: 10}))
	require.Eventually(t, func() bool { return !e.IsRendering() }, 10*time.Second, time.Millisecond)
}

func renderDemoOnce(t *testing.T, path string) []byte {
	t.Helper()
	e := NewEngine(config.Default(), nil)
	require.True(t, e.AssignDocument(song.Demo()))
	go e.Run()
	require.Eventually(t, e.IsRunning, time.Second, time.Millisecond)

	require.NoError(t, e.RenderToFile(path, RenderSpec{Ticks: 120}))
	require.Eventually(t, e.IsRendering, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !e.IsRendering() }, 10*time.Second, time.Millisecond)
	require.True(t, e.Shutdown())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestRenderIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := renderDemoOnce(t, filepath.Join(dir, "a.wav"))
	second := renderDemoOnce(t, filepath.Join(dir, "b.wav"))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two renders of the same song differ (-first +second):\n%s", diff)
	}
}
