package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCapturesRelativeArpeggio(t *testing.T) {
	r := newInstrumentRecorder()
	r.StartRecording(0)
	require.True(t, r.Armed())

	r.RecordTick(-1, 0, 0) // silence before the first note is skipped
	r.RecordTick(52, 15, 2)
	r.RecordTick(55, 13, 2)
	r.RecordTick(52, 12, 1)

	inst := r.StopRecording()
	require.NotNil(t, inst)
	assert.Equal(t, []int{15, 13, 12}, inst.Volume)
	assert.Equal(t, []int{0, 3, 0}, inst.Arpeggio)
	assert.Equal(t, []int{2, 2, 1}, inst.Duty)
	assert.False(t, r.Armed())
}

func TestRecorderEmptyCapture(t *testing.T) {
	r := newInstrumentRecorder()
	r.StartRecording(1)
	r.RecordTick(-1, 0, 0)
	assert.Nil(t, r.StopRecording())
	assert.False(t, r.Armed())
}

func TestRecorderIgnoredWhenDisarmed(t *testing.T) {
	r := newInstrumentRecorder()
	r.RecordTick(52, 15, 0)
	assert.Nil(t, r.StopRecording())
}

func TestRecorderLengthCap(t *testing.T) {
	r := newInstrumentRecorder()
	r.StartRecording(0)
	for i := 0; i < maxRecordTicks+50; i++ {
		r.RecordTick(52, 15, 0)
	}
	inst := r.StopRecording()
	require.NotNil(t, inst)
	assert.Len(t, inst.Volume, maxRecordTicks)
}
