package sound

import (
	"fmt"

	"github.com/mkazune/famisound/song"
)

// channelState is the sustained state of one channel at a song
// position: the most recent note, instrument and volume at or before
// that position. -1 marks columns that never appeared.
type channelState struct {
	Note       int
	Instrument int
	Volume     int
	Duty       int
}

// SongState captures all channel states at a position, used to
// restore the driver when playback starts mid-song and to display
// channel state in the UI.
type SongState struct {
	Channels [song.NumChannels]channelState
}

// Retrieve scans the track backwards from (frame, row) and fills in
// the latest note, instrument and volume seen by each channel.
func (s *SongState) Retrieve(doc song.Document, track, frame, row int) {
	for ch := range s.Channels {
		s.Channels[ch] = channelState{Note: -1, Instrument: -1, Volume: -1, Duty: -1}
	}
	t := doc.Track(track)
	if t == nil {
		return
	}
	missing := song.NumChannels * 3
	for f := frame; f >= 0 && missing > 0; f-- {
		r := t.Rows - 1
		if f == frame {
			r = row
		}
		for ; r >= 0 && missing > 0; r-- {
			for ch := 0; ch < song.NumChannels; ch++ {
				cs := &s.Channels[ch]
				ev := doc.ActiveNote(track, f, ch, r)
				if cs.Note < 0 && ev.Kind == song.KindNote {
					cs.Note = ev.Note
					missing--
				}
				if cs.Instrument < 0 && ev.Instrument >= 0 {
					cs.Instrument = ev.Instrument
					missing--
				}
				if cs.Volume < 0 && ev.Volume >= 0 {
					cs.Volume = ev.Volume
					missing--
				}
			}
		}
	}
}

var noteNames = [12]string{
	"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-",
}

// NoteName formats a semitone index as a tracker-style note string.
func NoteName(note int) string {
	if note < 0 {
		return "..."
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12)
}

// ChannelStateString formats one channel's state for display.
func (s *SongState) ChannelStateString(channel int) string {
	if channel < 0 || channel >= song.NumChannels {
		return ""
	}
	cs := s.Channels[channel]
	inst := ".."
	if cs.Instrument >= 0 {
		inst = fmt.Sprintf("%02X", cs.Instrument)
	}
	vol := "."
	if cs.Volume >= 0 {
		vol = fmt.Sprintf("%X", cs.Volume)
	}
	return fmt.Sprintf("%s %s %s", NoteName(cs.Note), inst, vol)
}
