package song

// note builds a row event triggering a note. oct*12+semi, C-0 based.
func note(semi, oct, inst, vol int) RowEvent {
	return RowEvent{Kind: KindNote, Note: oct*12 + semi, Instrument: inst, Volume: vol}
}

func halt() RowEvent {
	return RowEvent{Kind: KindHalt, Instrument: -1, Volume: -1}
}

// Semitone names, C-0 based.
const (
	c = iota
	cs
	d
	ds
	e
	f
	fs
	g
	gs
	a
	as
	b
)

// Demo returns a small built-in module used by the command-line
// front end and by the integration tests: a four-bar lead over a
// triangle bass line with a noise backbeat.
func Demo() *Module {
	lead := &Instrument{
		Name:   "lead",
		Volume: []int{15, 13, 12, 11, 10, 10, 9, 9, 8},
		Duty:   []int{2},
	}
	bass := &Instrument{
		Name:   "bass",
		Volume: []int{15},
	}
	drum := &Instrument{
		Name:   "drum",
		Volume: []int{12, 8, 4, 2, 0},
	}

	rows := 16
	pat := func(events map[int]RowEvent) Pattern {
		p := make(Pattern, rows)
		for i := range p {
			p[i] = EmptyRow()
		}
		for r, ev := range events {
			p[r] = ev
		}
		return p
	}

	t := &Track{
		Name:      "demo",
		Rows:      rows,
		Speed:     6,
		Tempo:     150,
		Highlight: 4,
		Frames: [][NumChannels]int{
			{0, 0, 0, 0, 0},
			{1, 0, 1, 0, 0},
		},
	}

	t.Patterns[ChanPulse1] = []Pattern{
		pat(map[int]RowEvent{
			0:  note(e, 4, 0, 15),
			4:  note(g, 4, 0, 14),
			8:  note(b, 4, 0, 13),
			12: note(g, 4, 0, 12),
		}),
		pat(map[int]RowEvent{
			0:  note(c, 5, 0, 15),
			4:  note(b, 4, 0, 13),
			8:  note(a, 4, 0, 12),
			12: halt(),
		}),
	}
	t.Patterns[ChanPulse2] = []Pattern{
		pat(map[int]RowEvent{
			0: {Kind: KindNote, Note: 4*12 + e, Instrument: 0, Volume: 10, Effect: EffArpeggio, Param: 0x37},
			8: {Kind: KindNote, Note: 4*12 + g, Instrument: 0, Volume: 10, Effect: EffVibrato, Param: 0x46},
		}),
	}
	t.Patterns[ChanTriangle] = []Pattern{
		pat(map[int]RowEvent{
			0:  note(e, 2, 1, 15),
			8:  note(g, 2, 1, 15),
			12: note(a, 2, 1, 15),
		}),
		pat(map[int]RowEvent{
			0: note(c, 2, 1, 15),
			8: note(g, 2, 1, 15),
		}),
	}
	t.Patterns[ChanNoise] = []Pattern{
		pat(map[int]RowEvent{
			0:  note(10, 0, 2, 12),
			4:  note(7, 0, 2, 10),
			8:  note(10, 0, 2, 12),
			12: note(7, 0, 2, 10),
		}),
	}
	t.Patterns[ChanDPCM] = []Pattern{
		pat(nil),
	}

	m := &Module{
		Machine:     NTSC,
		Tracks:      []*Track{t},
		Instruments: []*Instrument{lead, bass, drum},
	}
	m.SetFileLoaded(true)
	return m
}
