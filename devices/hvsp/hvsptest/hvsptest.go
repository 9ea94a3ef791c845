// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hvsptest simulates an ATtiny25/45/85 in High-Voltage Serial
// Programming mode.
//
// The target exposes its six HVSP lines as gpio.PinIO so it can be handed to
// hvsp.New in place of real pins. It decodes the fuse read and write
// commands, answers reads on SDO and records what happened on the lines.
package hvsptest

import (
	"fmt"
	"sync"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpiotest"
)

// Frame is a frame as latched by the target on the SCI rising edges.
type Frame struct {
	Instr byte
	Data  byte
}

func (f Frame) String() string {
	return fmt.Sprintf("%02X/%02X", f.Instr, f.Data)
}

// Op is the kind of line operation recorded in an Event.
type Op uint8

// Recorded operations.
const (
	Out Op = iota
	In
	Read
)

func (o Op) String() string {
	switch o {
	case Out:
		return "Out"
	case In:
		return "In"
	default:
		return "Read"
	}
}

// Event is one operation done by the host on a line.
type Event struct {
	Line  string
	Op    Op
	Level gpio.Level
}

func (e Event) String() string {
	if e.Op == In {
		return e.Line + ".In"
	}
	return fmt.Sprintf("%s.%s(%s)", e.Line, e.Op, e.Level)
}

// Fuse indexes.
const (
	lfuse = iota
	hfuse
	efuse
)

// pulses per frame: start, 8 data bits, 2 stop bits.
const framePulses = 11

// Target is a simulated HVSP target.
//
// The exported fields are the lines as seen from the host.
type Target struct {
	RST *Line
	SCI *Line
	SDO *Line
	SII *Line
	SDI *Line
	VCC *Line

	// BusyReads is the number of SDO reads returning low after each fuse
	// write, emulating the programming time.
	BusyReads int
	// Absent makes the target ignore the programming mode entry, as if it
	// was not connected or the 12V was missing.
	Absent bool
	// Locked makes the target ignore fuse writes.
	Locked bool

	mu     sync.Mutex
	fuses  [3]byte
	prog   bool
	pulses int
	events []Event
	frames []Frame
	writes int

	// Current frame.
	idx      int
	sii, sdi byte

	// Command state.
	cmd    byte
	out    byte
	loaded bool
	latch  byte
	sel    int
	busy   int
}

// New returns a target with the given fuses.
func New(low, high, ext byte) *Target {
	t := &Target{fuses: [3]byte{low, high, ext}}
	t.RST = t.newLine("RST", 1)
	t.SCI = t.newLine("SCI", 2)
	t.SDO = t.newLine("SDO", 7)
	t.SII = t.newLine("SII", 6)
	t.SDI = t.newLine("SDI", 5)
	t.VCC = t.newLine("VCC", 8)
	return t
}

// Fuses returns the current fuse bytes.
func (t *Target) Fuses() (low, high, ext byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fuses[lfuse], t.fuses[hfuse], t.fuses[efuse]
}

// Programming returns true while the target is in programming mode.
func (t *Target) Programming() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prog
}

// Pulses returns the number of SCI rising edges seen so far.
func (t *Target) Pulses() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pulses
}

// Frames returns the frames completed in programming mode.
func (t *Target) Frames() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Frame(nil), t.frames...)
}

// Writes returns the number of fuse writes committed.
func (t *Target) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// Events returns the line operations, excluding reads.
func (t *Target) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Event
	for _, e := range t.events {
		if e.Op != Read {
			out = append(out, e)
		}
	}
	return out
}

// AllEvents returns all the line operations, including reads.
func (t *Target) AllEvents() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Reset clears the recorded events, frames and pulse count.
func (t *Target) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
	t.frames = nil
	t.pulses = 0
	t.writes = 0
}

//

func (t *Target) newLine(name string, num int) *Line {
	return &Line{Pin: gpiotest.Pin{N: name, Num: num}, t: t}
}

// onOut is called with mu held, after l.L was updated.
func (t *Target) onOut(l *Line, prev gpio.Level) {
	switch l {
	case t.RST:
		if l.L == gpio.Low && prev == gpio.High {
			// 12V applied. SDI, SII and SDO low select serial programming.
			if !t.Absent && t.VCC.L == gpio.High && t.SDI.L == gpio.Low && t.SII.L == gpio.Low && t.SDO.L == gpio.Low {
				t.prog = true
				t.idx = 0
				t.cmd = 0
				t.loaded = false
				t.busy = 0
			}
		} else if l.L == gpio.High {
			t.prog = false
		}
	case t.VCC:
		if l.L == gpio.Low {
			t.prog = false
		}
	case t.SCI:
		if l.L == gpio.High && prev == gpio.Low {
			t.pulses++
			if t.prog {
				t.clock()
			}
		}
	}
}

// clock handles a rising edge on SCI in programming mode.
func (t *Target) clock() {
	if t.idx >= 1 && t.idx <= 8 {
		t.sii = t.sii<<1 | bit(t.SII.L)
		t.sdi = t.sdi<<1 | bit(t.SDI.L)
	}
	t.idx++
	if t.idx == framePulses {
		t.idx = 0
		t.decode(Frame{t.sii, t.sdi})
	}
}

func (t *Target) decode(f Frame) {
	t.frames = append(t.frames, f)
	if t.loaded {
		// The frame shifted the value out.
		t.loaded = false
	}
	if f.Instr == 0x4C {
		t.cmd = f.Data
		return
	}
	switch t.cmd {
	case 0x04:
		switch f.Instr {
		case 0x68:
			t.out, t.loaded = t.fuses[lfuse], true
		case 0x7A:
			t.out, t.loaded = t.fuses[hfuse], true
		case 0x6A:
			t.out, t.loaded = t.fuses[efuse], true
		}
	case 0x40:
		switch f.Instr {
		case 0x2C:
			t.latch = f.Data
		case 0x64:
			t.sel = lfuse
		case 0x74:
			t.sel = hfuse
		case 0x66:
			t.sel = efuse
		case 0x6C, 0x7C, 0x6E:
			if !t.Locked {
				t.fuses[t.sel] = t.latch
			}
			t.writes++
			t.busy = t.BusyReads
		}
	}
}

// sdo returns the level the target drives on SDO. Called with mu held.
func (t *Target) sdo() gpio.Level {
	if !t.prog {
		return gpio.Low
	}
	if t.idx == 0 {
		if t.busy > 0 {
			t.busy--
			return gpio.Low
		}
		return gpio.High
	}
	if t.loaded && t.idx >= 1 && t.idx <= 8 {
		return gpio.Level(t.out&(1<<uint(8-t.idx)) != 0)
	}
	return gpio.Low
}

func bit(l gpio.Level) byte {
	if l == gpio.High {
		return 1
	}
	return 0
}

// Line is one line of the simulated target.
//
// Line implements gpio.PinIO.
type Line struct {
	gpiotest.Pin
	t      *Target
	output bool
}

// In implements gpio.PinIn.
func (l *Line) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return fmt.Errorf("hvsptest: %s: edge detection is not supported", l.N)
	}
	l.t.mu.Lock()
	defer l.t.mu.Unlock()
	l.output = false
	l.t.events = append(l.t.events, Event{Line: l.N, Op: In})
	return nil
}

// Read implements gpio.PinIn.
func (l *Line) Read() gpio.Level {
	l.t.mu.Lock()
	defer l.t.mu.Unlock()
	v := l.L
	if l == l.t.SDO && !l.output {
		v = l.t.sdo()
	}
	l.t.events = append(l.t.events, Event{Line: l.N, Op: Read, Level: v})
	return v
}

// Out implements gpio.PinOut.
func (l *Line) Out(v gpio.Level) error {
	l.t.mu.Lock()
	defer l.t.mu.Unlock()
	prev := l.L
	l.L = v
	l.output = true
	l.t.events = append(l.t.events, Event{Line: l.N, Op: Out, Level: v})
	l.t.onOut(l, prev)
	return nil
}

var _ gpio.PinIO = &Line{}
