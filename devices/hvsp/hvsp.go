// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hvsp

import (
	"errors"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
)

// Role is the function of a line in the HVSP interface.
type Role uint8

// Line roles.
const (
	// RST drives the inverting level shifter feeding 12V to RESET.
	RST Role = iota
	// SCI is the serial clock, generated by the host.
	SCI
	// SDO is the target's serial data output, sampled by the host.
	SDO
	// SII is the serial instruction input of the target.
	SII
	// SDI is the serial data input of the target.
	SDI
	// VCC powers the target.
	VCC
	numRoles
)

var roleNames = [...]string{"RST", "SCI", "SDO", "SII", "SDI", "VCC"}

func (r Role) String() string {
	if r < numRoles {
		return roleNames[r]
	}
	return "Role(" + strconv.Itoa(int(r)) + ")"
}

// Pins binds each role to a host line.
//
// Each role must use a different line.
type Pins struct {
	RST gpio.PinOut
	SCI gpio.PinOut
	// SDO is driven low while entering programming mode, then released as an
	// input.
	SDO gpio.PinIO
	SII gpio.PinOut
	SDI gpio.PinOut
	VCC gpio.PinOut
}

// Opts holds the configuration of a Dev.
//
// The delays are minimums; the host may wait longer.
type Opts struct {
	// HighFuse is the base high fuse. RSTDISBL is set or cleared on it
	// according to the Policy passed to Program.
	HighFuse FuseValue
	// LowFuse is written on every Program call.
	LowFuse FuseValue

	// PowerSettle is the wait after VCC is applied, before 12V.
	PowerSettle time.Duration
	// ResetSettle is the wait after 12V is applied, before SDO is released.
	ResetSettle time.Duration
	// ProgEnable is the wait for the target to enter programming mode.
	ProgEnable time.Duration
	// WriteSettle is the wait before each fuse write sequence.
	WriteSettle time.Duration

	// ReadyTimeout bounds the wait for SDO to go high before each frame. 0
	// means wait forever.
	ReadyTimeout time.Duration

	// Verify compares the fuses read after programming with the values
	// written.
	Verify bool

	// Logf receives the status lines of a session. It may be nil.
	Logf func(format string, v ...interface{})
	// Sleep replaces time.Sleep when set.
	Sleep func(d time.Duration)
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	HighFuse:    DefaultHighFuse,
	LowFuse:     DefaultLowFuse,
	PowerSettle: 20 * time.Microsecond,
	ResetSettle: 10 * time.Microsecond,
	ProgEnable:  300 * time.Microsecond,
	WriteSettle: time.Second,
}

// State is the progress of a programming session.
type State int32

// Session states.
const (
	Idle State = iota
	Entering
	Active
	Writing
	Exiting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Entering:
		return "Entering"
	case Active:
		return "Active"
	case Writing:
		return "Writing"
	case Exiting:
		return "Exiting"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// New returns a Dev talking HVSP over the pins.
//
// All lines are driven as outputs, RST high so the 12V stays off, the others
// low.
func New(p Pins, opts *Opts) (*Dev, error) {
	if opts.PowerSettle < 0 || opts.ResetSettle < 0 || opts.ProgEnable < 0 || opts.WriteSettle < 0 || opts.ReadyTimeout < 0 {
		return nil, errors.New("hvsp: durations must not be negative")
	}
	d := &Dev{opts: *opts, sdo: p.SDO}
	d.lines = [numRoles]gpio.PinOut{RST: p.RST, SCI: p.SCI, SII: p.SII, SDI: p.SDI, VCC: p.VCC}
	if p.SDO != nil {
		d.lines[SDO] = p.SDO
	}
	seen := map[string]Role{}
	for r, l := range d.lines {
		if isNil(l) {
			return nil, errors.New("hvsp: line " + Role(r).String() + " is not set")
		}
		if prev, ok := seen[l.Name()]; ok {
			return nil, errors.New("hvsp: " + prev.String() + " and " + Role(r).String() + " share line " + l.Name())
		}
		seen[l.Name()] = Role(r)
	}
	if d.opts.Sleep == nil {
		d.opts.Sleep = time.Sleep
	}
	for _, r := range []Role{SCI, SDO, SII, SDI, VCC} {
		if err := d.out(r, gpio.Low); err != nil {
			return nil, err
		}
	}
	if err := d.out(RST, gpio.High); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is a handle to an HVSP target.
//
// Only one session runs at a time; concurrent calls are serialized.
type Dev struct {
	opts  Opts
	state int32
	// halt is set by Halt to abort a wait for the target.
	halt int32

	mu     sync.Mutex
	lines  [numRoles]gpio.PinOut
	sdo    gpio.PinIO
	frames int
}

func (d *Dev) String() string {
	return "hvsp{" + d.lines[SCI].Name() + "}"
}

// Halt implements conn.Resource.
//
// It powers the target down and turns the 12V off. It is safe to call from
// another goroutine while a session is running: a session waiting for the
// target aborts with ErrHalted, runs its exit sequence, and Halt then returns.
func (d *Dev) Halt() error {
	atomic.StoreInt32(&d.halt, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	defer atomic.StoreInt32(&d.halt, 0)
	return d.exit()
}

// Enter puts the target in programming mode for use with Transfer.
//
// Exit or Halt must be called once done. Program and ReadFuses do both
// already and must not be called in between.
func (d *Dev) Enter() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = 0
	d.setState(Idle)
	if err := d.enter(); err != nil {
		d.setState(Exiting)
		_ = d.exit()
		return err
	}
	return nil
}

// Exit leaves programming mode: SCI low, VCC low, then RST high.
func (d *Dev) Exit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setState(Exiting)
	return d.exit()
}

// State returns the state of the current session, or of the last one.
//
// It is Idle before the first session and Exiting after a completed one.
func (d *Dev) State() State {
	return State(atomic.LoadInt32(&d.state))
}

//

func (d *Dev) setState(s State) {
	atomic.StoreInt32(&d.state, int32(s))
}

func (d *Dev) out(r Role, l gpio.Level) error {
	if err := d.lines[r].Out(l); err != nil {
		return &lineError{role: r, op: "out", err: err}
	}
	return nil
}

func (d *Dev) halted() bool {
	return atomic.LoadInt32(&d.halt) != 0
}

func (d *Dev) sleep(t time.Duration) {
	if t > 0 {
		d.opts.Sleep(t)
	}
}

func (d *Dev) logf(format string, v ...interface{}) {
	if d.opts.Logf != nil {
		d.opts.Logf(format, v...)
	}
}

// isNil also catches a nil pointer stored in the interface.
func isNil(l gpio.PinOut) bool {
	if l == nil {
		return true
	}
	switch v := reflect.ValueOf(l); v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

var _ conn.Resource = &Dev{}
