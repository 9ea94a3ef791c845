// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hvsp

import (
	"errors"

	"periph.io/x/periph/conn/gpio"
)

// Report describes what a Program call did.
type Report struct {
	Policy Policy
	// HighFuse is the high fuse targeted by Policy.
	HighFuse FuseValue
	// LowFuse is the low fuse written.
	LowFuse FuseValue
	// Before is read right after entering programming mode.
	Before Fuses
	// After is read back once the writes are done. Only valid when ReadBack
	// is true.
	After Fuses
	// ReadBack is true when After was read.
	ReadBack bool
	// HighSkipped is true when Before.High already matched HighFuse.
	HighSkipped bool
	// Frames is the number of frames issued during the session.
	Frames int
}

// Program runs one programming session.
//
// It enters programming mode, reads the fuses, writes the high fuse if it
// differs from the one derived from p, always writes Opts.LowFuse, reads the
// fuses back and exits programming mode.
//
// The exit sequence runs even if a step failed. The report is returned in
// all cases, partially filled on error.
func (d *Dev) Program(p Policy) (*Report, error) {
	if p != EnableReset && p != DisableReset {
		return nil, errors.New("hvsp: invalid policy " + p.String())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	r := &Report{Policy: p, HighFuse: HighFuseFor(p, d.opts.HighFuse), LowFuse: d.opts.LowFuse}
	err := d.session(func() error {
		var err error
		if r.Before, err = d.readFuses(); err != nil {
			return err
		}
		d.setState(Writing)
		if r.Before.High == r.HighFuse {
			r.HighSkipped = true
		} else if err = d.writeFuse(WriteHighFuse, HighFuse, r.HighFuse); err != nil {
			return err
		}
		if err = d.writeFuse(WriteLowFuse, LowFuse, r.LowFuse); err != nil {
			return err
		}
		d.setState(Active)
		if r.After, err = d.readFuses(); err != nil {
			return err
		}
		r.ReadBack = true
		return nil
	})
	r.Frames = d.frames
	if err != nil {
		return r, err
	}
	if d.opts.Verify {
		if r.After.High != r.HighFuse {
			return r, &FuseWriteVerificationError{Fuse: HighFuse, Expected: r.HighFuse, Actual: r.After.High}
		}
		if r.After.Low != r.LowFuse {
			return r, &FuseWriteVerificationError{Fuse: LowFuse, Expected: r.LowFuse, Actual: r.After.Low}
		}
	}
	return r, nil
}

// ReadFuses runs a read-only session and returns the three fuse bytes.
func (d *Dev) ReadFuses() (Fuses, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var f Fuses
	err := d.session(func() error {
		var err error
		f, err = d.readFuses()
		return err
	})
	return f, err
}

//

// session wraps fn between the entry and exit sequences.
//
// Must be called with mu held.
func (d *Dev) session(fn func() error) error {
	d.frames = 0
	d.setState(Idle)
	err := d.enter()
	if err == nil {
		err = fn()
	}
	d.setState(Exiting)
	if err2 := d.exit(); err == nil {
		err = err2
	}
	return err
}

// enter puts the target in HVSP mode.
//
// SDI, SII and SDO must be low when 12V is applied; this is what selects
// serial programming.
func (d *Dev) enter() error {
	d.setState(Entering)
	d.logf("Entering programming Mode")
	for _, r := range []Role{SDI, SII, SDO} {
		if err := d.out(r, gpio.Low); err != nil {
			return err
		}
	}
	if err := d.out(RST, gpio.High); err != nil {
		return err
	}
	if err := d.out(VCC, gpio.High); err != nil {
		return err
	}
	d.sleep(d.opts.PowerSettle)
	// Inverted by the level shifter: this turns the 12V on.
	if err := d.out(RST, gpio.Low); err != nil {
		return err
	}
	d.sleep(d.opts.ResetSettle)
	if err := d.sdo.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return &lineError{role: SDO, op: "in", err: err}
	}
	d.sleep(d.opts.ProgEnable)
	d.setState(Active)
	return nil
}

// exit powers the target down and turns the 12V off.
func (d *Dev) exit() error {
	err := d.out(SCI, gpio.Low)
	if err2 := d.out(VCC, gpio.Low); err == nil {
		err = err2
	}
	if err2 := d.out(RST, gpio.High); err == nil {
		err = err2
	}
	return err
}

func (d *Dev) readFuses() (Fuses, error) {
	d.logf("Reading fuses")
	var f Fuses
	for _, fuse := range []Fuse{LowFuse, HighFuse, ExtendedFuse} {
		v, err := d.run(readCommand(fuse), 0)
		if err != nil {
			return f, err
		}
		f.set(fuse, FuseValue(v))
		d.logf("%s reads as %s", fuse, FuseValue(v))
	}
	return f, nil
}

func (d *Dev) writeFuse(id CommandID, fuse Fuse, v FuseValue) error {
	d.sleep(d.opts.WriteSettle)
	d.logf("Writing %s as %s", fuse, v)
	_, err := d.run(id, byte(v))
	return err
}

// run issues the frames of a command and returns the byte sampled during
// the last one.
func (d *Dev) run(id CommandID, payload byte) (byte, error) {
	c := id.Command()
	var in byte
	for i, f := range c.Frames {
		if i == c.Payload {
			f.Data = payload
		}
		var err error
		if in, err = d.transfer(f.Instr, f.Data, MSBFirst); err != nil {
			return 0, err
		}
	}
	return in, nil
}
