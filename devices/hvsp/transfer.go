// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hvsp

import (
	"errors"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// BitOrder selects which bit of a byte is shifted first.
type BitOrder uint8

// Bit orders. HVSP commands are always MSBFirst.
const (
	MSBFirst BitOrder = iota
	LSBFirst
)

func (b BitOrder) String() string {
	if b == LSBFirst {
		return "LSBFirst"
	}
	return "MSBFirst"
}

// Transfer shifts instr out on SII and data on SDI, one bit per SCI pulse,
// and returns the byte sampled on SDO.
//
// A frame is a start bit, 8 data bits and 2 stop bits, 11 clock pulses in
// total. The sampled byte is always assembled MSB first regardless of order.
// It is only meaningful for the last frame of a read command.
//
// The target must be in programming mode, see Enter; otherwise an error is
// returned since SDO would never go high. Transfer blocks until SDO is high,
// for at most Opts.ReadyTimeout if set, or until Halt is called.
func (d *Dev) Transfer(instr, data byte, order BitOrder) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.State(); s != Active {
		return 0, errors.New("hvsp: Transfer needs programming mode, state is " + s.String())
	}
	return d.transfer(instr, data, order)
}

func (d *Dev) transfer(instr, data byte, order BitOrder) (byte, error) {
	if err := d.waitReady(Frame{instr, data}); err != nil {
		return 0, err
	}
	d.frames++

	// Start bit.
	if err := d.out(SDI, gpio.Low); err != nil {
		return 0, err
	}
	if err := d.out(SII, gpio.Low); err != nil {
		return 0, err
	}
	if err := d.pulse(); err != nil {
		return 0, err
	}

	var in byte
	for i := uint(0); i < 8; i++ {
		bit := 7 - i
		if order == LSBFirst {
			bit = i
		}
		if err := d.out(SDI, level(data, bit)); err != nil {
			return 0, err
		}
		if err := d.out(SII, level(instr, bit)); err != nil {
			return 0, err
		}
		in <<= 1
		if d.sdo.Read() == gpio.High {
			in |= 1
		}
		if err := d.pulse(); err != nil {
			return 0, err
		}
	}

	// Stop bits.
	if err := d.out(SDI, gpio.Low); err != nil {
		return 0, err
	}
	if err := d.out(SII, gpio.Low); err != nil {
		return 0, err
	}
	if err := d.pulse(); err != nil {
		return 0, err
	}
	return in, d.pulse()
}

// waitReady spins until SDO reads high. The target holds it low while busy.
func (d *Dev) waitReady(f Frame) error {
	start := time.Now()
	for d.sdo.Read() != gpio.High {
		if d.halted() {
			return ErrHalted
		}
		if d.opts.ReadyTimeout == 0 {
			continue
		}
		if w := time.Since(start); w > d.opts.ReadyTimeout {
			return &TargetNotRespondingError{Frame: f, Waited: w}
		}
	}
	return nil
}

// pulse generates one rising then falling edge on SCI.
func (d *Dev) pulse() error {
	if err := d.out(SCI, gpio.High); err != nil {
		return err
	}
	return d.out(SCI, gpio.Low)
}

func level(b byte, bit uint) gpio.Level {
	return gpio.Level(b&(1<<bit) != 0)
}
