// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftbb

import (
	"errors"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// pin is one data bit of the bit-bang port.
//
// It keeps no state of its own; direction and level live in the Dev so that
// a change on one pin is written along with the other seven.
type pin struct {
	name string
	bit  int
	d    *Dev
}

func (p *pin) String() string {
	return p.name
}

// Halt implements conn.Resource. The pin is left as is.
func (p *pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *pin) Name() string {
	return p.name
}

// Number implements pin.Pin. It is the bit in the D0..D7 port.
func (p *pin) Number() int {
	return p.bit
}

// Function implements pin.Pin.
func (p *pin) Function() string {
	return p.d.function(p.bit)
}

// In implements gpio.PinIn.
//
// The FT232R has a fixed pull up on every pin and no edge detection.
func (p *pin) In(pull gpio.Pull, e gpio.Edge) error {
	if e != gpio.NoEdge {
		return errors.New("ftbb: " + p.name + ": no edge detection in bit-bang mode")
	}
	if pull != gpio.PullUp && pull != gpio.PullNoChange {
		return errors.New("ftbb: " + p.name + ": only the built-in pull up is available")
	}
	return p.d.input(p.bit)
}

// Read implements gpio.PinIn. It costs one USB round trip.
func (p *pin) Read() gpio.Level {
	return p.d.read(p.bit)
}

// WaitForEdge implements gpio.PinIn. It always returns false.
func (p *pin) WaitForEdge(t time.Duration) bool {
	return false
}

// DefaultPull implements gpio.PinIn.
func (p *pin) DefaultPull() gpio.Pull {
	// 200kΩ, DS_FT232R p. 24.
	return gpio.PullUp
}

// Pull implements gpio.PinIn.
func (p *pin) Pull() gpio.Pull {
	return gpio.PullUp
}

// Out implements gpio.PinOut.
func (p *pin) Out(l gpio.Level) error {
	return p.d.output(p.bit, l)
}

// PWM implements gpio.PinOut.
func (p *pin) PWM(d gpio.Duty, f physic.Frequency) error {
	return errors.New("ftbb: " + p.name + ": no PWM in bit-bang mode")
}

var _ gpio.PinIO = &pin{}
