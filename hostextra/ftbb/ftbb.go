// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftbb

import (
	"log"
	"strconv"
	"sync"

	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
)

// USB identifiers of the FT232R.
const (
	VenID uint16 = 0x0403
	DevID uint16 = 0x6001
)

// FTDI vendor requests.
const (
	reqReset      = 0x00
	reqSetBaud    = 0x03
	reqSetBitMode = 0x0B
	reqReadPins   = 0x0C

	modeReset        = 0x00
	modeAsyncBitBang = 0x01

	// Bit-bang output rate is 16x the baud rate on the FT232R; 3MHz/48 gives
	// 62500 baud, about 1µs per byte.
	baudDivisor = 48
)

// handle is the USB transport to one adapter.
type handle interface {
	control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	write(b []byte) (int, error)
	close() error
}

var pinNames = [8]string{"TXD", "RXD", "RTS", "CTS", "DTR", "DSR", "DCD", "RI"}

// Dev is an FT232R in asynchronous bit-bang mode.
//
// All pins start as inputs.
type Dev struct {
	// Immutable after initialization.
	index int
	desc  string
	h     handle

	TXD gpio.PinIO // D0
	RXD gpio.PinIO // D1
	RTS gpio.PinIO // D2
	CTS gpio.PinIO // D3
	DTR gpio.PinIO // D4
	DSR gpio.PinIO // D5
	DCD gpio.PinIO // D6
	RI  gpio.PinIO // D7

	mu sync.Mutex
	// mask has a bit set for each output.
	mask  byte
	value byte
	pins  [8]pin
}

func newDev(index int, desc string, h handle) (*Dev, error) {
	d := &Dev{index: index, desc: desc, h: h}
	for i := range d.pins {
		d.pins[i] = pin{name: "FTBB" + strconv.Itoa(index) + "_" + pinNames[i], bit: i, d: d}
	}
	d.TXD = &d.pins[0]
	d.RXD = &d.pins[1]
	d.RTS = &d.pins[2]
	d.CTS = &d.pins[3]
	d.DTR = &d.pins[4]
	d.DSR = &d.pins[5]
	d.DCD = &d.pins[6]
	d.RI = &d.pins[7]
	if _, err := h.control(0x40, reqReset, 0, 1, nil); err != nil {
		return nil, err
	}
	if _, err := h.control(0x40, reqSetBaud, baudDivisor, 1, nil); err != nil {
		return nil, err
	}
	if err := d.setBitMode(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return "ftbb(" + strconv.Itoa(d.index) + ")"
}

// Desc returns the product string of the USB descriptor.
func (d *Dev) Desc() string {
	return d.desc
}

// Halt implements conn.Resource.
//
// It turns all pins back to inputs and leaves bit-bang mode.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mask = 0
	_, err := d.h.control(0x40, reqSetBitMode, modeReset<<8, 1, nil)
	return err
}

// Header returns the GPIO pins exposed on the chip, D0 to D7.
func (d *Dev) Header() []gpio.PinIO {
	out := make([]gpio.PinIO, len(d.pins))
	for i := range d.pins {
		out[i] = &d.pins[i]
	}
	return out
}

//

// setBitMode applies d.mask. Must be called with mu held.
func (d *Dev) setBitMode() error {
	_, err := d.h.control(0x40, reqSetBitMode, modeAsyncBitBang<<8|uint16(d.mask), 1, nil)
	return err
}

// function describes pin n as Out/<level> or In/<level>.
func (d *Dev) function(n int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mask&(1<<uint(n)) != 0 {
		return "Out/" + gpio.Level(d.value&(1<<uint(n)) != 0).String()
	}
	return "In/" + d.readLocked(n).String()
}

// input turns pin n into an input.
func (d *Dev) input(n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.mask &^ (1 << uint(n))
	if m == d.mask {
		return nil
	}
	d.mask = m
	return d.setBitMode()
}

func (d *Dev) read(n int) gpio.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readLocked(n)
}

// output drives pin n and turns it into an output.
func (d *Dev) output(n int, l gpio.Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := byte(1) << uint(n)
	if l {
		d.value |= b
	} else {
		d.value &^= b
	}
	// Write the value before flipping the direction so the pin does not
	// glitch.
	if _, err := d.h.write([]byte{d.value}); err != nil {
		return err
	}
	if d.mask&b == 0 {
		d.mask |= b
		return d.setBitMode()
	}
	return nil
}

// readLocked samples the pins. Must be called with mu held.
func (d *Dev) readLocked(n int) gpio.Level {
	var b [1]byte
	if _, err := d.h.control(0xC0, reqReadPins, 0, 1, b[:]); err != nil {
		// gpio.PinIn.Read() cannot return an error.
		log.Printf("%s: read pins: %v", d, err)
		return gpio.Low
	}
	return gpio.Level(b[0]&(1<<uint(n)) != 0)
}

var _ conn.Resource = &Dev{}
