// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hvsp

import (
	"fmt"
	"strconv"
)

// Defaults for ATtiny25/45/85.
const (
	// DefaultHighFuse is the factory high fuse. RSTDISBL is unprogrammed so
	// pin 1 acts as RESET.
	DefaultHighFuse FuseValue = 0xDF
	// DefaultLowFuse is the factory low fuse: 8MHz internal RC divided by 8.
	DefaultLowFuse FuseValue = 0x62
)

// RSTDISBL is the high fuse bit that, when programmed (0), turns the RESET
// pin into a weak GPIO.
const RSTDISBL FuseValue = 1 << 7

// FuseValue is the content of one fuse byte.
//
// A programmed bit reads as 0.
type FuseValue uint8

func (f FuseValue) String() string {
	return fmt.Sprintf("%02X", uint8(f))
}

// Fuse identifies one of the fuse bytes.
type Fuse uint8

// Fuse bytes, in the order they are read.
const (
	LowFuse Fuse = iota
	HighFuse
	ExtendedFuse
)

func (f Fuse) String() string {
	switch f {
	case LowFuse:
		return "lfuse"
	case HighFuse:
		return "hfuse"
	case ExtendedFuse:
		return "efuse"
	default:
		return "Fuse(" + strconv.Itoa(int(f)) + ")"
	}
}

// Fuses is a snapshot of the three fuse bytes.
type Fuses struct {
	Low      FuseValue
	High     FuseValue
	Extended FuseValue
}

// Get returns the value of one fuse byte.
func (f *Fuses) Get(fuse Fuse) FuseValue {
	switch fuse {
	case HighFuse:
		return f.High
	case ExtendedFuse:
		return f.Extended
	default:
		return f.Low
	}
}

func (f *Fuses) set(fuse Fuse, v FuseValue) {
	switch fuse {
	case HighFuse:
		f.High = v
	case ExtendedFuse:
		f.Extended = v
	default:
		f.Low = v
	}
}

func (f Fuses) String() string {
	return "lfuse=" + f.Low.String() + " hfuse=" + f.High.String() + " efuse=" + f.Extended.String()
}

// Policy is what the operator wants the RESET pin to be.
type Policy uint8

// Valid policies.
const (
	// EnableReset restores pin 1 as RESET, which makes ISP possible again.
	EnableReset Policy = iota + 1
	// DisableReset turns pin 1 into a (weak) GPIO pin.
	DisableReset
)

func (p Policy) String() string {
	switch p {
	case EnableReset:
		return "enable-reset"
	case DisableReset:
		return "disable-reset"
	default:
		return "Policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// HighFuseFor returns base with RSTDISBL set or cleared according to p.
//
// An unknown policy is treated as EnableReset, which is the safe choice.
func HighFuseFor(p Policy, base FuseValue) FuseValue {
	if p == DisableReset {
		return base &^ RSTDISBL
	}
	return base | RSTDISBL
}

// PolicyToHighFuse returns the high fuse to program for p, based on
// DefaultHighFuse.
//
// It is 0xDF for EnableReset and 0x5F for DisableReset.
func PolicyToHighFuse(p Policy) FuseValue {
	return HighFuseFor(p, DefaultHighFuse)
}

// Frame is one serial exchange: Instr is shifted on SII and Data on SDI.
type Frame struct {
	Instr byte
	Data  byte
}

func (f Frame) String() string {
	return fmt.Sprintf("%02X/%02X", f.Instr, f.Data)
}

// CommandID names a fuse command sequence.
type CommandID uint8

// Known HVSP fuse commands.
const (
	ReadLowFuse CommandID = iota
	ReadHighFuse
	ReadExtFuse
	WriteHighFuse
	WriteLowFuse
)

// Command is a fixed sequence of frames.
type Command struct {
	Name   string
	Frames []Frame
	// Payload is the index of the frame whose Data carries the fuse value to
	// write, or -1 for read commands.
	Payload int
}

// Command returns the frame sequence for the command.
//
// The returned value is a copy.
func (c CommandID) Command() Command {
	if int(c) >= len(commands) {
		return Command{Name: "CommandID(" + strconv.Itoa(int(c)) + ")", Payload: -1}
	}
	cmd := commands[c]
	cmd.Frames = append([]Frame(nil), cmd.Frames...)
	return cmd
}

func (c CommandID) String() string {
	return c.Command().Name
}

// readCommand returns the read command for the fuse byte.
func readCommand(f Fuse) CommandID {
	switch f {
	case HighFuse:
		return ReadHighFuse
	case ExtendedFuse:
		return ReadExtFuse
	default:
		return ReadLowFuse
	}
}

// commands is the HVSP instruction table from the datasheet, table 20-16.
//
// The result of a read command is sampled on SDO during its last frame.
var commands = [...]Command{
	ReadLowFuse: {
		Name:    "read lfuse",
		Frames:  []Frame{{0x4C, 0x04}, {0x68, 0x00}, {0x6C, 0x00}},
		Payload: -1,
	},
	ReadHighFuse: {
		Name:    "read hfuse",
		Frames:  []Frame{{0x4C, 0x04}, {0x7A, 0x00}, {0x7E, 0x00}},
		Payload: -1,
	},
	ReadExtFuse: {
		Name:    "read efuse",
		Frames:  []Frame{{0x4C, 0x04}, {0x6A, 0x00}, {0x6E, 0x00}},
		Payload: -1,
	},
	WriteHighFuse: {
		Name:    "write hfuse",
		Frames:  []Frame{{0x4C, 0x40}, {0x2C, 0x00}, {0x74, 0x00}, {0x7C, 0x00}},
		Payload: 1,
	},
	WriteLowFuse: {
		Name:    "write lfuse",
		Frames:  []Frame{{0x4C, 0x40}, {0x2C, 0x00}, {0x64, 0x00}, {0x6C, 0x00}},
		Payload: 1,
	},
}
