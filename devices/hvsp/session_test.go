// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hvsp

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"periph.io/x/fuserescue/devices/hvsp/hvsptest"
)

var readAll = []hvsptest.Frame{
	{Instr: 0x4C, Data: 0x04}, {Instr: 0x68}, {Instr: 0x6C},
	{Instr: 0x4C, Data: 0x04}, {Instr: 0x7A}, {Instr: 0x7E},
	{Instr: 0x4C, Data: 0x04}, {Instr: 0x6A}, {Instr: 0x6E},
}

func TestProgram_enableAlreadySet(t *testing.T) {
	tgt := hvsptest.New(0x6A, 0xDF, 0xFF)
	d := newDev(t, tgt, nil)
	r, err := d.Program(EnableReset)
	if err != nil {
		t.Fatal(err)
	}
	if !r.HighSkipped || r.HighFuse != 0xDF || r.LowFuse != 0x62 {
		t.Fatalf("%#v", r)
	}
	want := concat(readAll, writeFrames(0x62, 0x64, 0x6C), readAll)
	if f := tgt.Frames(); !reflect.DeepEqual(f, want) {
		t.Fatalf("frames\n got %v\nwant %v", f, want)
	}
	if r.Frames != 22 || !r.ReadBack {
		t.Fatalf("Frames = %d, ReadBack = %t", r.Frames, r.ReadBack)
	}
	if tgt.Writes() != 1 {
		t.Fatalf("Writes() = %d", tgt.Writes())
	}
	if r.Before != (Fuses{0x6A, 0xDF, 0xFF}) || r.After != (Fuses{0x62, 0xDF, 0xFF}) {
		t.Fatalf("before %s after %s", r.Before, r.After)
	}
	if d.State() != Exiting {
		t.Fatalf("State() = %s", d.State())
	}
	if tgt.Programming() {
		t.Fatal("target still in programming mode")
	}
}

func TestProgram_disable(t *testing.T) {
	tgt := hvsptest.New(0x62, 0xDF, 0xFF)
	d := newDev(t, tgt, nil)
	r, err := d.Program(DisableReset)
	if err != nil {
		t.Fatal(err)
	}
	if r.HighSkipped || r.HighFuse != 0x5F {
		t.Fatalf("%#v", r)
	}
	want := concat(readAll, writeFrames(0x5F, 0x74, 0x7C), writeFrames(0x62, 0x64, 0x6C), readAll)
	if f := tgt.Frames(); !reflect.DeepEqual(f, want) {
		t.Fatalf("frames\n got %v\nwant %v", f, want)
	}
	if r.Frames != 26 || tgt.Pulses() != 26*11 {
		t.Fatalf("Frames = %d, pulses = %d", r.Frames, tgt.Pulses())
	}
	if _, high, _ := tgt.Fuses(); high != 0x5F {
		t.Fatalf("hfuse = %#02x", high)
	}
	if r.After.High != 0x5F {
		t.Fatalf("After = %s", r.After)
	}
}

func TestProgram_enableFromDisabled(t *testing.T) {
	tgt := hvsptest.New(0x62, 0x5F, 0xFF)
	d := newDev(t, tgt, nil)
	r, err := d.Program(EnableReset)
	if err != nil {
		t.Fatal(err)
	}
	if r.HighSkipped {
		t.Fatal("hfuse must be written")
	}
	if _, high, _ := tgt.Fuses(); high != 0xDF {
		t.Fatalf("hfuse = %#02x", high)
	}
}

func TestProgram_lowAlwaysWritten(t *testing.T) {
	for _, low := range []byte{0x62, 0xE2, 0x00} {
		tgt := hvsptest.New(low, 0xDF, 0xFF)
		d := newDev(t, tgt, nil)
		r, err := d.Program(EnableReset)
		if err != nil {
			t.Fatal(err)
		}
		if tgt.Writes() != 1 {
			t.Fatalf("lfuse %#02x: %d writes", low, tgt.Writes())
		}
		if r.After.Low != 0x62 {
			t.Fatalf("lfuse %#02x: after = %s", low, r.After)
		}
	}
}

func TestProgram_customFuses(t *testing.T) {
	tgt := hvsptest.New(0x62, 0xDF, 0xFF)
	d := newDev(t, tgt, func(o *Opts) {
		o.HighFuse = 0xD7
		o.LowFuse = 0xE2
	})
	r, err := d.Program(DisableReset)
	if err != nil {
		t.Fatal(err)
	}
	if low, high, _ := tgt.Fuses(); low != 0xE2 || high != 0x57 {
		t.Fatalf("fuses = %#02x %#02x", low, high)
	}
	if r.HighFuse != 0x57 {
		t.Fatalf("HighFuse = %s", r.HighFuse)
	}
}

func TestProgram_sequence(t *testing.T) {
	tgt := hvsptest.New(0x62, 0xDF, 0xFF)
	var sleeps []time.Duration
	var lines []string
	d := newDev(t, tgt, func(o *Opts) {
		o.Sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
		o.Logf = func(format string, v ...interface{}) { lines = append(lines, fmt.Sprintf(format, v...)) }
	})
	if _, err := d.Program(DisableReset); err != nil {
		t.Fatal(err)
	}
	e := tgt.Events()
	checkEvents(t, e[:7], []string{
		"SDI.Out(Low)", "SII.Out(Low)", "SDO.Out(Low)",
		"RST.Out(High)", "VCC.Out(High)", "RST.Out(Low)", "SDO.In",
	})
	checkEvents(t, e[len(e)-3:], []string{"SCI.Out(Low)", "VCC.Out(Low)", "RST.Out(High)"})

	wantSleeps := []time.Duration{20 * time.Microsecond, 10 * time.Microsecond, 300 * time.Microsecond, time.Second, time.Second}
	if !reflect.DeepEqual(sleeps, wantSleeps) {
		t.Fatalf("sleeps = %v", sleeps)
	}
	wantLines := []string{
		"Entering programming Mode",
		"Reading fuses",
		"lfuse reads as 62",
		"hfuse reads as DF",
		"efuse reads as FF",
		"Writing hfuse as 5F",
		"Writing lfuse as 62",
		"Reading fuses",
		"lfuse reads as 62",
		"hfuse reads as 5F",
		"efuse reads as FF",
	}
	if !reflect.DeepEqual(lines, wantLines) {
		t.Fatalf("lines\n got %q\nwant %q", lines, wantLines)
	}
}

func TestProgram_verify(t *testing.T) {
	tgt := hvsptest.New(0x62, 0xDF, 0xFF)
	tgt.Locked = true
	d := newDev(t, tgt, func(o *Opts) { o.Verify = true })
	r, err := d.Program(DisableReset)
	var e *FuseWriteVerificationError
	if !errors.As(err, &e) {
		t.Fatalf("Program() = %v", err)
	}
	if e.Fuse != HighFuse || e.Expected != 0x5F || e.Actual != 0xDF {
		t.Fatalf("%#v", e)
	}
	if r == nil || r.After.High != 0xDF {
		t.Fatalf("report %#v", r)
	}

	// Without Verify the read back is only reported.
	tgt = hvsptest.New(0x62, 0xDF, 0xFF)
	tgt.Locked = true
	d = newDev(t, tgt, nil)
	if _, err := d.Program(DisableReset); err != nil {
		t.Fatal(err)
	}
}

func TestProgram_verifyLow(t *testing.T) {
	tgt := hvsptest.New(0xE2, 0xDF, 0xFF)
	tgt.Locked = true
	d := newDev(t, tgt, func(o *Opts) { o.Verify = true })
	_, err := d.Program(EnableReset)
	var e *FuseWriteVerificationError
	if !errors.As(err, &e) || e.Fuse != LowFuse || e.Expected != 0x62 || e.Actual != 0xE2 {
		t.Fatalf("Program() = %v", err)
	}
}

func TestProgram_notResponding(t *testing.T) {
	tgt := hvsptest.New(0x62, 0xDF, 0xFF)
	tgt.Absent = true
	d := newDev(t, tgt, func(o *Opts) { o.ReadyTimeout = time.Millisecond })
	r, err := d.Program(EnableReset)
	var e *TargetNotRespondingError
	if !errors.As(err, &e) {
		t.Fatalf("Program() = %v", err)
	}
	if r.Frames != 0 || r.ReadBack {
		t.Fatalf("Frames = %d, ReadBack = %t", r.Frames, r.ReadBack)
	}
	e2 := tgt.Events()
	checkEvents(t, e2[len(e2)-3:], []string{"SCI.Out(Low)", "VCC.Out(Low)", "RST.Out(High)"})
	if d.State() != Exiting {
		t.Fatalf("State() = %s", d.State())
	}
}

func TestProgram_invalidPolicy(t *testing.T) {
	d := newDev(t, hvsptest.New(0x62, 0xDF, 0xFF), nil)
	if _, err := d.Program(Policy(7)); err == nil {
		t.Fatal("expected error")
	}
	if d.State() != Idle {
		t.Fatalf("State() = %s", d.State())
	}
}

func TestProgram_twice(t *testing.T) {
	tgt := hvsptest.New(0x62, 0xDF, 0xFF)
	d := newDev(t, tgt, nil)
	if _, err := d.Program(DisableReset); err != nil {
		t.Fatal(err)
	}
	r, err := d.Program(DisableReset)
	if err != nil {
		t.Fatal(err)
	}
	if !r.HighSkipped || r.Frames != 22 {
		t.Fatalf("%#v", r)
	}
}

func TestReadFuses(t *testing.T) {
	tgt := hvsptest.New(0x62, 0x5F, 0xFE)
	d := newDev(t, tgt, nil)
	f, err := d.ReadFuses()
	if err != nil {
		t.Fatal(err)
	}
	if f != (Fuses{0x62, 0x5F, 0xFE}) {
		t.Fatalf("ReadFuses() = %s", f)
	}
	if got := tgt.Frames(); !reflect.DeepEqual(got, readAll) {
		t.Fatalf("frames = %v", got)
	}
	if tgt.Writes() != 0 {
		t.Fatal("ReadFuses must not write")
	}
	if d.State() != Exiting {
		t.Fatalf("State() = %s", d.State())
	}
}

//

func writeFrames(v, sel, commit byte) []hvsptest.Frame {
	return []hvsptest.Frame{{Instr: 0x4C, Data: 0x40}, {Instr: 0x2C, Data: v}, {Instr: sel}, {Instr: commit}}
}

func concat(f ...[]hvsptest.Frame) []hvsptest.Frame {
	var out []hvsptest.Frame
	for _, l := range f {
		out = append(out, l...)
	}
	return out
}
