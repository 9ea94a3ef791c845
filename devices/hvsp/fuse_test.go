// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hvsp

import "testing"

func TestPolicyToHighFuse(t *testing.T) {
	if v := PolicyToHighFuse(EnableReset); v != 0xDF {
		t.Fatalf("EnableReset: %s", v)
	}
	if v := PolicyToHighFuse(DisableReset); v != 0x5F {
		t.Fatalf("DisableReset: %s", v)
	}
}

func TestHighFuseFor(t *testing.T) {
	data := []struct {
		p    Policy
		base FuseValue
		want FuseValue
	}{
		{EnableReset, 0xDF, 0xDF},
		{EnableReset, 0x5F, 0xDF},
		{DisableReset, 0xDF, 0x5F},
		{DisableReset, 0x5F, 0x5F},
		{EnableReset, 0x57, 0xD7},
		{DisableReset, 0xD7, 0x57},
		{Policy(0), 0x5F, 0xDF},
	}
	for i, line := range data {
		if v := HighFuseFor(line.p, line.base); v != line.want {
			t.Fatalf("#%d: HighFuseFor(%s, %s) = %s, want %s", i, line.p, line.base, v, line.want)
		}
	}
}

func TestCommands(t *testing.T) {
	data := []struct {
		id      CommandID
		frames  []Frame
		payload int
	}{
		{ReadLowFuse, []Frame{{0x4C, 0x04}, {0x68, 0x00}, {0x6C, 0x00}}, -1},
		{ReadHighFuse, []Frame{{0x4C, 0x04}, {0x7A, 0x00}, {0x7E, 0x00}}, -1},
		{ReadExtFuse, []Frame{{0x4C, 0x04}, {0x6A, 0x00}, {0x6E, 0x00}}, -1},
		{WriteHighFuse, []Frame{{0x4C, 0x40}, {0x2C, 0x00}, {0x74, 0x00}, {0x7C, 0x00}}, 1},
		{WriteLowFuse, []Frame{{0x4C, 0x40}, {0x2C, 0x00}, {0x64, 0x00}, {0x6C, 0x00}}, 1},
	}
	for _, line := range data {
		c := line.id.Command()
		if c.Payload != line.payload {
			t.Fatalf("%s: payload %d", line.id, c.Payload)
		}
		if len(c.Frames) != len(line.frames) {
			t.Fatalf("%s: %v", line.id, c.Frames)
		}
		for i := range c.Frames {
			if c.Frames[i] != line.frames[i] {
				t.Fatalf("%s: frame #%d = %s, want %s", line.id, i, c.Frames[i], line.frames[i])
			}
		}
	}
}

func TestCommand_copy(t *testing.T) {
	c := WriteHighFuse.Command()
	c.Frames[1].Data = 0x5F
	if d := WriteHighFuse.Command().Frames[1].Data; d != 0 {
		t.Fatalf("table was modified: %#02x", d)
	}
	if s := CommandID(42).String(); s != "CommandID(42)" {
		t.Fatal(s)
	}
	if s := ReadExtFuse.String(); s != "read efuse" {
		t.Fatal(s)
	}
}

func TestFuses(t *testing.T) {
	var f Fuses
	f.set(LowFuse, 0x62)
	f.set(HighFuse, 0xDF)
	f.set(ExtendedFuse, 0xFF)
	if f.Get(LowFuse) != 0x62 || f.Get(HighFuse) != 0xDF || f.Get(ExtendedFuse) != 0xFF {
		t.Fatalf("%#v", f)
	}
	if s := f.String(); s != "lfuse=62 hfuse=DF efuse=FF" {
		t.Fatal(s)
	}
	if s := Fuse(3).String(); s != "Fuse(3)" {
		t.Fatal(s)
	}
	if s := FuseValue(0x5).String(); s != "05" {
		t.Fatal(s)
	}
}

func TestPolicy_String(t *testing.T) {
	if s := EnableReset.String(); s != "enable-reset" {
		t.Fatal(s)
	}
	if s := DisableReset.String(); s != "disable-reset" {
		t.Fatal(s)
	}
	if s := Policy(0).String(); s != "Policy(0)" {
		t.Fatal(s)
	}
}
