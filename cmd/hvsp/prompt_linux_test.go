// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
	"periph.io/x/fuserescue/devices/hvsp"
	"periph.io/x/fuserescue/devices/screen"
)

func TestPrompter_ttyTimeout(t *testing.T) {
	_, tty := openPTY(t)
	before := lflag(t, tty)
	if before&unix.ICANON == 0 || before&unix.ECHO == 0 {
		t.Fatalf("unexpected initial mode %#x", before)
	}
	p := newPrompter(tty, screen.NewWriter(&bytes.Buffer{}), 20*time.Millisecond)
	if !p.tty {
		t.Fatal("pty not detected as a terminal")
	}
	if _, err := p.choose(); err != errPromptTimeout {
		t.Fatal(err)
	}
	if after := lflag(t, tty); after != before {
		t.Fatalf("terminal mode %#x, want %#x", after, before)
	}
}

func TestPrompter_ttyKey(t *testing.T) {
	ptm, tty := openPTY(t)
	before := lflag(t, tty)
	go func() {
		// Type once the prompt switched to raw mode.
		for start := time.Now(); time.Since(start) < 10*time.Second; time.Sleep(time.Millisecond) {
			if tio, err := unix.IoctlGetTermios(int(tty.Fd()), unix.TCGETS); err == nil && tio.Lflag&unix.ICANON == 0 {
				_, _ = ptm.Write([]byte("2"))
				return
			}
		}
	}()
	var buf bytes.Buffer
	p := newPrompter(tty, screen.NewWriter(&buf), 10*time.Second)
	got, err := p.choose()
	if err != nil || got != hvsp.DisableReset {
		t.Fatalf("choose() = %s, %v", got, err)
	}
	if after := lflag(t, tty); after != before {
		t.Fatalf("terminal mode %#x, want %#x", after, before)
	}
	if !strings.Contains(buf.String(), "2\n") {
		t.Fatalf("key not echoed\n%s", buf.String())
	}
}

//

// openPTY returns the controller and the terminal side of a new pty.
func openPTY(t *testing.T) (*os.File, *os.File) {
	ptm, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skip(err)
	}
	t.Cleanup(func() { ptm.Close() })
	fd := int(ptm.Fd())
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		t.Skip(err)
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		t.Skip(err)
	}
	tty, err := os.OpenFile("/dev/pts/"+strconv.Itoa(n), os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skip(err)
	}
	t.Cleanup(func() { tty.Close() })
	return ptm, tty
}

func lflag(t *testing.T, f *os.File) uint32 {
	tio, err := unix.IoctlGetTermios(int(f.Fd()), unix.TCGETS)
	if err != nil {
		t.Fatal(err)
	}
	return tio.Lflag
}
