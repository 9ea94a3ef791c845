// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"periph.io/x/fuserescue/devices/hvsp"
	"periph.io/x/fuserescue/devices/screen"
)

var (
	errInterrupted   = errors.New("interrupted")
	errPromptTimeout = errors.New("no choice made in time")
	errNoChoice      = errors.New("no choice made before end of input")
)

// choosePolicy returns the policy given with --policy, or asks the operator.
func choosePolicy(cfg *config, in io.Reader, scr *screen.Dev) (hvsp.Policy, error) {
	switch cfg.policy {
	case "enable":
		return hvsp.EnableReset, nil
	case "disable":
		return hvsp.DisableReset, nil
	case "":
		return newPrompter(in, scr, cfg.promptTimeout).choose()
	default:
		return 0, fmt.Errorf("--policy must be 'enable' or 'disable', got %q", cfg.policy)
	}
}

// prompter reads the operator's choice.
//
// On a terminal a single key press is enough. Otherwise, one choice is read
// per line and blank lines are ignored.
//
// The timeout only applies when in is an *os.File.
type prompter struct {
	scr     *screen.Dev
	timeout time.Duration
	f       *os.File
	tty     bool
	r       *bufio.Reader
	retries int
}

func newPrompter(in io.Reader, scr *screen.Dev, timeout time.Duration) *prompter {
	p := &prompter{scr: scr, timeout: timeout, r: bufio.NewReader(in)}
	if f, ok := in.(*os.File); ok {
		p.f = f
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *prompter) choose() (hvsp.Policy, error) {
	p.scr.Banner("Turn on the 12 volt power.")
	p.scr.Logf("")
	p.scr.Logf("You can ENABLE the RST pin (as RST) to allow programming")
	p.scr.Logf("or DISABLE it to turn it into a (weak) GPIO pin.")
	for {
		p.scr.Logf("")
		p.scr.Logf("Enter 1 to ENABLE the RST pin (back to normal)")
		p.scr.Logf("Enter 2 to DISABLE the RST pin (make it a GPIO pin)")
		s, err := p.next()
		if err != nil {
			return 0, err
		}
		switch s {
		case "1":
			return hvsp.EnableReset, nil
		case "2":
			return hvsp.DisableReset, nil
		}
		p.retries++
		p.scr.Warn("Invalid input. Try again...")
	}
}

// next returns the next non-blank answer.
func (p *prompter) next() (string, error) {
	var deadline time.Time
	if p.timeout > 0 {
		deadline = time.Now().Add(p.timeout)
	}
	for {
		var s string
		var err error
		if p.tty {
			s, err = p.readKey(deadline)
		} else {
			s, err = p.readLine(deadline)
		}
		if s != "" || err != nil {
			return s, err
		}
	}
}

// wait blocks until p.f has data to read, or the deadline passed.
func (p *prompter) wait(deadline time.Time) error {
	if p.f == nil || deadline.IsZero() {
		return nil
	}
	d := time.Until(deadline)
	if d <= 0 {
		return errPromptTimeout
	}
	return waitInput(p.f, d)
}

func (p *prompter) readLine(deadline time.Time) (string, error) {
	if p.r.Buffered() == 0 {
		if err := p.wait(deadline); err != nil {
			return "", err
		}
	}
	line, err := p.r.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", errNoChoice
		}
		err = nil
	}
	return strings.TrimSpace(line), err
}

func (p *prompter) readKey(deadline time.Time) (string, error) {
	b, err := p.rawKey(deadline)
	if err != nil {
		return "", err
	}
	switch b {
	case 3, 4:
		// Ctrl-C, Ctrl-D.
		return "", errInterrupted
	case '\r', '\n':
		return "", nil
	}
	p.scr.Logf("%c", b)
	return strings.TrimSpace(string(b)), nil
}

// rawKey reads one byte with the terminal in raw mode. The terminal is
// always restored before returning.
func (p *prompter) rawKey(deadline time.Time) (byte, error) {
	fd := int(p.f.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return 0, err
	}
	defer term.Restore(fd, old)
	if err := p.wait(deadline); err != nil {
		return 0, err
	}
	var b [1]byte
	if _, err := p.f.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
