// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// hvsp rescues an ATtiny25/45/85 whose RESET pin was disabled, by rewriting
// its fuses over High-Voltage Serial Programming.
//
// It asks whether the RESET pin should be enabled or disabled, reads the
// fuses, rewrites the high fuse if needed and the low fuse to its default,
// then reads them back.
//
// On Ctrl-C or SIGTERM the target is powered down and the 12V turned off
// before exiting.
//
// Use --sim to try it without hardware.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
	"periph.io/x/fuserescue/devices/screen"
)

func mainImpl() error {
	scr := screen.New()
	defer scr.Halt()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	restore := func() {}
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		st, err := term.GetState(fd)
		if err != nil {
			return err
		}
		restore = func() { _ = term.Restore(fd, st) }
	}
	e := &env{
		in:  os.Stdin,
		scr: scr,
		sig: sig,
		exit: func(code int) {
			restore()
			_ = scr.Halt()
			os.Exit(code)
		},
	}
	return newRootCmd(e).Execute()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "hvsp: %s.\n", err)
		os.Exit(1)
	}
}
