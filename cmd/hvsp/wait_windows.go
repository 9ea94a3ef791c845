// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// waitInput blocks until f is signaled or d elapsed.
//
// A console handle is signaled on any input event, so the following read
// may still block until a key is pressed.
func waitInput(f *os.File, d time.Duration) error {
	ms := uint32((d + time.Millisecond - 1) / time.Millisecond)
	ev, err := windows.WaitForSingleObject(windows.Handle(f.Fd()), ms)
	if err != nil {
		return err
	}
	if ev == uint32(windows.WAIT_TIMEOUT) {
		return errPromptTimeout
	}
	return nil
}
