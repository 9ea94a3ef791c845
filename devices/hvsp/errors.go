// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hvsp

import (
	"errors"
	"fmt"
	"time"
)

// ErrHalted is returned by a session or a Transfer interrupted by Halt.
var ErrHalted = errors.New("hvsp: halted")

// TargetNotRespondingError is returned when SDO did not go high within
// Opts.ReadyTimeout before a frame.
//
// It usually means the target is not powered, the 12V is missing or the
// wiring is wrong.
type TargetNotRespondingError struct {
	Frame  Frame
	Waited time.Duration
}

func (e *TargetNotRespondingError) Error() string {
	return fmt.Sprintf("hvsp: target not responding: SDO stayed low for %s before frame %s", e.Waited, e.Frame)
}

// FuseWriteVerificationError is returned when Opts.Verify is set and the
// fuse read back after programming differs from what was written.
type FuseWriteVerificationError struct {
	Fuse     Fuse
	Expected FuseValue
	Actual   FuseValue
}

func (e *FuseWriteVerificationError) Error() string {
	return fmt.Sprintf("hvsp: %s verification failed: wrote 0x%s, read back 0x%s", e.Fuse, e.Expected, e.Actual)
}

// lineError wraps a failure of a pin operation with its role.
type lineError struct {
	role Role
	op   string
	err  error
}

func (e *lineError) Error() string {
	return fmt.Sprintf("hvsp: %s %s: %v", e.role, e.op, e.err)
}

func (e *lineError) Unwrap() error {
	return e.err
}
