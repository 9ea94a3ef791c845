// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package fuserescue is for documentation only. Explains how to wire an
// ATtiny25/45/85 for High-Voltage Serial Programming and how to setup cgo.
//
// # Hardware
//
// The target needs 6 lines: RST, SCI, SDO, SII, SDI and VCC. RST drives an
// inverting level shifter (typically an NPN transistor pulling a 12V line
// through a 1kΩ resistor) connected to pin 1 of the target. See
// periph.io/x/fuserescue/devices/hvsp for the pinout.
//
// The lines can come from the host GPIO header, for example a Raspberry Pi,
// or from an FT232R adapter in bit-bang mode via
// periph.io/x/fuserescue/hostextra/ftbb. Use 'hvsp pins' to list the
// available names.
//
// # Debian
//
// This includes Raspbian and Ubuntu.
//
// You need to install pkg-config and libusb to enable cgo, run:
//
//	sudo apt install pkg-config libusb-1.0-0-dev
//
// # MacOS
//
// You can install pkg-config via Homebrew (https://brew.sh). First install
// Homebrew, then:
//
//	brew install pkgconfig libusb
package fuserescue
