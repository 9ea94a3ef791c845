// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hvsp drives the High-Voltage Serial Programming interface of the
// ATtiny25/45/85 to read and rewrite their fuse bytes.
//
// HVSP is the rescue path once the RSTDISBL fuse turned the RESET pin into a
// GPIO: ISP is no longer possible but a 12V pulse on the reset pin still
// forces the chip into a programming mode that accepts serial commands on
// SCI, SII, SDI and SDO.
//
// Every line is a gpio.PinIO, so the host can be anything periph supports:
// a single board computer header, an FT232R in bit-bang mode (see
// periph.io/x/fuserescue/hostextra/ftbb) or the simulated target in hvsptest.
//
// # Wiring
//
// The RST line goes through an inverting level shifter that switches 12V to
// the target's pin 1. Driving RST high turns 12V off.
//
//	RST  -> level shifter -> pin 1 (RESET, 12V)
//	SCI  -> pin 2 (serial clock input)
//	SDO  <- pin 7 (serial data output)
//	SII  -> pin 6 (serial instruction input)
//	SDI  -> pin 5 (serial data input)
//	VCC  -> pin 8
//
// # Datasheet
//
// http://ww1.microchip.com/downloads/en/DeviceDoc/Atmel-2586-AVR-8-bit-Microcontroller-ATtiny25-ATtiny45-ATtiny85_Datasheet.pdf
//
// Section 20.7 "High-voltage Serial Programming".
package hvsp
