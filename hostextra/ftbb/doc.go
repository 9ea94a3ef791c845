// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ftbb exposes the 8 data lines of an FT232R in asynchronous bit-bang
// mode as GPIO pins.
//
// It talks to the device through libusb via github.com/google/gousb, so the
// FTDI kernel driver (ftdi_sio on linux) is detached while in use. On
// Windows, the device must be bound to WinUSB, for example with Zadig.
//
// Each pin is registered in gpioreg as "FTBB<n>_<name>", for example
// "FTBB0_DTR", where n is the adapter index.
//
// Pin to bit mapping:
//
//	D0 TXD
//	D1 RXD
//	D2 RTS
//	D3 CTS
//	D4 DTR
//	D5 DSR
//	D6 DCD
//	D7 RI
//
// Every Out() is one USB bulk write and every Read() one control transfer,
// so expect a few hundred µs per operation. That is slow but HVSP only has
// minimum timings.
//
// # Datasheet
//
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_232R-01_Bit_Bang_Mode_Available_For_FT232R_and_Ft245R.pdf
package ftbb
