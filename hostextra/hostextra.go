// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostextra

import (
	_ "periph.io/x/fuserescue/hostextra/ftbb"
	"periph.io/x/periph"
	"periph.io/x/periph/host"
)

// Init calls host.Init(), which calls periph.Init() and returns it as-is.
//
// The difference with host.Init() is that hostextra.Init() also loads the
// FT232R bit-bang driver, which depends on libusb through cgo. Its pins are
// then available in gpioreg next to the host's own GPIOs.
func Init() (*periph.State, error) {
	return host.Init()
}
