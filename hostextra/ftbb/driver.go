// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftbb

import (
	"errors"
	"sync"

	"github.com/google/gousb"
	"periph.io/x/periph"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

// All enumerates all the FT232R adapters opened in bit-bang mode.
func All() []*Dev {
	mu.Lock()
	defer mu.Unlock()
	out := make([]*Dev, len(all))
	copy(out, all)
	return out
}

//

var (
	mu  sync.Mutex
	all []*Dev
)

// registerDev registers the pins in gpioreg.
func registerDev(d *Dev) error {
	for _, p := range d.Header() {
		if err := gpioreg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// driver implements periph.Driver.
type driver struct {
	// scan is replaced in tests.
	scan func() ([]*Dev, error)
}

func (d *driver) String() string {
	return "ftbb"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

func (d *driver) Init() (bool, error) {
	devs, err := d.scan()
	if len(devs) == 0 {
		if err == nil {
			err = errors.New("no FT232R found on the USB bus")
		}
		return false, err
	}
	mu.Lock()
	defer mu.Unlock()
	for _, dev := range devs {
		all = append(all, dev)
		if err := registerDev(dev); err != nil {
			return true, err
		}
	}
	return true, err
}

func scanUSB() ([]*Dev, error) {
	// The context stays open as long as the devices are in use.
	return scanDevices(gousb.NewContext())
}

func init() {
	periph.MustRegister(&driver{scan: scanUSB})
}

var _ periph.Driver = &driver{}
