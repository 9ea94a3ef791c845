// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftbb

import (
	"log"
	"sort"

	"github.com/google/gousb"
)

// usbHandle is an open FT232R, claimed through libusb.
type usbHandle struct {
	d    *gousb.Device
	done func()
	out  *gousb.OutEndpoint
}

func (u *usbHandle) control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return u.d.Control(rType, request, val, idx, data)
}

func (u *usbHandle) write(b []byte) (int, error) {
	return u.out.Write(b)
}

func (u *usbHandle) close() error {
	u.done()
	return u.d.Close()
}

// byLocation sorts the devices so the adapter indexes are stable across
// runs as long as the adapters stay on the same ports.
type byLocation []*gousb.Device

func (b byLocation) Len() int      { return len(b) }
func (b byLocation) Swap(i, j int) { b[i], b[j] = b[j], b[i] }
func (b byLocation) Less(i, j int) bool {
	if b[i].Desc.Bus != b[j].Desc.Bus {
		return b[i].Desc.Bus < b[j].Desc.Bus
	}
	return b[i].Desc.Address < b[j].Desc.Address
}

// scanDevices opens all the FT232R on the USB bus.
//
// The context is kept open for the lifetime of the process.
func scanDevices(ctx *gousb.Context) ([]*Dev, error) {
	devs, err := ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		// Return true to keep the device open.
		return uint16(d.Vendor) == VenID && uint16(d.Product) == DevID
	})
	// If the user needs root access, LIBUSB_ERROR_ACCESS (-3) will be returned
	// but the devices that could be opened are still returned.
	sort.Sort(byLocation(devs))
	var out []*Dev
	for _, d := range devs {
		if err := d.SetAutoDetach(true); err != nil {
			log.Printf("ftbb: SetAutoDetach: %v", err)
		}
		desc, err1 := d.GetStringDescriptor(2)
		if err1 != nil {
			// Sometimes the USB device will return junk.
			desc = "FT232R"
		}
		i, done, err1 := d.DefaultInterface()
		if err1 != nil {
			log.Printf("ftbb: DefaultInterface: %v", err1)
			d.Close()
			continue
		}
		ep, err1 := i.OutEndpoint(2)
		if err1 != nil {
			log.Printf("ftbb: OutEndpoint: %v", err1)
			done()
			d.Close()
			continue
		}
		h := &usbHandle{d: d, done: done, out: ep}
		dev, err1 := newDev(len(out), desc, h)
		if err1 != nil {
			log.Printf("ftbb: %v", err1)
			h.close()
			continue
		}
		out = append(out, dev)
	}
	return out, err
}
