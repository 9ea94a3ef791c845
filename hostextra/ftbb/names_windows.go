// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftbb

import (
	"github.com/StackExchange/wmi"
)

// pnpEntity represents a Win32_PnPEntity instance. It intentionally leaves a
// lot of members out.
type pnpEntity struct {
	Name     string
	DeviceID string
	Service  string
}

// SystemAdapters lists the FTDI devices known to Windows, including the ones
// that libusb cannot open because they are bound to the FTDI driver.
func SystemAdapters() ([]string, error) {
	// https://msdn.microsoft.com/en-us/library/aa394353.aspx
	var dst []pnpEntity
	q := "SELECT Name, DeviceID, Service FROM Win32_PnPEntity WHERE DeviceID LIKE 'USB\\\\VID_0403&PID_6001%' OR DeviceID LIKE 'FTDIBUS%'"
	if err := wmi.Query(q, &dst); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(dst))
	for _, e := range dst {
		s := e.Name + " (" + e.DeviceID + ")"
		if e.Service != "" && e.Service != "WinUSB" {
			s += ": bound to " + e.Service + ", needs WinUSB"
		}
		out = append(out, s)
	}
	return out, nil
}
