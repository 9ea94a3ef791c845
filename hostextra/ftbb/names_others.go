// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !windows
// +build !windows

package ftbb

// SystemAdapters lists the adapters opened by the driver.
//
// On Windows it also lists the ones bound to another driver.
func SystemAdapters() ([]string, error) {
	var out []string
	for _, d := range All() {
		out = append(out, d.String()+": "+d.Desc())
	}
	return out, nil
}
