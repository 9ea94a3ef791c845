// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen implements the operator console of the fuse rescue tool.
//
// It prints status lines and banners, and shows fuse bytes both in hex and as
// a row of colored blocks, one per bit, using ANSI color codes. When the
// output is not a terminal the bits are printed as 0 and 1 and no escape
// sequence is written.
package screen // import "periph.io/x/fuserescue/devices/screen"

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Bit colors.
var (
	// Programmed is the color of a bit that reads 0.
	Programmed = color.NRGBA{0x20, 0xC0, 0x20, 255}
	// Unprogrammed is the color of a bit that reads 1.
	Unprogrammed = color.NRGBA{0x50, 0x50, 0x50, 255}
)

// Dev is the console.
type Dev struct {
	w      io.Writer
	color  bool
	banner lipgloss.Style
	warn   lipgloss.Style

	mu  sync.Mutex
	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New() *Dev {
	return newDev(colorable.NewColorableStdout(), lipgloss.NewRenderer(os.Stdout), isTerminal(os.Stdout.Fd()))
}

// NewWriter returns a Dev that writes to w.
//
// Colors are used only if w is a terminal.
func NewWriter(w io.Writer) *Dev {
	color := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		color = isTerminal(f.Fd())
	}
	return newDev(w, lipgloss.NewRenderer(w), color)
}

func newDev(w io.Writer, r *lipgloss.Renderer, color bool) *Dev {
	return &Dev{
		w:      w,
		color:  color,
		banner: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (d *Dev) String() string {
	return "Screen"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (d *Dev) Halt() error {
	if !d.color {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := io.WriteString(d.w, "\033[0m")
	return err
}

// Write implements io.Writer.
func (d *Dev) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w.Write(b)
}

// Logf prints one status line.
//
// It matches the signature of hvsp.Opts.Logf.
func (d *Dev) Logf(format string, v ...interface{}) {
	d.println(fmt.Sprintf(format, v...))
}

// Banner prints a highlighted line.
func (d *Dev) Banner(s string) {
	d.println(d.banner.Render(s))
}

// Warn prints a line in the warning color.
func (d *Dev) Warn(s string) {
	d.println(d.warn.Render(s))
}

// Fuse prints the fuse byte with one colored block per bit, most significant
// bit first, or the bits in binary when colors are off.
func (d *Dev) Fuse(name string, v uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	fmt.Fprintf(&d.buf, "%-6s0x%02X  ", name, v)
	if !d.color {
		fmt.Fprintf(&d.buf, "%08b\n", v)
		_, err := d.buf.WriteTo(d.w)
		return err
	}
	for i := 7; i >= 0; i-- {
		c := Programmed
		if v&(1<<uint(i)) != 0 {
			c = Unprogrammed
		}
		_, _ = io.WriteString(&d.buf, ansi256.Default.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m\n")
	_, err := d.buf.WriteTo(d.w)
	return err
}

func (d *Dev) println(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = io.WriteString(d.w, s+"\n")
}

var _ fmt.Stringer = &Dev{}
var _ io.Writer = &Dev{}
