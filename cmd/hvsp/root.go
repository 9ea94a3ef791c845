// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/fuserescue/devices/hvsp"
	"periph.io/x/fuserescue/devices/hvsp/hvsptest"
	"periph.io/x/fuserescue/devices/screen"
	"periph.io/x/fuserescue/hostextra"
	"periph.io/x/fuserescue/hostextra/ftbb"
	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

// config is the flag values.
type config struct {
	verbose bool

	// Line names in gpioreg, indexed by hvsp.Role.
	lines [6]string

	hfuse        uint8
	lfuse        uint8
	verify       bool
	readyTimeout time.Duration
	writeSettle  time.Duration
	progEnable   time.Duration

	policy        string
	promptTimeout time.Duration

	sim      bool
	simLfuse uint8
	simHfuse uint8
	simEfuse uint8
}

// env is what the commands use from the process.
type env struct {
	in  io.Reader
	scr *screen.Dev
	// sig delivers the signals that abort a run. It may be nil.
	sig <-chan os.Signal
	// exit terminates the process once the target was halted after a
	// signal.
	exit func(code int)
}

func newRootCmd(e *env) *cobra.Command {
	cfg := &config{}
	scr := e.scr
	rescue := func(cmd *cobra.Command, args []string) error {
		return runRescue(cfg, e)
	}
	root := &cobra.Command{
		Use:   "hvsp",
		Short: "ATtiny25/45/85 fuse rescue over High-Voltage Serial Programming",
		Long: `hvsp rewrites the fuses of an ATtiny25/45/85 over High-Voltage Serial
Programming, which works even when the RESET pin was turned into a GPIO.

Lines are looked up by name in the periph GPIO registry. Use 'hvsp pins' to
list them. FT232R adapters in bit-bang mode show up as FTBB<n>_<pin>.

Without a subcommand, hvsp runs 'rescue'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !cfg.verbose {
				log.SetOutput(io.Discard)
			}
			log.SetFlags(log.Lmicroseconds)
		},
		RunE: rescue,
	}

	f := root.PersistentFlags()
	f.BoolVarP(&cfg.verbose, "verbose", "v", false, "verbose mode")
	f.StringVar(&cfg.lines[hvsp.RST], "rst", "GPIO2", "line driving the 12V level shifter (inverted)")
	f.StringVar(&cfg.lines[hvsp.SCI], "sci", "GPIO3", "line to SCI, target pin 2")
	f.StringVar(&cfg.lines[hvsp.SDO], "sdo", "GPIO4", "line to SDO, target pin 7")
	f.StringVar(&cfg.lines[hvsp.SII], "sii", "GPIO5", "line to SII, target pin 6")
	f.StringVar(&cfg.lines[hvsp.SDI], "sdi", "GPIO6", "line to SDI, target pin 5")
	f.StringVar(&cfg.lines[hvsp.VCC], "vcc", "GPIO7", "line to VCC, target pin 8")
	f.Uint8Var(&cfg.hfuse, "hfuse", uint8(hvsp.DefaultHighFuse), "base high fuse; RSTDISBL is set according to the choice")
	f.Uint8Var(&cfg.lfuse, "lfuse", uint8(hvsp.DefaultLowFuse), "low fuse to write")
	f.BoolVar(&cfg.verify, "verify", false, "fail if the fuses read back differ from the ones written")
	f.DurationVar(&cfg.readyTimeout, "ready-timeout", 0, "maximum wait for the target to be ready, 0 waits forever")
	f.DurationVar(&cfg.writeSettle, "write-settle", hvsp.DefaultOpts.WriteSettle, "wait before each fuse write")
	f.DurationVar(&cfg.progEnable, "prog-enable", hvsp.DefaultOpts.ProgEnable, "wait for the target to enter programming mode")
	f.BoolVar(&cfg.sim, "sim", false, "use a simulated target instead of GPIO lines")
	f.Uint8Var(&cfg.simLfuse, "sim-lfuse", 0xE2, "low fuse of the simulated target")
	f.Uint8Var(&cfg.simHfuse, "sim-hfuse", 0x5F, "high fuse of the simulated target")
	f.Uint8Var(&cfg.simEfuse, "sim-efuse", 0xFF, "extended fuse of the simulated target")

	rescueCmd := &cobra.Command{
		Use:   "rescue",
		Short: "Choose the RESET pin function and rewrite the fuses",
		Args:  cobra.NoArgs,
		RunE:  rescue,
	}
	for _, c := range []*cobra.Command{root, rescueCmd} {
		c.Flags().StringVar(&cfg.policy, "policy", "", "'enable' or 'disable' the RESET pin; prompts when empty")
		c.Flags().DurationVar(&cfg.promptTimeout, "prompt-timeout", 0, "maximum wait for the choice, 0 waits forever")
	}

	root.AddCommand(
		rescueCmd,
		&cobra.Command{
			Use:   "read",
			Short: "Read the fuses without changing them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRead(cfg, e)
			},
		},
		&cobra.Command{
			Use:   "pins",
			Short: "List the GPIO lines and USB adapters available",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPins(cfg, scr)
			},
		},
	)
	return root
}

// openDev initializes the lines. RST is driven high right away so the 12V
// stays off while the operator decides.
func openDev(cfg *config, scr *screen.Dev) (*hvsp.Dev, error) {
	var p hvsp.Pins
	if cfg.sim {
		t := hvsptest.New(cfg.simLfuse, cfg.simHfuse, cfg.simEfuse)
		t.BusyReads = 3
		p = hvsp.Pins{RST: t.RST, SCI: t.SCI, SDO: t.SDO, SII: t.SII, SDI: t.SDI, VCC: t.VCC}
	} else {
		if _, err := hostextra.Init(); err != nil {
			return nil, err
		}
		var l [6]gpio.PinIO
		for r, name := range cfg.lines {
			if l[r] = gpioreg.ByName(name); l[r] == nil {
				return nil, errors.New("no line named " + name + " for " + hvsp.Role(r).String() + ", try 'hvsp pins'")
			}
			log.Printf("%s = %s (%s)", hvsp.Role(r), l[r], l[r].Function())
		}
		p = hvsp.Pins{RST: l[hvsp.RST], SCI: l[hvsp.SCI], SDO: l[hvsp.SDO], SII: l[hvsp.SII], SDI: l[hvsp.SDI], VCC: l[hvsp.VCC]}
	}
	opts := hvsp.DefaultOpts
	opts.HighFuse = hvsp.FuseValue(cfg.hfuse)
	opts.LowFuse = hvsp.FuseValue(cfg.lfuse)
	opts.Verify = cfg.verify
	opts.ReadyTimeout = cfg.readyTimeout
	opts.WriteSettle = cfg.writeSettle
	opts.ProgEnable = cfg.progEnable
	opts.Logf = scr.Logf
	return hvsp.New(p, &opts)
}

// haltOnSignal halts d when a signal arrives on e.sig, then exits the
// process. The returned function stops watching; it waits for a halt in
// progress.
func (e *env) haltOnSignal(d conn.Resource) func() {
	if e.sig == nil {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case s := <-e.sig:
			e.scr.Warn("Got " + s.String() + ", powering the target down.")
			if err := d.Halt(); err != nil {
				log.Printf("%s: %v", d, err)
			}
			e.exit(1)
		case <-done:
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func runRescue(cfg *config, e *env) error {
	scr := e.scr
	d, err := openDev(cfg, scr)
	if err != nil {
		return err
	}
	defer e.haltOnSignal(d)()
	p, err := choosePolicy(cfg, e.in, scr)
	if err != nil {
		return err
	}
	log.Printf("policy %s, target hfuse %s", p, hvsp.HighFuseFor(p, hvsp.FuseValue(cfg.hfuse)))
	scr.Logf("")
	r, err := d.Program(p)
	if r != nil {
		showReport(scr, r)
	}
	if err != nil {
		return err
	}
	scr.Banner("Programming complete. Power cycle the target and run again to program another chip.")
	return nil
}

func runRead(cfg *config, e *env) error {
	scr := e.scr
	d, err := openDev(cfg, scr)
	if err != nil {
		return err
	}
	defer e.haltOnSignal(d)()
	f, err := d.ReadFuses()
	if err != nil {
		return err
	}
	scr.Logf("")
	return showFuses(scr, f)
}

func runPins(cfg *config, scr *screen.Dev) error {
	if cfg.sim {
		scr.Logf("Simulated target: RST SCI SDO SII SDI VCC")
		return nil
	}
	if _, err := hostextra.Init(); err != nil {
		return err
	}
	for _, p := range gpioreg.All() {
		scr.Logf("%-12s %s", p.Name(), p.Function())
	}
	a, err := ftbb.SystemAdapters()
	if err != nil {
		return err
	}
	for _, s := range a {
		scr.Logf("%s", s)
	}
	return nil
}

func showReport(scr *screen.Dev, r *hvsp.Report) {
	if r.HighSkipped {
		log.Printf("hfuse already %s, not written", r.HighFuse)
	}
	if !r.ReadBack {
		return
	}
	scr.Logf("")
	if err := showFuses(scr, r.After); err != nil {
		log.Printf("%v", err)
	}
}

func showFuses(scr *screen.Dev, f hvsp.Fuses) error {
	for _, fuse := range []hvsp.Fuse{hvsp.LowFuse, hvsp.HighFuse, hvsp.ExtendedFuse} {
		if err := scr.Fuse(fuse.String(), uint8(f.Get(fuse))); err != nil {
			return err
		}
	}
	if f.High&hvsp.RSTDISBL == 0 {
		scr.Warn("RSTDISBL is programmed: pin 1 is a GPIO")
	} else {
		scr.Logf("RSTDISBL is unprogrammed: pin 1 is RESET")
	}
	return nil
}
