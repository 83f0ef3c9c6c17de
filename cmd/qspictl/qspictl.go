// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/axiqspi"
	"github.com/warthog618/axiqspi/sim"
)

var version = "undefined"

var rootCmd = &cobra.Command{
	Use:   "qspictl",
	Short: "qspictl is a utility to drive an AXI Quad SPI controller",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	Version: version,
}

var rootOpts = struct {
	Device   string
	Base     string
	Sim      bool
	Timeout  time.Duration
	MaxPolls int
	Verbose  bool
}{}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootOpts.Device, "device", "d", "/dev/uio0", "device providing the controller registers")
	pf.StringVarP(&rootOpts.Base, "base", "b", "0", "offset of the controller registers within the device")
	pf.BoolVar(&rootOpts.Sim, "sim", false, "use a simulated loopback controller rather than the device")
	pf.DurationVarP(&rootOpts.Timeout, "timeout", "t", time.Second, "limit on waiting for any one status change (0 waits forever)")
	pf.IntVar(&rootOpts.MaxPolls, "max-polls", 0, "limit on status reads waiting for any one status change (0 is unlimited)")
	pf.BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "log controller activity to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openController creates a controller for the configured register block.
// The returned closer releases the register block.
func openController(extra ...axiqspi.Option) (*axiqspi.Controller, io.Closer, error) {
	var regs axiqspi.Registers
	closer := io.Closer(nopCloser{})
	if rootOpts.Sim {
		regs = sim.New(sim.WithLoopback())
	} else {
		base, err := strconv.ParseInt(rootOpts.Base, 0, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("can't parse base '%s'", rootOpts.Base)
		}
		m, err := axiqspi.Open(rootOpts.Device, base, axiqspi.MemLength)
		if err != nil {
			return nil, nil, err
		}
		regs = m
		closer = m
	}
	options := []axiqspi.Option{
		axiqspi.WithTimeout(rootOpts.Timeout),
		axiqspi.WithMaxPolls(rootOpts.MaxPolls),
	}
	options = append(options, extra...)
	if rootOpts.Verbose {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: axiqspi.LevelTrace})
		options = append(options, axiqspi.WithLogger(slog.New(h)))
	}
	return axiqspi.New(regs, options...), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}

// configFlags are the bus configuration flags shared by init and xfer.
type configFlags struct {
	Phase    int
	Polarity int
	Slave    int
}

func (f *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.Phase, "phase", "p", 0, "clock phase (CPHA), 0 or 1")
	cmd.Flags().IntVarP(&f.Polarity, "polarity", "o", 0, "clock polarity (CPOL), 0 or 1")
	cmd.Flags().IntVarP(&f.Slave, "slave", "s", 0, "index of the slave to select")
}

func (f *configFlags) config() axiqspi.Config {
	return axiqspi.Config{Phase: f.Phase, Polarity: f.Polarity, Slave: f.Slave}
}

func parseBytes(args []string) ([]byte, error) {
	bb := []byte(nil)
	for _, arg := range args {
		b, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("can't parse byte '%s'", arg)
		}
		bb = append(bb, byte(b))
	}
	return bb, nil
}

func printBytes(bb []byte, short bool) {
	if short {
		for i, b := range bb {
			if i > 0 {
				fmt.Print(" ")
			}
			fmt.Printf("0x%02x", b)
		}
		fmt.Println()
		return
	}
	for i, b := range bb {
		fmt.Printf("rx %2d: 0x%02x (%d)\n", i, b, b)
	}
}
