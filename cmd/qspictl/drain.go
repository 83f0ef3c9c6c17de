// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"github.com/spf13/cobra"
	"github.com/warthog618/axiqspi"
)

func init() {
	drainCmd.Flags().BoolVar(&drainOpts.Short, "short", false, "single line output format")
	drainCmd.Flags().IntVarP(&drainOpts.Depth, "depth", "n", 16, "maximum number of FIFO entries to read (0 is unlimited)")
	rootCmd.AddCommand(drainCmd)
}

var (
	drainCmd = &cobra.Command{
		Use:   "drain",
		Short: "Read the contents of the receive FIFO without shifting",
		Args:  cobra.NoArgs,
		RunE:  drain,
	}
	drainOpts = struct {
		Short bool
		Depth int
	}{}
)

func drain(cmd *cobra.Command, args []string) error {
	c, closer, err := openController(axiqspi.WithFIFODepth(drainOpts.Depth))
	if err != nil {
		return err
	}
	defer closer.Close()
	rx, err := c.Drain()
	if err != nil {
		return err
	}
	printBytes(rx, drainOpts.Short)
	return nil
}
