// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"github.com/spf13/cobra"
)

func init() {
	xferOpts.register(xferCmd)
	xferCmd.Flags().BoolVar(&xferOpts.Short, "short", false, "single line output format")
	xferCmd.SetHelpTemplate(xferCmd.HelpTemplate() + extendedXferHelp)
	rootCmd.AddCommand(xferCmd)
}

var (
	xferCmd = &cobra.Command{
		Use:     "xfer <byte1>...",
		Short:   "Shift bytes out to the slave and print the bytes received",
		Example: "  qspictl xfer 0x80 2\n  qspictl --sim xfer 128 2 3",
		RunE:    xfer,
	}
	xferOpts = struct {
		configFlags
		Short bool
	}{}
)

var extendedXferHelp = `
Bytes:
  Bytes may be decimal, hex (0x) or octal (0) and must be in the range 0-255.
  With no bytes nothing is shifted.

The controller is initialised before the transfer, which discards anything
already in the receive FIFO. Use drain to read the FIFO without resetting.
`

func xfer(cmd *cobra.Command, args []string) error {
	tx, err := parseBytes(args)
	if err != nil {
		return err
	}
	c, closer, err := openController()
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := c.Init(xferOpts.config()); err != nil {
		return err
	}
	rx, err := c.Transfer(tx)
	if err != nil {
		return err
	}
	printBytes(rx, xferOpts.Short)
	return nil
}
