// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	dumpCmd.Flags().BoolVarP(&dumpOpts.Raw, "raw", "r", false, "print raw register values only")
	rootCmd.AddCommand(dumpCmd)
}

var (
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Display the control and status registers",
		Args:  cobra.NoArgs,
		RunE:  dump,
	}
	dumpOpts = struct {
		Raw bool
	}{}
)

func dump(cmd *cobra.Command, args []string) error {
	c, closer, err := openController()
	if err != nil {
		return err
	}
	defer closer.Close()
	ctrl, stat, err := c.Dump()
	if err != nil {
		return err
	}
	if dumpOpts.Raw {
		fmt.Printf("0x%08x 0x%08x\n", uint32(ctrl), uint32(stat))
		return nil
	}
	fmt.Printf("control: %s\n", ctrl)
	fmt.Printf("status:  %s\n", stat)
	return nil
}
