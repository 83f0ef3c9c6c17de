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
	initOpts.register(initCmd)
	rootCmd.AddCommand(initCmd)
}

var (
	initCmd = &cobra.Command{
		Use:     "init",
		Short:   "Reset the controller into idle master mode",
		Example: "  qspictl init --phase 1 --polarity 1",
		Args:    cobra.NoArgs,
		RunE:    initialise,
	}
	initOpts configFlags
)

func initialise(cmd *cobra.Command, args []string) error {
	c, closer, err := openController()
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := c.Init(initOpts.config()); err != nil {
		return err
	}
	ctrl, _, err := c.Dump()
	if err != nil {
		return err
	}
	fmt.Printf("control: %s\n", ctrl)
	return nil
}
