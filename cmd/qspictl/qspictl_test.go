// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/axiqspi"
)

func TestParseBytes(t *testing.T) {
	bb, err := parseBytes([]string{"128", "0x02", "010", "255"})
	require.Nil(t, err)
	assert.Equal(t, []byte{128, 2, 8, 255}, bb)
	bb, err = parseBytes(nil)
	require.Nil(t, err)
	assert.Empty(t, bb)
	_, err = parseBytes([]string{"256"})
	assert.NotNil(t, err)
	_, err = parseBytes([]string{"J8p7"})
	assert.NotNil(t, err)
}

func TestSimController(t *testing.T) {
	rootOpts.Sim = true
	defer func() { rootOpts.Sim = false }()
	c, closer, err := openController()
	require.Nil(t, err)
	defer closer.Close()
	cfg := configFlags{Phase: 1}
	require.Nil(t, c.Init(cfg.config()))
	rx, err := c.Transfer([]byte{128, 2})
	require.Nil(t, err)
	assert.Equal(t, []byte{128, 2}, rx)
	ctrl, _, err := c.Dump()
	require.Nil(t, err)
	assert.Equal(t, 1, ctrl.Phase())
	assert.True(t, ctrl.Has(axiqspi.CtrlInhibit))
}
