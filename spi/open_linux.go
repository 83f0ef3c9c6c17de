// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package spi

import (
	"github.com/warthog618/axiqspi"
)

// Open maps the controller register block at base from the device at path
// and returns a Port for the given slave.
// Closing the Port unmaps the register block.
func Open(path string, base int64, slave int, options ...axiqspi.Option) (*Port, error) {
	m, err := axiqspi.Open(path, base, axiqspi.MemLength)
	if err != nil {
		return nil, err
	}
	p := New(axiqspi.New(m, options...), slave)
	p.closer = m
	return p, nil
}
