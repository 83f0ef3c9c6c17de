// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package axiqspi

import (
	"fmt"

	"github.com/pkg/errors"
)

// RegisterError indicates a failure of the underlying register access.
type RegisterError struct {
	Op     string
	Offset uint32
	Err    error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("%s register 0x%02x: %s", e.Op, e.Offset, e.Err)
}

// Unwrap returns the error from the register access.
func (e *RegisterError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotInitialized indicates a Transfer was attempted before Init.
	ErrNotInitialized = errors.New("not initialized")

	// ErrTimeout indicates a status bit did not change within the poll limits.
	ErrTimeout = errors.New("timeout waiting for status")

	// ErrFIFOOverrun indicates the receive FIFO held more entries than the
	// configured FIFO depth.
	ErrFIFOOverrun = errors.New("receive FIFO overrun")

	// ErrInvalidConfig indicates a Config field is out of range.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrAlreadyClosed indicates the register block has been unmapped.
	ErrAlreadyClosed = errors.New("already closed")

	// ErrAlignment indicates a register offset or length is not a multiple
	// of 4.
	ErrAlignment = errors.New("misaligned register access")

	// ErrOutOfRange indicates a register offset beyond the mapped block.
	ErrOutOfRange = errors.New("register offset out of range")
)
