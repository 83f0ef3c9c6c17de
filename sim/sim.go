// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package sim provides a simulated AXI Quad SPI register block.
//
// The simulation models the registers used by the axiqspi driver, the
// transmit and receive FIFOs, and the shifting of queued bytes while the
// controller is enabled, a slave is selected and the master transaction
// inhibit is clear.
// All register accesses are recorded so the sequence of accesses can be
// checked.
package sim

import (
	"sync"

	"github.com/warthog618/axiqspi"
)

// Op identifies the type of a register access.
type Op int

const (
	// Read is a register read.
	Read Op = iota
	// Write is a register write.
	Write
)

func (o Op) String() string {
	if o == Read {
		return "read"
	}
	return "write"
}

// Access records a single register access.
type Access struct {
	Op     Op
	Offset uint32
	Value  uint32
}

// Reset values of the simulated registers.
const (
	ResetControl = uint32(axiqspi.CtrlManualSS | axiqspi.CtrlInhibit)
	ResetSSR     = axiqspi.SSRNone
)

// Regs is a simulated register block.
// It implements axiqspi.Registers.
type Regs struct {
	mu      sync.Mutex
	regs    map[uint32]uint32
	tx      []uint32
	rx      []uint32
	busy    int
	wedged  bool
	log     []Access
	faults  map[Access]error
	shifted []uint32

	// Immutable options
	depth     int
	latency   int
	responder func(uint32) uint32
}

// Option modifies the behaviour of the simulation.
type Option func(*Regs)

// WithLoopback causes each shifted byte to be echoed into the receive FIFO.
func WithLoopback() Option {
	return func(r *Regs) {
		r.responder = func(v uint32) uint32 { return v }
	}
}

// WithResponder sets the function providing the byte received for each
// byte shifted out.
// By default the slave returns 0.
func WithResponder(fn func(uint32) uint32) Option {
	return func(r *Regs) {
		r.responder = fn
	}
}

// WithLatency sets the number of status reads, after a byte starts
// shifting, that report the transmit FIFO as not empty.
func WithLatency(n int) Option {
	return func(r *Regs) {
		r.latency = n
	}
}

// WithDepth limits the depth of the FIFOs.
// Bytes received while the receive FIFO is full are dropped.
// By default the FIFOs are unbounded.
func WithDepth(n int) Option {
	return func(r *Regs) {
		r.depth = n
	}
}

// New creates a simulated register block in its reset state.
func New(options ...Option) *Regs {
	r := &Regs{
		faults:    make(map[Access]error),
		responder: func(uint32) uint32 { return 0 },
	}
	for _, option := range options {
		option(r)
	}
	r.reset()
	return r
}

func (r *Regs) reset() {
	r.regs = map[uint32]uint32{
		axiqspi.SPICR: ResetControl,
		axiqspi.SSR:   ResetSSR,
	}
	r.tx = nil
	r.rx = nil
	r.busy = 0
}

// Read implements axiqspi.Registers.
func (r *Regs) Read(offset uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.faults[Access{Op: Read, Offset: offset}]; err != nil {
		return 0, err
	}
	var v uint32
	switch offset {
	case axiqspi.SPISR:
		v = r.status()
	case axiqspi.DRR:
		if len(r.rx) > 0 {
			v = r.rx[0]
			r.rx = r.rx[1:]
		}
	default:
		v = r.regs[offset]
	}
	r.log = append(r.log, Access{Op: Read, Offset: offset, Value: v})
	return v, nil
}

// Write implements axiqspi.Registers.
func (r *Regs) Write(offset, value uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.faults[Access{Op: Write, Offset: offset}]; err != nil {
		return err
	}
	r.log = append(r.log, Access{Op: Write, Offset: offset, Value: value})
	switch offset {
	case axiqspi.SRR:
		if value == axiqspi.SRRReset {
			r.reset()
		}
		return nil
	case axiqspi.DTR:
		if r.depth == 0 || len(r.tx) < r.depth {
			r.tx = append(r.tx, value)
		}
	case axiqspi.SPICR:
		ctrl := axiqspi.Control(value)
		if ctrl.Has(axiqspi.CtrlTxFIFOReset) {
			r.tx = nil
		}
		if ctrl.Has(axiqspi.CtrlRxFIFOReset) {
			r.rx = nil
		}
		// FIFO reset bits are self clearing.
		r.regs[offset] = uint32(ctrl.Clear(axiqspi.CtrlFIFOReset))
	default:
		r.regs[offset] = value
	}
	r.step()
	return nil
}

// step shifts any queued bytes if the controller is able to shift.
func (r *Regs) step() {
	ctrl := axiqspi.Control(r.regs[axiqspi.SPICR])
	if !ctrl.Enabled() || !ctrl.Master() || ctrl.Inhibited() {
		return
	}
	if r.regs[axiqspi.SSR] == axiqspi.SSRNone || len(r.tx) == 0 {
		return
	}
	if r.wedged {
		return
	}
	for _, v := range r.tx {
		v &= 0xff
		r.shifted = append(r.shifted, v)
		if r.depth == 0 || len(r.rx) < r.depth {
			r.rx = append(r.rx, r.responder(v)&0xff)
		}
	}
	r.tx = nil
	r.busy = r.latency
}

func (r *Regs) status() uint32 {
	var s axiqspi.Status
	if len(r.rx) == 0 {
		s |= axiqspi.StatRxEmpty
	}
	if r.depth > 0 && len(r.rx) >= r.depth {
		s |= axiqspi.StatRxFull
	}
	if r.depth > 0 && len(r.tx) >= r.depth {
		s |= axiqspi.StatTxFull
	}
	switch {
	case r.busy > 0:
		r.busy--
	case len(r.tx) == 0:
		s |= axiqspi.StatTxEmpty
	}
	return uint32(s)
}

// Wedge prevents any further bytes being shifted, so the transmit FIFO
// never empties once a byte is queued.
func (r *Regs) Wedge() {
	r.mu.Lock()
	r.wedged = true
	r.mu.Unlock()
}

// Fail causes subsequent accesses of the given type to the offset to
// return err.
// A nil err clears the fault.
func (r *Regs) Fail(op Op, offset uint32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := Access{Op: op, Offset: offset}
	if err == nil {
		delete(r.faults, a)
		return
	}
	r.faults[a] = err
}

// Preload appends values to the receive FIFO.
func (r *Regs) Preload(values ...uint32) {
	r.mu.Lock()
	r.rx = append(r.rx, values...)
	r.mu.Unlock()
}

// Set sets the raw value of a register without side effects and without
// recording the access.
func (r *Regs) Set(offset, value uint32) {
	r.mu.Lock()
	r.regs[offset] = value
	r.mu.Unlock()
}

// Get returns the raw value of a register without side effects and without
// recording the access.
func (r *Regs) Get(offset uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regs[offset]
}

// Log returns a copy of the accesses recorded since the last ClearLog.
func (r *Regs) Log() []Access {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Access(nil), r.log...)
}

// ClearLog discards the recorded accesses.
func (r *Regs) ClearLog() {
	r.mu.Lock()
	r.log = nil
	r.mu.Unlock()
}

// Shifted returns the bytes shifted onto the bus, in order.
func (r *Regs) Shifted() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.shifted...)
}

// Writes returns the values written to the offset, in order.
func (r *Regs) Writes(offset uint32) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var vv []uint32
	for _, a := range r.log {
		if a.Op == Write && a.Offset == offset {
			vv = append(vv, a.Value)
		}
	}
	return vv
}
