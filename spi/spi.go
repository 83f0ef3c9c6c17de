// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Package spi exposes an axiqspi Controller as a periph.io SPI port, so
// periph.io device drivers can be used over the AXI Quad SPI controller.
package spi

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/warthog618/axiqspi"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Port represents the bus driven by a Controller, with a single slave.
// It implements spi.PortCloser.
type Port struct {
	mu        sync.Mutex
	ctrl      *axiqspi.Controller
	slave     int
	closer    io.Closer
	limit     physic.Frequency
	connected bool
}

// New creates a Port that addresses the given slave via ctrl.
// The controller is initialised by Connect.
func New(ctrl *axiqspi.Controller, slave int) *Port {
	return &Port{ctrl: ctrl, slave: slave}
}

func (p *Port) String() string {
	return fmt.Sprintf("axiqspi.%d", p.slave)
}

// Close releases the register block, if the Port owns it.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// LimitSpeed records the maximum clock frequency the bus supports.
//
// The SCK ratio of the controller is fixed when the bitstream is built, so
// the limit is only checked against the frequency requested in Connect.
func (p *Port) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return errors.Errorf("invalid speed %s", f)
	}
	p.mu.Lock()
	p.limit = f
	p.mu.Unlock()
	return nil
}

// Connect initialises the controller with the clock mode from mode and
// returns a connection to the slave.
//
// Only 8 bit words, full duplex, MSB first transfers with hardware chip
// select are supported.
// Connect may only be called once.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil, ErrConnected
	}
	if bits != 8 {
		return nil, errors.Errorf("unsupported bits per word %d", bits)
	}
	if mode&(spi.HalfDuplex|spi.NoCS|spi.LSBFirst) != 0 {
		return nil, errors.Errorf("unsupported mode 0x%x", int(mode))
	}
	if p.limit > 0 && f > p.limit {
		return nil, errors.Errorf("speed %s exceeds limit %s", f, p.limit)
	}
	cfg := axiqspi.Config{
		Phase:    int(mode & spi.Mode1),
		Polarity: int(mode&spi.Mode2) >> 1,
		Slave:    p.slave,
	}
	if err := p.ctrl.Init(cfg); err != nil {
		return nil, err
	}
	p.connected = true
	return &Conn{port: p, freq: f, mode: mode}, nil
}

// Conn is a connection to the slave addressed by a Port.
// It implements spi.Conn.
type Conn struct {
	port *Port
	freq physic.Frequency
	mode spi.Mode
}

func (c *Conn) String() string {
	return fmt.Sprintf("%s@%s/mode%d", c.port, c.freq, int(c.mode))
}

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex {
	return conn.Full
}

// Halt implements conn.Resource.
//
// Transfers are synchronous, so there is never anything to halt.
func (c *Conn) Halt() error {
	return nil
}

// Tx shifts out w and, if r is not nil, fills r with the bytes received.
//
// r, if provided, must be the same length as w.
func (c *Conn) Tx(w, r []byte) error {
	if r != nil && len(r) != len(w) {
		return errors.Errorf("read length %d does not match write length %d", len(r), len(w))
	}
	rx, err := c.port.ctrl.Transfer(w)
	if err != nil {
		return err
	}
	if len(rx) != len(w) {
		return errors.Wrapf(ErrShortRead, "received %d bytes for %d sent", len(rx), len(w))
	}
	copy(r, rx)
	return nil
}

// TxPackets performs each packet as a separate transfer, in order.
func (c *Conn) TxPackets(pp []spi.Packet) error {
	for i, p := range pp {
		if p.BitsPerWord != 0 && p.BitsPerWord != 8 {
			return errors.Errorf("packet %d: unsupported bits per word %d", i, p.BitsPerWord)
		}
		if p.KeepCS {
			return errors.Errorf("packet %d: KeepCS is not supported", i)
		}
		if err := c.Tx(p.W, p.R); err != nil {
			return errors.Wrapf(err, "packet %d", i)
		}
	}
	return nil
}

var (
	// ErrConnected indicates Connect has already been called on the Port.
	ErrConnected = errors.New("already connected")

	// ErrShortRead indicates the receive FIFO did not hold exactly one byte
	// for each byte sent.
	ErrShortRead = errors.New("receive count mismatch")
)

var (
	_ spi.PortCloser = &Port{}
	_ spi.Conn       = &Conn{}
)
