// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//
// Package axiqspi provides a polled master mode driver for the Xilinx AXI
// Quad SPI controller in standard mode.
//
// The driver uses only status register polling - no interrupts and no DMA.
// Each byte of a transfer is shifted individually by toggling the master
// transaction inhibit bit, and the receive FIFO is drained once all bytes
// have been shifted.
//
// Example of use:
//
// 	regs, err := axiqspi.Open("/dev/uio0", 0, axiqspi.MemLength)
// 	if err != nil {
// 		panic(err)
// 	}
// 	defer regs.Close()
//
// 	c := axiqspi.New(regs)
// 	if err := c.Init(axiqspi.Config{}); err != nil {
// 		panic(err)
// 	}
// 	rx, err := c.Transfer([]byte{0x80, 0x02})
//
// See PG153 for full details of the controller:
// https://docs.xilinx.com/r/en-US/pg153-axi-quad-spi
//
package axiqspi

import "fmt"

// Register offsets, in bytes, from the base of the controller register block.
const (
	DGIER uint32 = 0x1c // device global interrupt enable
	IPISR uint32 = 0x20 // IP interrupt status
	IPIER uint32 = 0x28 // IP interrupt enable
	SRR   uint32 = 0x40 // software reset
	SPICR uint32 = 0x60 // control
	SPISR uint32 = 0x64 // status
	DTR   uint32 = 0x68 // transmit FIFO data
	DRR   uint32 = 0x6c // receive FIFO data
	SSR   uint32 = 0x70 // slave select
)

// MemLength is the size of the register block.
const MemLength = 0x80

// Values written to fixed function registers.
const (
	// SRRReset triggers a software reset when written to SRR.
	SRRReset uint32 = 0x0a
	// IPIERDefault is written to IPIER during Init.
	IPIERDefault uint32 = 0x04
	// SSRNone deselects all slaves.
	SSRNone uint32 = 0xffffffff
)

// Control represents the contents of the SPICR register.
type Control uint32

// Control register bits.
const (
	CtrlLoopback       Control = 1 << 0
	CtrlEnable         Control = 1 << 1
	CtrlMaster         Control = 1 << 2
	CtrlCPOL           Control = 1 << 3
	CtrlCPHA           Control = 1 << 4
	CtrlTxFIFOReset    Control = 1 << 5
	CtrlRxFIFOReset    Control = 1 << 6
	CtrlManualSS       Control = 1 << 7
	CtrlInhibit        Control = 1 << 8
	CtrlLSBFirst       Control = 1 << 9
	CtrlFIFOReset              = CtrlTxFIFOReset | CtrlRxFIFOReset
	CtrlClockMode              = CtrlCPHA | CtrlCPOL
	CtrlEnableDefaults         = CtrlEnable | CtrlMaster | CtrlFIFOReset | CtrlManualSS
)

// Set returns the control value with the bits in mask set.
func (c Control) Set(mask Control) Control {
	return c | mask
}

// Clear returns the control value with the bits in mask cleared.
func (c Control) Clear(mask Control) Control {
	return c &^ mask
}

// Has returns true if all of the bits in mask are set.
func (c Control) Has(mask Control) bool {
	return c&mask == mask
}

// Phase returns the clock phase (CPHA) as 0 or 1.
func (c Control) Phase() int {
	return bit(c.Has(CtrlCPHA))
}

// Polarity returns the clock polarity (CPOL) as 0 or 1.
func (c Control) Polarity() int {
	return bit(c.Has(CtrlCPOL))
}

// Inhibited returns true if the master transaction inhibit bit is set.
func (c Control) Inhibited() bool {
	return c.Has(CtrlInhibit)
}

// Enabled returns true if the SPI system enable bit is set.
func (c Control) Enabled() bool {
	return c.Has(CtrlEnable)
}

// Master returns true if the controller is in master mode.
func (c Control) Master() bool {
	return c.Has(CtrlMaster)
}

// WithClockMode returns the control value with CPHA and CPOL replaced by
// the given phase and polarity.
func (c Control) WithClockMode(phase, polarity int) Control {
	c = c.Clear(CtrlClockMode)
	if phase == 1 {
		c = c.Set(CtrlCPHA)
	}
	if polarity == 1 {
		c = c.Set(CtrlCPOL)
	}
	return c
}

func (c Control) String() string {
	return fmt.Sprintf("0x%03x enable=%t master=%t cpha=%d cpol=%d inhibit=%t",
		uint32(c), c.Enabled(), c.Master(), c.Phase(), c.Polarity(), c.Inhibited())
}

// Status represents the contents of the SPISR register.
type Status uint32

// Status register bits.
const (
	StatRxEmpty   Status = 1 << 0
	StatRxFull    Status = 1 << 1
	StatTxEmpty   Status = 1 << 2
	StatTxFull    Status = 1 << 3
	StatModeFault Status = 1 << 4
)

// RxEmpty returns true if the receive FIFO is empty.
func (s Status) RxEmpty() bool {
	return s&StatRxEmpty != 0
}

// RxFull returns true if the receive FIFO is full.
func (s Status) RxFull() bool {
	return s&StatRxFull != 0
}

// TxEmpty returns true if the transmit FIFO is empty, i.e. the last queued
// byte has been shifted.
func (s Status) TxEmpty() bool {
	return s&StatTxEmpty != 0
}

// TxFull returns true if the transmit FIFO is full.
func (s Status) TxFull() bool {
	return s&StatTxFull != 0
}

// ModeFault returns true if the controller has detected a mode fault.
func (s Status) ModeFault() bool {
	return s&StatModeFault != 0
}

func (s Status) String() string {
	return fmt.Sprintf("0x%02x rx_empty=%t rx_full=%t tx_empty=%t tx_full=%t modf=%t",
		uint32(s), s.RxEmpty(), s.RxFull(), s.TxEmpty(), s.TxFull(), s.ModeFault())
}

// SlaveSelect returns the SSR pattern that selects only the given slave.
// Bits are active low.
func SlaveSelect(slave int) uint32 {
	return ^(uint32(1) << uint(slave))
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
