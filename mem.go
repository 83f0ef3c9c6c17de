// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package axiqspi

import (
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Mem provides access to a controller register block mapped from a device
// file, such as /dev/mem or a UIO device.
type Mem struct {
	// mu covers the mapping itself, not the register contents.
	// Register reads and writes are single 32 bit accesses.
	mu   sync.RWMutex
	mem8 []byte
	mem  []uint32
}

// Open memory maps the register block at base from the device at path.
// The base need not be page aligned.
// For /dev/mem the base is the physical address of the controller.
// For a UIO device the base is usually 0.
func Open(path string, base int64, length int) (*Mem, error) {
	if length <= 0 || length%4 != 0 || base%4 != 0 {
		return nil, ErrAlignment
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pageSize := int64(os.Getpagesize())
	start := base &^ (pageSize - 1)
	pad := int(base - start)

	mem8, err := unix.Mmap(
		int(file.Fd()),
		start,
		pad+length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s at 0x%x", path, base)
	}
	m := &Mem{mem8: mem8}
	m.mem = unsafe.Slice((*uint32)(unsafe.Pointer(&mem8[pad])), length/4)
	return m, nil
}

// Close unmaps the register block.
// Subsequent reads and writes return ErrAlreadyClosed.
func (m *Mem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mem8 == nil {
		return ErrAlreadyClosed
	}
	m.mem = nil
	err := unix.Munmap(m.mem8)
	m.mem8 = nil
	return err
}

// Read returns the value of the 32 bit register at the byte offset.
func (m *Mem) Read(offset uint32) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.index(offset)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(&m.mem[idx]), nil
}

// Write sets the value of the 32 bit register at the byte offset.
func (m *Mem) Write(offset, value uint32) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, err := m.index(offset)
	if err != nil {
		return err
	}
	atomic.StoreUint32(&m.mem[idx], value)
	return nil
}

func (m *Mem) index(offset uint32) (int, error) {
	if m.mem == nil {
		return 0, ErrAlreadyClosed
	}
	if offset%4 != 0 {
		return 0, ErrAlignment
	}
	idx := int(offset / 4)
	if idx >= len(m.mem) {
		return 0, ErrOutOfRange
	}
	return idx, nil
}
