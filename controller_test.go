// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

// Test suite for the controller, using the simulated register block.
package axiqspi_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/axiqspi"
	"github.com/warthog618/axiqspi/sim"
)

func newController(t *testing.T, cfg axiqspi.Config, simOpts []sim.Option, opts ...axiqspi.Option) (*axiqspi.Controller, *sim.Regs) {
	t.Helper()
	regs := sim.New(simOpts...)
	c := axiqspi.New(regs, opts...)
	require.Nil(t, c.Init(cfg))
	regs.ClearLog()
	return c, regs
}

func TestInitSequence(t *testing.T) {
	regs := sim.New()
	c := axiqspi.New(regs)
	require.Nil(t, c.Init(axiqspi.Config{Phase: 1, Polarity: 0}))
	expected := []sim.Access{
		{Op: sim.Write, Offset: axiqspi.SRR, Value: 0x0a},
		{Op: sim.Write, Offset: axiqspi.IPIER, Value: 0x04},
		{Op: sim.Write, Offset: axiqspi.DGIER, Value: 0},
		{Op: sim.Write, Offset: axiqspi.SSR, Value: 0xffffffff},
		{Op: sim.Read, Offset: axiqspi.SPICR, Value: 0x180},
		{Op: sim.Write, Offset: axiqspi.SPICR, Value: 0x1e6},
		{Op: sim.Read, Offset: axiqspi.SPICR, Value: 0x186},
		{Op: sim.Write, Offset: axiqspi.SPICR, Value: 0x196},
	}
	assert.Equal(t, expected, regs.Log())
	assert.Equal(t, axiqspi.Config{Phase: 1}, c.Config())
}

func TestInitClockMode(t *testing.T) {
	for _, phase := range []int{0, 1} {
		for _, polarity := range []int{0, 1} {
			label := fmt.Sprintf("cpha%d-cpol%d", phase, polarity)
			t.Run(label, func(t *testing.T) {
				regs := sim.New()
				c := axiqspi.New(regs)
				cfg := axiqspi.Config{Phase: phase, Polarity: polarity}
				require.Nil(t, c.Init(cfg))
				once := axiqspi.Control(regs.Get(axiqspi.SPICR))
				assert.Equal(t, phase, once.Phase())
				assert.Equal(t, polarity, once.Polarity())
				assert.True(t, once.Enabled())
				assert.True(t, once.Master())
				// re-init is idempotent
				require.Nil(t, c.Init(cfg))
				twice := axiqspi.Control(regs.Get(axiqspi.SPICR))
				assert.Equal(t, once&axiqspi.CtrlClockMode, twice&axiqspi.CtrlClockMode)
				assert.Equal(t, once, twice)
			})
		}
	}
}

func TestInitReconfigure(t *testing.T) {
	regs := sim.New()
	c := axiqspi.New(regs)
	require.Nil(t, c.Init(axiqspi.Config{Phase: 1, Polarity: 1}))
	require.Nil(t, c.Init(axiqspi.Config{}))
	ctrl := axiqspi.Control(regs.Get(axiqspi.SPICR))
	assert.Equal(t, 0, ctrl.Phase())
	assert.Equal(t, 0, ctrl.Polarity())
}

func TestInitInvalidConfig(t *testing.T) {
	patterns := []axiqspi.Config{
		{Phase: 2},
		{Phase: -1},
		{Polarity: 3},
		{Slave: -1},
		{Slave: axiqspi.MaxSlaves},
	}
	for _, cfg := range patterns {
		regs := sim.New()
		c := axiqspi.New(regs)
		err := c.Init(cfg)
		assert.ErrorIs(t, err, axiqspi.ErrInvalidConfig, cfg)
		assert.Empty(t, regs.Log(), cfg)
		_, err = c.Transfer([]byte{1})
		assert.ErrorIs(t, err, axiqspi.ErrNotInitialized)
	}
}

func TestTransferNotInitialized(t *testing.T) {
	regs := sim.New(sim.WithLoopback())
	c := axiqspi.New(regs)
	rx, err := c.Transfer([]byte{1, 2})
	assert.ErrorIs(t, err, axiqspi.ErrNotInitialized)
	assert.Nil(t, rx)
	assert.Empty(t, regs.Log())
}

func TestTransferLoopback(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{}, []sim.Option{sim.WithLoopback()})
	rx, err := c.Transfer([]byte{128, 2, 3})
	require.Nil(t, err)
	assert.Equal(t, []byte{128, 2, 3}, rx)
	assert.Equal(t, []uint32{128, 2, 3}, regs.Shifted())
}

func TestTransferScenario(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{}, []sim.Option{sim.WithLoopback()})
	rx, err := c.Transfer([]byte{128, 2})
	require.Nil(t, err)
	assert.Equal(t, []byte{128, 2}, rx)
	assert.Equal(t, []uint32{128, 2}, regs.Writes(axiqspi.DTR))
	ctrlWrites := regs.Writes(axiqspi.SPICR)
	require.Len(t, ctrlWrites, 4)
	for i, v := range ctrlWrites {
		ctrl := axiqspi.Control(v)
		// clear, set, clear, set
		assert.Equal(t, i%2 == 1, ctrl.Inhibited(), i)
	}
	assert.Equal(t, []uint32{0xfffffffe, 0xfffffffe, 0xffffffff}, regs.Writes(axiqspi.SSR))
}

// Checks each byte is written, the slave selected, inhibit cleared,
// completion polled and inhibit set, in that order.
func TestTransferOrdering(t *testing.T) {
	packet := []byte{0x55, 0xaa, 0x00, 0xff}
	c, regs := newController(t, axiqspi.Config{},
		[]sim.Option{sim.WithLoopback(), sim.WithLatency(3)})
	_, err := c.Transfer(packet)
	require.Nil(t, err)
	log := regs.Log()
	idx := 0
	next := func() sim.Access {
		require.Less(t, idx, len(log))
		a := log[idx]
		idx++
		return a
	}
	for _, b := range packet {
		assert.Equal(t, sim.Access{Op: sim.Write, Offset: axiqspi.DTR, Value: uint32(b)}, next())
		assert.Equal(t, sim.Access{Op: sim.Write, Offset: axiqspi.SSR, Value: 0xfffffffe}, next())
		a := next()
		assert.Equal(t, sim.Access{Op: sim.Read, Offset: axiqspi.SPICR, Value: a.Value}, a)
		a = next()
		assert.Equal(t, axiqspi.SPICR, a.Offset)
		assert.False(t, axiqspi.Control(a.Value).Inhibited())
		// latency then completion
		for i := 0; i < 4; i++ {
			a = next()
			assert.Equal(t, axiqspi.SPISR, a.Offset)
			assert.Equal(t, i == 3, axiqspi.Status(a.Value).TxEmpty(), i)
		}
		a = next()
		assert.Equal(t, sim.Access{Op: sim.Read, Offset: axiqspi.SPICR, Value: a.Value}, a)
		a = next()
		assert.Equal(t, axiqspi.SPICR, a.Offset)
		assert.True(t, axiqspi.Control(a.Value).Inhibited())
	}
	assert.Equal(t, sim.Access{Op: sim.Write, Offset: axiqspi.SSR, Value: 0xffffffff}, next())
	for range packet {
		assert.Equal(t, axiqspi.SPISR, next().Offset)
		assert.Equal(t, axiqspi.DRR, next().Offset)
	}
	a := next()
	assert.Equal(t, axiqspi.SPISR, a.Offset)
	assert.True(t, axiqspi.Status(a.Value).RxEmpty())
	assert.Equal(t, len(log), idx)
}

func TestTransferPreservesControlBits(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{Phase: 1, Polarity: 1},
		[]sim.Option{sim.WithLoopback()})
	extra := axiqspi.CtrlLSBFirst | axiqspi.CtrlLoopback | axiqspi.Control(0x40000000)
	before := axiqspi.Control(regs.Get(axiqspi.SPICR)) | extra
	regs.Set(axiqspi.SPICR, uint32(before))
	_, err := c.Transfer([]byte{1, 2, 3})
	require.Nil(t, err)
	var last uint32
	for _, a := range regs.Log() {
		if a.Offset != axiqspi.SPICR {
			continue
		}
		if a.Op == sim.Read {
			last = a.Value
			continue
		}
		// only the inhibit bit may change
		assert.Equal(t, last&^uint32(axiqspi.CtrlInhibit), a.Value&^uint32(axiqspi.CtrlInhibit))
	}
	assert.Equal(t, before|axiqspi.CtrlInhibit, axiqspi.Control(regs.Get(axiqspi.SPICR)))
}

func TestInitPreservesControlBits(t *testing.T) {
	regs := sim.New()
	c := axiqspi.New(regs)
	require.Nil(t, c.Init(axiqspi.Config{Phase: 1, Polarity: 1}))
	var reads, writes []uint32
	for _, a := range regs.Log() {
		if a.Offset != axiqspi.SPICR {
			continue
		}
		if a.Op == sim.Read {
			reads = append(reads, a.Value)
		} else {
			writes = append(writes, a.Value)
		}
	}
	require.Len(t, reads, 2)
	require.Len(t, writes, 2)
	assert.Equal(t, reads[0]|uint32(axiqspi.CtrlEnableDefaults), writes[0])
	mode := uint32(axiqspi.CtrlClockMode)
	assert.Equal(t, reads[1]&^mode, writes[1]&^mode)
	assert.Equal(t, mode, writes[1]&mode)
}

func TestTransferEmptyDrains(t *testing.T) {
	for _, n := range []int{0, 1, 5, 16} {
		c, regs := newController(t, axiqspi.Config{}, nil)
		vv := make([]uint32, n)
		expected := []byte(nil)
		for i := range vv {
			vv[i] = uint32(i * 3)
			expected = append(expected, byte(i*3))
		}
		regs.Preload(vv...)
		rx, err := c.Transfer(nil)
		require.Nil(t, err)
		assert.Equal(t, expected, rx, n)
		assert.Empty(t, regs.Writes(axiqspi.DTR))
		assert.Equal(t, []uint32{0xffffffff}, regs.Writes(axiqspi.SSR))
	}
}

func TestTransferStaleData(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{}, []sim.Option{sim.WithLoopback()})
	regs.Preload(0x99)
	rx, err := c.Transfer([]byte{1})
	require.Nil(t, err)
	assert.Equal(t, []byte{0x99, 1}, rx)
}

func TestTransferResponder(t *testing.T) {
	c, _ := newController(t, axiqspi.Config{},
		[]sim.Option{sim.WithResponder(func(v uint32) uint32 { return ^v })})
	rx, err := c.Transfer([]byte{0x0f, 0x80})
	require.Nil(t, err)
	assert.Equal(t, []byte{0xf0, 0x7f}, rx)
}

func TestTransferSlave(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{Slave: 3}, []sim.Option{sim.WithLoopback()})
	_, err := c.Transfer([]byte{1})
	require.Nil(t, err)
	assert.Equal(t, []uint32{0xfffffff7, 0xffffffff}, regs.Writes(axiqspi.SSR))
}

func TestTransferMaxPolls(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{},
		[]sim.Option{sim.WithLoopback()},
		axiqspi.WithMaxPolls(10))
	regs.Wedge()
	rx, err := c.Transfer([]byte{1, 2})
	assert.ErrorIs(t, err, axiqspi.ErrTimeout)
	assert.Nil(t, rx)
	polls := 0
	for _, a := range regs.Log() {
		if a.Offset == axiqspi.SPISR {
			polls++
		}
	}
	assert.Equal(t, 10, polls)
	// second byte never queued
	assert.Equal(t, []uint32{1}, regs.Writes(axiqspi.DTR))
	// aborted cleanly
	assert.True(t, axiqspi.Control(regs.Get(axiqspi.SPICR)).Inhibited())
	assert.Equal(t, axiqspi.SSRNone, regs.Get(axiqspi.SSR))
}

func TestTransferTimeout(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	c, regs := newController(t, axiqspi.Config{}, nil,
		axiqspi.WithTimeout(5*time.Millisecond),
		axiqspi.WithClock(clock))
	regs.Wedge()
	_, err := c.Transfer([]byte{1})
	assert.ErrorIs(t, err, axiqspi.ErrTimeout)
}

func TestTransferTimeoutNotHit(t *testing.T) {
	c, _ := newController(t, axiqspi.Config{},
		[]sim.Option{sim.WithLoopback(), sim.WithLatency(20)},
		axiqspi.WithTimeout(time.Second),
		axiqspi.WithMaxPolls(100))
	rx, err := c.Transfer([]byte{7, 8})
	require.Nil(t, err)
	assert.Equal(t, []byte{7, 8}, rx)
}

func TestTransferContext(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{}, nil)
	regs.Wedge()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.TransferContext(ctx, []byte{1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransferFIFOOverrun(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{}, nil, axiqspi.WithFIFODepth(4))
	regs.Preload(1, 2, 3, 4)
	rx, err := c.Transfer(nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, rx)
	regs.Preload(1, 2, 3, 4, 5)
	_, err = c.Transfer(nil)
	assert.ErrorIs(t, err, axiqspi.ErrFIFOOverrun)
}

func TestRegisterFault(t *testing.T) {
	fault := errors.New("bus fault")

	regs := sim.New()
	c := axiqspi.New(regs)
	regs.Fail(sim.Write, axiqspi.SRR, fault)
	err := c.Init(axiqspi.Config{})
	assert.ErrorIs(t, err, fault)
	var rerr *axiqspi.RegisterError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "write", rerr.Op)
	assert.Equal(t, axiqspi.SRR, rerr.Offset)
	_, err = c.Transfer(nil)
	assert.ErrorIs(t, err, axiqspi.ErrNotInitialized)

	regs.Fail(sim.Write, axiqspi.SRR, nil)
	require.Nil(t, c.Init(axiqspi.Config{}))
	regs.Fail(sim.Read, axiqspi.SPISR, fault)
	_, err = c.Transfer([]byte{1})
	assert.ErrorIs(t, err, fault)
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "read", rerr.Op)
	assert.Equal(t, axiqspi.SPISR, rerr.Offset)

	regs.Fail(sim.Read, axiqspi.SPISR, nil)
	regs.Fail(sim.Read, axiqspi.DRR, fault)
	regs.Preload(1)
	_, err = c.Drain()
	assert.ErrorIs(t, err, fault)
}

func TestDump(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{Polarity: 1}, nil)
	regs.Preload(1)
	ctrl, stat, err := c.Dump()
	require.Nil(t, err)
	assert.Equal(t, 1, ctrl.Polarity())
	assert.True(t, ctrl.Inhibited())
	assert.False(t, stat.RxEmpty())
	assert.True(t, stat.TxEmpty())
}

func TestDrain(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{}, nil)
	regs.Preload(0x1ff, 0x42)
	rx, err := c.Drain()
	require.Nil(t, err)
	// truncated to the transfer width
	assert.Equal(t, []byte{0xff, 0x42}, rx)
	assert.Empty(t, regs.Writes(axiqspi.SSR))
}

func TestDrainContextCancelled(t *testing.T) {
	c, regs := newController(t, axiqspi.Config{}, nil)
	regs.Preload(1, 2, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rx, err := c.TransferContext(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rx)
	assert.Empty(t, regs.Writes(axiqspi.DTR))
	// nothing popped from the FIFO
	rx, err = c.Drain()
	require.Nil(t, err)
	assert.Equal(t, []byte{1, 2, 3}, rx)
}

func TestTransferConcurrent(t *testing.T) {
	c, _ := newController(t, axiqspi.Config{}, []sim.Option{sim.WithLoopback(), sim.WithLatency(2)})
	packets := [][]byte{
		{0x10, 0x11, 0x12},
		{0x20, 0x21},
		{0x30, 0x31, 0x32, 0x33},
		{0x40},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(packets))
	rxs := make([][]byte, len(packets))
	for i, p := range packets {
		wg.Add(1)
		go func(i int, p []byte) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				rx, err := c.Transfer(p)
				if err != nil {
					errs[i] = err
					return
				}
				if string(rx) != string(p) {
					errs[i] = fmt.Errorf("transfer %d: got % x", n, rx)
					return
				}
				rxs[i] = rx
			}
		}(i, p)
	}
	wg.Wait()
	for i, p := range packets {
		assert.Nil(t, errs[i], i)
		assert.Equal(t, p, rxs[i], i)
	}
}

func TestInitFailureClearsConfig(t *testing.T) {
	fault := errors.New("bus fault")
	regs := sim.New()
	c := axiqspi.New(regs)
	cfg := axiqspi.Config{Phase: 1, Polarity: 1, Slave: 2}
	require.Nil(t, c.Init(cfg))
	assert.Equal(t, cfg, c.Config())
	regs.Fail(sim.Read, axiqspi.SPICR, fault)
	assert.ErrorIs(t, c.Init(cfg), fault)
	assert.Equal(t, axiqspi.Config{}, c.Config())
	_, err := c.Transfer([]byte{1})
	assert.ErrorIs(t, err, axiqspi.ErrNotInitialized)
}
