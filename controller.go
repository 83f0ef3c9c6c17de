// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

package axiqspi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Registers provides 32 bit access to a controller register block.
// Offsets are in bytes from the base of the block.
// Implementations need not be safe for concurrent use.
type Registers interface {
	Read(offset uint32) (uint32, error)
	Write(offset, value uint32) error
}

// Config defines the bus configuration latched by Init.
type Config struct {
	// Phase is the clock phase (CPHA), 0 or 1.
	Phase int
	// Polarity is the clock polarity (CPOL), 0 or 1.
	Polarity int
	// Slave is the index of the slave selected during transfers.
	Slave int
}

// MaxSlaves is the number of slave select lines addressable via SSR.
const MaxSlaves = 32

func (cfg Config) validate() error {
	if cfg.Phase != 0 && cfg.Phase != 1 {
		return errors.Wrapf(ErrInvalidConfig, "phase %d", cfg.Phase)
	}
	if cfg.Polarity != 0 && cfg.Polarity != 1 {
		return errors.Wrapf(ErrInvalidConfig, "polarity %d", cfg.Polarity)
	}
	if cfg.Slave < 0 || cfg.Slave >= MaxSlaves {
		return errors.Wrapf(ErrInvalidConfig, "slave %d", cfg.Slave)
	}
	return nil
}

// Controller is a polled master mode driver for one AXI Quad SPI controller.
//
// Init must be called before Transfer.
// The Controller serialises its own operations, but assumes it has exclusive
// access to the register block.
type Controller struct {
	// mu is held for the duration of each Init and Transfer.
	mu     sync.Mutex
	regs   Registers
	cfg    Config
	inited bool

	// Immutable options
	timeout   time.Duration
	maxPolls  int
	fifoDepth int
	now       func() time.Time
	logger    *slog.Logger
}

// Option modifies the behaviour of a Controller.
type Option func(*Controller)

// WithTimeout limits the time spent polling for any one status change.
// A zero duration, the default, polls forever.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithMaxPolls limits the number of status reads while waiting for any one
// status change.
// Zero, the default, polls forever.
func WithMaxPolls(n int) Option {
	return func(c *Controller) {
		c.maxPolls = n
	}
}

// WithFIFODepth limits the number of entries read from the receive FIFO by
// a single drain.
// Zero, the default, drains until the FIFO reports empty.
func WithFIFODepth(n int) Option {
	return func(c *Controller) {
		c.fifoDepth = n
	}
}

// WithClock sets the clock used to evaluate the poll timeout.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithLogger sets the logger for the controller.
// By default the controller does not log.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// New creates a Controller for the given register block.
// The controller is not initialised.
func New(regs Registers, options ...Option) *Controller {
	c := &Controller{
		regs: regs,
		now:  time.Now,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Init resets the controller and brings it into an idle master mode state
// with the clock phase and polarity from cfg.
//
// Init may be called again to change the configuration.
func (c *Controller) Init(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inited = false
	c.cfg = Config{}
	steps := []struct {
		offset uint32
		value  uint32
	}{
		{SRR, SRRReset},
		{IPIER, IPIERDefault},
		{DGIER, 0},
		{SSR, SSRNone},
	}
	for _, s := range steps {
		if err := c.write(s.offset, s.value); err != nil {
			return err
		}
	}
	// The core must be enabled before the clock mode is set.
	if err := c.modify(func(v Control) Control {
		return v.Set(CtrlEnableDefaults)
	}); err != nil {
		return err
	}
	if err := c.modify(func(v Control) Control {
		return v.WithClockMode(cfg.Phase, cfg.Polarity)
	}); err != nil {
		return err
	}
	c.cfg = cfg
	c.inited = true
	c.debug("init",
		slog.Int("phase", cfg.Phase),
		slog.Int("polarity", cfg.Polarity),
		slog.Int("slave", cfg.Slave))
	return nil
}

// Config returns the configuration latched by the most recent Init.
// If the most recent Init failed, the zero Config is returned.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Transfer shifts out each byte of packet in turn, then returns the contents
// of the receive FIFO.
//
// Each byte is shifted individually, with the slave selected and the master
// transaction inhibit cleared only while that byte is shifting.
// An empty packet only drains the receive FIFO.
func (c *Controller) Transfer(packet []byte) ([]byte, error) {
	return c.TransferContext(context.Background(), packet)
}

// TransferContext is Transfer with the polling loops bounded by ctx.
func (c *Controller) TransferContext(ctx context.Context, packet []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inited {
		return nil, ErrNotInitialized
	}
	ss := SlaveSelect(c.cfg.Slave)
	for i, b := range packet {
		if err := c.shift(ctx, b, ss); err != nil {
			c.abort()
			return nil, errors.Wrapf(err, "shift byte %d", i)
		}
	}
	if err := c.write(SSR, SSRNone); err != nil {
		return nil, err
	}
	rx, err := c.drain(ctx)
	if err != nil {
		return nil, err
	}
	c.trace("transfer", slog.Int("tx", len(packet)), slog.Int("rx", len(rx)))
	return rx, nil
}

// Drain returns the contents of the receive FIFO without shifting.
func (c *Controller) Drain() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drain(context.Background())
}

// Dump returns the current contents of the control and status registers.
func (c *Controller) Dump() (Control, Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctrl, err := c.read(SPICR)
	if err != nil {
		return 0, 0, err
	}
	stat, err := c.status()
	if err != nil {
		return 0, 0, err
	}
	return Control(ctrl), stat, nil
}

// shift queues one byte and shifts it while the slave is selected.
func (c *Controller) shift(ctx context.Context, b byte, ss uint32) error {
	if err := c.write(DTR, uint32(b)); err != nil {
		return err
	}
	if err := c.write(SSR, ss); err != nil {
		return err
	}
	if err := c.modify(func(v Control) Control {
		return v.Clear(CtrlInhibit)
	}); err != nil {
		return err
	}
	if err := c.poll(ctx, "tx empty", Status.TxEmpty); err != nil {
		return err
	}
	return c.modify(func(v Control) Control {
		return v.Set(CtrlInhibit)
	})
}

// abort makes a best effort to stop shifting and release the slave after a
// failed shift.
func (c *Controller) abort() {
	err := c.modify(func(v Control) Control {
		return v.Set(CtrlInhibit)
	})
	if err == nil {
		err = c.write(SSR, SSRNone)
	}
	if err != nil {
		c.logerr("abort", slog.String("err", err.Error()))
	}
}

func (c *Controller) drain(ctx context.Context) ([]byte, error) {
	var rx []byte
	for {
		s, err := c.status()
		if err != nil {
			return nil, err
		}
		if s.RxEmpty() {
			return rx, nil
		}
		if c.fifoDepth > 0 && len(rx) >= c.fifoDepth {
			return nil, errors.Wrapf(ErrFIFOOverrun, "drained %d entries", len(rx))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := c.read(DRR)
		if err != nil {
			return nil, err
		}
		rx = append(rx, byte(v))
	}
}

// poll reads the status register until done returns true, or the poll
// limits are exceeded.
func (c *Controller) poll(ctx context.Context, what string, done func(Status) bool) error {
	var deadline time.Time
	if c.timeout > 0 {
		deadline = c.now().Add(c.timeout)
	}
	for n := 1; ; n++ {
		s, err := c.status()
		if err != nil {
			return err
		}
		if done(s) {
			return nil
		}
		if c.maxPolls > 0 && n >= c.maxPolls {
			return errors.Wrapf(ErrTimeout, "%s after %d polls", what, n)
		}
		if !deadline.IsZero() && c.now().After(deadline) {
			return errors.Wrapf(ErrTimeout, "%s after %s", what, c.timeout)
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, what)
		}
	}
}

// modify performs a read-modify-write of the control register.
func (c *Controller) modify(fn func(Control) Control) error {
	v, err := c.read(SPICR)
	if err != nil {
		return err
	}
	return c.write(SPICR, uint32(fn(Control(v))))
}

func (c *Controller) status() (Status, error) {
	v, err := c.read(SPISR)
	return Status(v), err
}

func (c *Controller) read(offset uint32) (uint32, error) {
	v, err := c.regs.Read(offset)
	if err != nil {
		return 0, &RegisterError{Op: "read", Offset: offset, Err: err}
	}
	return v, nil
}

func (c *Controller) write(offset, value uint32) error {
	if err := c.regs.Write(offset, value); err != nil {
		return &RegisterError{Op: "write", Offset: offset, Err: err}
	}
	return nil
}
