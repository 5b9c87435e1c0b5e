package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// ticker is the unit of work the driver executes each tick.
type ticker interface {
	RunTick(ctx context.Context, sess *Session)
}

// Driver runs the periodic processing loop. Exactly one tick executes at a
// time: a tick requested while another is running is dropped, not queued.
type Driver struct {
	manager  ticker
	interval time.Duration
	log      *slog.Logger

	busy       atomic.Bool
	processNew atomic.Bool
	ignore     *IgnoreList
	kick       chan struct{}
}

// NewDriver creates a Driver ticking at the given interval.
func NewDriver(manager ticker, interval time.Duration, logger *slog.Logger) *Driver {
	return &Driver{
		manager:  manager,
		interval: interval,
		log:      logger.With("component", "driver"),
		ignore:   NewIgnoreList(),
		kick:     make(chan struct{}, 1),
	}
}

// Run blocks until ctx is canceled, ticking on the interval and whenever a
// manual start kicks the loop.
func (d *Driver) Run(ctx context.Context) {
	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.TryTick(ctx)
		case <-d.kick:
			d.TryTick(ctx)
		}
	}
}

// TryTick runs one tick unless one is already in flight. Reports whether the
// tick ran. The process-new flag applies to this run only and is cleared
// even if the tick panics.
func (d *Driver) TryTick(ctx context.Context) bool {
	if !d.busy.CompareAndSwap(false, true) {
		return false
	}
	defer d.busy.Store(false)

	sess := NewSession(d.processNew.Load(), d.ignore, func() { d.processNew.Store(false) })
	defer d.processNew.Store(false)

	d.log.Info("tick start", "session", sess.ID, "process_new", sess.ProcessNew)
	d.manager.RunTick(ctx, sess)
	d.log.Info("tick done", "session", sess.ID)
	return true
}

// RequestStart arms the process-new flag for the next run and kicks the
// loop. Returns false when a tick is already in flight.
func (d *Driver) RequestStart() bool {
	if d.busy.Load() {
		return false
	}
	d.ignore.Clear()
	d.processNew.Store(true)
	select {
	case d.kick <- struct{}{}:
	default:
	}
	return true
}

// RequestStop clears the process-new flag. The current action, if any, runs
// to completion. Returns false when the bot was already idle.
func (d *Driver) RequestStop() bool {
	wasActive := d.processNew.Load() || d.busy.Load()
	d.processNew.Store(false)
	return wasActive
}

// Busy reports whether a tick is currently running.
func (d *Driver) Busy() bool { return d.busy.Load() }
