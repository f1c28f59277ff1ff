package tokengate

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples engine operations from the sink: events are
// queued on a bounded channel and delivered by a single worker goroutine, so
// a slow sink never sits on the login or refresh path. Backpressure policy
// comes from AuditConfig.DropIfFull; Config.Validate guarantees BufferSize
// is positive whenever audit is enabled.
type auditDispatcher struct {
	sink        AuditSink
	queue       chan AuditEvent
	done        chan struct{}
	wg          sync.WaitGroup
	dropped     atomic.Uint64
	blockOnFull bool
	closeOnce   sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:        sink,
		queue:       make(chan AuditEvent, cfg.BufferSize),
		done:        make(chan struct{}),
		blockOnFull: !cfg.DropIfFull,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain delivers whatever is still queued at close time. Events emitted
// concurrently with Close may be lost; audit is best-effort by contract.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit queues the event for delivery. In blocking mode it waits for queue
// space, the caller's context, or dispatcher shutdown, whichever comes
// first; in drop mode a full queue only bumps the dropped counter.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.blockOnFull {
		select {
		case d.queue <- event:
		case <-ctx.Done():
		case <-d.done:
		}
		return
	}

	select {
	case d.queue <- event:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Close stops the worker after draining the queue. Safe to call more than
// once; Emit after Close never blocks and delivers nothing.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full.
// Surfaced through [Engine.AuditDropped] and both metrics exporters.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
