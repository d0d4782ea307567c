package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/uptcauth/internal/logging"
)

// Dispatcher sends mail on a fixed pool of workers so request handlers never
// wait on a mail server. Enqueueing never blocks: a full queue drops the
// message and logs it.
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	workers int
	timeout time.Duration
	log     logging.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, workers, queueSize int, timeout time.Duration, log logging.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, queueSize),
		workers: workers,
		timeout: timeout,
		log:     log.With("module", "dispatcher"),
	}
}

// Start launches the workers. They stop once Close is called and the queue
// has drained. In-flight sends are not cancelled together with ctx; each one
// is bounded by the per-message timeout instead.
func (d *Dispatcher) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			for m := range d.queue {
				d.deliver(base, id, m)
			}
		}(i)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, m Message) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := d.sender.Send(ctx, m); err != nil {
		d.log.Error(ctx, "mail send failed", "worker", worker, "to", m.To, "subject", m.Subject, "error", err)
		return
	}
	d.log.Debug(ctx, "mail sent", "worker", worker, "to", m.To, "took", time.Since(start).String())
}

// Dispatch queues m and reports whether it was accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn(ctx, "mail dropped", "to", m.To, "error", ErrQueueClosed)
		return false
	}

	select {
	case d.queue <- m:
		return true
	default:
		d.log.Warn(ctx, "mail queue full, dropping message", "to", m.To, "subject", m.Subject)
		return false
	}
}

// Close stops accepting messages. Queued ones are still delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
}

// Wait blocks until the workers have drained the queue after Close.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
