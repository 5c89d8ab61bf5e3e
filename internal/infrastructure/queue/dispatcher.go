package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Handler consumes one session event.
type Handler func(ctx context.Context, ev domain.SessionEvent)

// DepthObserver is told the backlog of a worker after each enqueue.
type DepthObserver func(workerID string, depth int)

// Dispatcher routes session events to a fixed set of workers using
// consistent hashing on the session id, guaranteeing per-session ordering.
type Dispatcher struct {
	workers []chan domain.SessionEvent
	handler Handler
	observe DepthObserver
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler Handler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.SessionEvent, numWorkers),
		handler: handler,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SessionEvent, channelBuffer)
	}
	return d
}

// ObserveDepth installs fn to receive queue depth after every enqueue.
func (d *Dispatcher) ObserveDepth(fn DepthObserver) {
	d.observe = fn
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands ev to the worker owning its session id. It blocks once that
// worker's buffer is full.
func (d *Dispatcher) Enqueue(ev domain.SessionEvent) {
	idx := d.shardIndex(ev.SessionID)
	d.workers[idx] <- ev
	if d.observe != nil {
		d.observe(strconv.Itoa(idx), len(d.workers[idx]))
	}
}

// shardIndex maps a session id deterministically to a worker index.
func (d *Dispatcher) shardIndex(sid string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SessionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			d.dispatch(ctx, id, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, id int, ev domain.SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("sid", ev.SessionID).Int("worker_id", id).Msg("session event handler panicked")
		}
	}()
	d.handler(ctx, ev)
}
