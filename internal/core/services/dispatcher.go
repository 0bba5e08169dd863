package services

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/ports"
)

var (
	// ErrDispatcherStopped is returned by Submit after Stop.
	ErrDispatcherStopped = apperrors.ErrDispatcherStopped
	// ErrQueueFull is returned by Submit when the admission queue is at its limit.
	ErrQueueFull = apperrors.ErrQueueFull
)

// TicketAssigner is the part of the matcher the dispatcher drives.
type TicketAssigner interface {
	AssignTicket(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error)
}

type dispatchResult struct {
	record *domain.AssignmentRecord
	err    error
}

type dispatchRequest struct {
	ctx    context.Context
	ticket *domain.Ticket
	seq    uint64
	index  int
	done   chan dispatchResult
}

// dispatchQueue orders requests: high and critical first, then priority,
// urgency, impact, and arrival.
type dispatchQueue []*dispatchRequest

func (q dispatchQueue) Len() int { return len(q) }

func (q dispatchQueue) Less(i, j int) bool {
	a, b := q[i].ticket, q[j].ticket
	if ae, be := a.Priority.IsExpedited(), b.Priority.IsExpedited(); ae != be {
		return ae
	}
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	if a.Urgency.Rank() != b.Urgency.Rank() {
		return a.Urgency.Rank() > b.Urgency.Rank()
	}
	if a.Impact.Rank() != b.Impact.Rank() {
		return a.Impact.Rank() > b.Impact.Rank()
	}
	return q[i].seq < q[j].seq
}

func (q dispatchQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *dispatchQueue) Push(x any) {
	req := x.(*dispatchRequest)
	req.index = len(*q)
	*q = append(*q, req)
}

func (q *dispatchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// Dispatcher admits assignment requests in priority order and runs them on a
// fixed pool of workers. It never pre-empts an assignment already running.
type Dispatcher struct {
	assigner TicketAssigner
	observer ports.EngineObserver
	logger   *slog.Logger
	workers  int
	maxQueue int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   dispatchQueue
	seq     uint64
	started bool
	stopped bool
	wg      sync.WaitGroup
}

var _ ports.AssignmentDispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a stopped dispatcher; call Start to run workers.
// maxQueue <= 0 leaves the queue unbounded.
func NewDispatcher(assigner TicketAssigner, workers, maxQueue int, observer ports.EngineObserver, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		assigner: assigner,
		observer: observer,
		logger:   logger.With("component", "dispatcher"),
		workers:  workers,
		maxQueue: maxQueue,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(i)
	}
	d.logger.Info("dispatcher started", "workers", d.workers)
}

// Stop rejects new requests, fails queued ones and waits for running ones.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	pending := d.queue
	d.queue = nil
	for _, req := range pending {
		req.index = -1
	}
	d.cond.Broadcast()
	d.mu.Unlock()

	for _, req := range pending {
		req.done <- dispatchResult{err: ErrDispatcherStopped}
	}
	d.wg.Wait()
	d.logger.Info("dispatcher stopped", "dropped", len(pending))
}

// Ready reports whether workers are accepting requests.
func (d *Dispatcher) Ready() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.stopped:
		return ErrDispatcherStopped
	case !d.started:
		return errors.New("dispatcher not started")
	}
	return nil
}

// Submit queues ticket and waits for its assignment result. A request
// cancelled while still queued is withdrawn; one already picked up by a
// worker is waited for so that a reservation is never orphaned.
func (d *Dispatcher) Submit(ctx context.Context, ticket *domain.Ticket) (*domain.AssignmentRecord, error) {
	req := &dispatchRequest{
		ctx:    ctx,
		ticket: ticket,
		done:   make(chan dispatchResult, 1),
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil, ErrDispatcherStopped
	}
	if d.maxQueue > 0 && d.queue.Len() >= d.maxQueue {
		d.mu.Unlock()
		return nil, ErrQueueFull
	}
	d.seq++
	req.seq = d.seq
	heap.Push(&d.queue, req)
	depth := d.queue.Len()
	d.cond.Signal()
	d.mu.Unlock()

	d.observer.QueueDepth(depth)

	select {
	case res := <-req.done:
		return res.record, res.err
	case <-ctx.Done():
	}

	d.mu.Lock()
	if req.index >= 0 {
		heap.Remove(&d.queue, req.index)
		depth = d.queue.Len()
		d.mu.Unlock()
		d.observer.QueueDepth(depth)
		return nil, ctx.Err()
	}
	d.mu.Unlock()

	res := <-req.done
	return res.record, res.err
}

func (d *Dispatcher) run(worker int) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if d.stopped {
			d.mu.Unlock()
			return
		}
		req := heap.Pop(&d.queue).(*dispatchRequest)
		depth := d.queue.Len()
		d.mu.Unlock()

		d.observer.QueueDepth(depth)

		// The caller gave up while the request was queued.
		if err := req.ctx.Err(); err != nil {
			req.done <- dispatchResult{err: err}
			continue
		}

		record, err := d.assigner.AssignTicket(req.ctx, req.ticket)
		if err != nil {
			d.logger.DebugContext(req.ctx, "dispatch finished without assignment",
				"worker", worker,
				"ticket_id", req.ticket.ID,
				"error", err,
			)
		}
		req.done <- dispatchResult{record: record, err: err}
	}
}
