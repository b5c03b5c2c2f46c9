package offline

import (
	"context"
	"log"
	"sync"
	"time"

	"dukapos/backend/internal/connectivity"
	"dukapos/backend/internal/store"
)

// Status is the offline snapshot the POS front end polls to drive its
// banner: whether the remote store is reachable, whether a sync pass is in
// flight, and how many operations still wait in the queue.
type Status struct {
	Online     bool `json:"online"`
	Syncing    bool `json:"syncing"`
	QueueCount int  `json:"queue_count"`
}

// Coordinator watches connectivity transitions and drains the operation
// queue against the remote store whenever the link comes back. Sync passes
// are serialized: only the coordinator's run loop starts them.
type Coordinator struct {
	queue        *Queue
	remote       store.RecordStore
	monitor      *connectivity.Monitor
	pollInterval time.Duration

	mu         sync.RWMutex
	syncing    bool
	queueCount int
}

func NewCoordinator(queue *Queue, remote store.RecordStore, monitor *connectivity.Monitor, pollInterval time.Duration) *Coordinator {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &Coordinator{
		queue:        queue,
		remote:       remote,
		monitor:      monitor,
		pollInterval: pollInterval,
	}
}

// Run blocks until ctx is done. The queue is drained once at startup when
// the link is already up, then on every offline->online transition. The
// tick only keeps the pending count fresh; an operation that failed a pass
// waits for the next transition or a manual SyncNow.
func (c *Coordinator) Run(ctx context.Context) {
	c.refreshCount(ctx)
	if c.monitor.Online() {
		c.drain(ctx)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case online := <-c.monitor.Events():
			if online {
				c.drain(ctx)
			} else {
				log.Println("[sync] remote store unreachable, mutations will queue locally")
			}
		case <-ticker.C:
			c.refreshCount(ctx)
		}
	}
}

func (c *Coordinator) Status(ctx context.Context) Status {
	c.refreshCount(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Online:     c.monitor.Online(),
		Syncing:    c.syncing,
		QueueCount: c.queueCount,
	}
}

// QueueOperation enqueues a mutation without attempting dispatch; it will
// be replayed by the next sync pass. The tracked queue count is refreshed
// immediately.
func (c *Coordinator) QueueOperation(ctx context.Context, typ OpType, table string, payload store.Record) (string, error) {
	id, err := c.queue.Add(ctx, typ, table, payload)
	if err != nil {
		return "", err
	}
	c.refreshCount(ctx)
	return id, nil
}

// PendingOperations exposes the queue contents for inspection.
func (c *Coordinator) PendingOperations(ctx context.Context) ([]Operation, error) {
	return c.queue.GetAll(ctx)
}

// SyncNow runs one sync pass immediately, for the manual retry endpoint.
// It is a no-op returning zero counts while another pass is in flight.
func (c *Coordinator) SyncNow(ctx context.Context) (SyncResult, error) {
	return c.runSync(ctx)
}

func (c *Coordinator) drain(ctx context.Context) {
	count, err := c.queue.Count(ctx)
	if err != nil {
		log.Printf("[sync] cannot read queue: %v", err)
		return
	}
	if count == 0 {
		return
	}

	log.Printf("[sync] draining %d queued operation(s)", count)
	result, err := c.runSync(ctx)
	if err != nil {
		log.Printf("[sync] pass aborted: %v", err)
		return
	}
	log.Printf("[sync] pass done: %d replayed, %d still queued", result.Success, result.Failed)
}

func (c *Coordinator) runSync(ctx context.Context) (SyncResult, error) {
	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		return SyncResult{}, nil
	}
	c.syncing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.syncing = false
		c.mu.Unlock()
	}()

	result, err := c.queue.Sync(ctx, c.remote)
	c.refreshCount(ctx)
	return result, err
}

func (c *Coordinator) refreshCount(ctx context.Context) {
	count, err := c.queue.Count(ctx)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.queueCount = count
	c.mu.Unlock()
}
