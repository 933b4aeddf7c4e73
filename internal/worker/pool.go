package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/mtr002/notify-dispatcher/internal/interfaces"
	"github.com/mtr002/notify-dispatcher/internal/logger"
	"github.com/mtr002/notify-dispatcher/internal/metrics"
)

// ErrPoolStopped is returned when a batch is submitted after Stop
var ErrPoolStopped = errors.New("worker pool stopped")

// BatchRunner runs one batch to completion
type BatchRunner interface {
	Run(ctx context.Context, batch *interfaces.Batch)
}

// Pool hands batches to a fixed set of workers.
// Each batch is owned by exactly one worker goroutine until it is released.
type Pool struct {
	runner      BatchRunner
	queue       chan *interfaces.Batch
	done        chan struct{}
	wg          sync.WaitGroup
	senders     sync.WaitGroup
	workerCount int

	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewPool creates a worker pool with a bounded batch queue
func NewPool(runner BatchRunner, workerCount, queueSize int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = workerCount
	}

	return &Pool{
		runner:      runner,
		queue:       make(chan *interfaces.Batch, queueSize),
		done:        make(chan struct{}),
		workerCount: workerCount,
	}
}

// Start begins processing batches with the configured number of workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	logger.Logger.Info().Int("worker_count", p.workerCount).Msg("Starting worker pool")
	metrics.ActiveWorkers.Set(float64(p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit transfers ownership of batch to the pool.
// It blocks while the queue is full. A Submit still blocked when Stop is
// called returns ErrPoolStopped and the caller keeps the batch.
func (p *Pool) Submit(batch *interfaces.Batch) error {
	if batch == nil {
		return interfaces.ErrEmptyBatch
	}
	if batch.Released() {
		return interfaces.ErrBatchReleased
	}
	if batch.Len() == 0 {
		return interfaces.ErrEmptyBatch
	}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrPoolStopped
	}
	p.senders.Add(1)
	p.mu.RUnlock()
	defer p.senders.Done()

	metrics.PendingBatches.Inc()
	select {
	case p.queue <- batch:
		return nil
	case <-p.done:
		metrics.PendingBatches.Dec()
		return ErrPoolStopped
	}
}

// Stop refuses new batches and waits until every queued batch is processed
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.done)
	started := p.started
	p.mu.Unlock()

	logger.Logger.Info().Msg("Stopping worker pool")
	// queue is closed only once no Submit can still send on it
	p.senders.Wait()
	close(p.queue)
	if !started {
		for batch := range p.queue {
			metrics.PendingBatches.Dec()
			p.runner.Run(context.Background(), batch)
		}
	}
	p.wg.Wait()
	metrics.ActiveWorkers.Set(0)
	logger.Logger.Info().Msg("Worker pool stopped")
}

// Running reports whether the pool accepts batches and has workers
func (p *Pool) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started && !p.stopped
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger.Logger.Info().Int("worker_id", id).Msg("Worker started")

	for batch := range p.queue {
		metrics.PendingBatches.Dec()
		logger.Logger.Debug().Int("worker_id", id).Str("batch_id", batch.ID).Msg("Worker took batch")
		p.runner.Run(context.Background(), batch)
	}

	logger.Logger.Info().Int("worker_id", id).Msg("Worker shutting down")
}
