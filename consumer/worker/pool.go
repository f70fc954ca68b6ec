package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-stitch-service/entity"
)

// ErrPoolClosed is returned by Dispatch after the pool has been shut down.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool is the in-process job queue: a fixed number of workers fed by a
// channel, capping how many engine calls run at once no matter how fast
// submissions arrive.
type Pool struct {
	processor *Processor
	tasks     chan uuid.UUID
	workers   int

	startOnce sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
}

func NewPool(processor *Processor, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		processor: processor,
		tasks:     make(chan uuid.UUID, workers*4),
		workers:   workers,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				for jobID := range p.tasks {
					p.processor.Process(ctx, jobID)
				}
			}()
		}
	})
}

// Dispatch schedules the job and returns immediately; the submission path
// never blocks on processing unless the queue buffer is full.
func (p *Pool) Dispatch(ctx context.Context, job *entity.Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- job.ID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight jobs to finish. Engine
// calls are not interruptible, so this blocks until they return.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.tasks)
		p.wg.Wait()
	})
}
