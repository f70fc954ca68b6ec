package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tnqbao/gau-stitch-service/entity"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobAlreadyExists = errors.New("job already exists")
)

// mirrorTTL bounds how long job snapshots live in the Redis mirror. The
// in-memory registry itself never evicts.
const mirrorTTL = 24 * time.Hour

// SnapshotMirror is the cache surface the registry mirrors snapshots through.
// infra.RedisClient satisfies it.
type SnapshotMirror interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// JobRepository is the registry of stitching jobs. Records are immutable
// snapshots: readers receive clones, and the single writing worker replaces
// the whole record through Update under the registry lock, so no Job field
// is ever observed mid-mutation. An optional Redis mirror backs status
// queries across processes; mirror failures are logged and never fail the
// operation.
type JobRepository struct {
	mu    sync.RWMutex
	jobs  map[uuid.UUID]*entity.Job
	cache SnapshotMirror
}

func NewJobRepository(cache SnapshotMirror) *JobRepository {
	return &JobRepository{
		jobs:  make(map[uuid.UUID]*entity.Job),
		cache: cache,
	}
}

func mirrorKey(id uuid.UUID) string {
	return "stitch:job:" + id.String()
}

// Create registers a new job. The id must never have been issued before.
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	r.mu.Lock()
	if _, exists := r.jobs[job.ID]; exists {
		r.mu.Unlock()
		return ErrJobAlreadyExists
	}
	snapshot := job.Clone()
	r.jobs[job.ID] = snapshot
	r.mu.Unlock()

	r.mirror(ctx, snapshot)
	return nil
}

// FindByID returns a snapshot of the job. When a mirror is configured and the
// local snapshot is not terminal, the mirror is consulted as well and the
// snapshot that is further along wins: in the queue deployment this process
// only created the job, and the consumer process advancing it is visible
// solely through the mirror.
func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()

	var local *entity.Job
	if ok {
		local = job.Clone()
		if r.cache == nil || local.Status.Terminal() {
			return local, nil
		}
	}
	if r.cache == nil {
		return nil, ErrJobNotFound
	}

	var mirrored entity.Job
	if err := r.cache.Get(ctx, mirrorKey(id), &mirrored); err != nil {
		if local != nil {
			return local, nil
		}
		return nil, ErrJobNotFound
	}
	if local == nil || aheadOf(&mirrored, local) {
		return &mirrored, nil
	}
	return local, nil
}

// aheadOf reports whether a is further along the job lifecycle than b.
func aheadOf(a, b *entity.Job) bool {
	if a.Status.Terminal() != b.Status.Terminal() {
		return a.Status.Terminal()
	}
	return a.Progress > b.Progress
}

// Update applies mutate to a clone of the current record and swaps it in,
// enforcing the lifecycle invariants: terminal states are never left,
// progress never decreases, and completedAt is stamped exactly once on the
// transition into a terminal state.
func (r *JobRepository) Update(ctx context.Context, id uuid.UUID, mutate func(*entity.Job)) (*entity.Job, error) {
	r.mu.Lock()
	current, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrJobNotFound
	}
	if current.Status.Terminal() {
		r.mu.Unlock()
		return nil, fmt.Errorf("job %s is already %s", id, current.Status)
	}

	next := current.Clone()
	mutate(next)

	if next.Progress < current.Progress {
		next.Progress = current.Progress
	}
	if next.Progress > 100 {
		next.Progress = 100
	}
	if next.Status.Terminal() && next.CompletedAt == nil {
		now := time.Now()
		next.CompletedAt = &now
	}

	r.jobs[id] = next
	r.mu.Unlock()

	r.mirror(ctx, next)
	return next.Clone(), nil
}

// Adopt inserts a job record received from the queue when this process did
// not create it. Re-delivery of an already-known job is not an error.
func (r *JobRepository) Adopt(ctx context.Context, job *entity.Job) {
	r.mu.Lock()
	if _, exists := r.jobs[job.ID]; !exists {
		r.jobs[job.ID] = job.Clone()
	}
	r.mu.Unlock()
}

// Count reports the number of registered jobs.
func (r *JobRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *JobRepository) mirror(ctx context.Context, job *entity.Job) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, mirrorKey(job.ID), job, mirrorTTL); err != nil {
		slog.Warn("failed to mirror job snapshot", "job_id", job.ID, "error", err)
	}
}
