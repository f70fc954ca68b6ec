package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-stitch-service/entity"
	"github.com/tnqbao/gau-stitch-service/infra"
	"github.com/tnqbao/gau-stitch-service/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Processor runs the stitching pipeline for one job at a time. It is the
// only writer of a job's record after creation; every state change goes
// through the repository so readers always observe a consistent snapshot.
// A job is processed exactly once: there is no retry, and a failed job is
// terminal.
type Processor struct {
	repository *repository.Repository
	store      infra.ArtifactStore
	engine     infra.StitchEngine
	logger     *infra.LoggerClient
	maxWidth   int

	tracer        trace.Tracer
	jobsCompleted metric.Int64Counter
	jobsFailed    metric.Int64Counter
}

func NewProcessor(repo *repository.Repository, store infra.ArtifactStore, engine infra.StitchEngine, logger *infra.LoggerClient, maxWidth int) *Processor {
	if maxWidth <= 0 {
		maxWidth = 2000
	}

	meter := otel.Meter("gau-stitch-service/worker")
	jobsCompleted, _ := meter.Int64Counter("stitch.jobs.completed")
	jobsFailed, _ := meter.Int64Counter("stitch.jobs.failed")

	return &Processor{
		repository:    repo,
		store:         store,
		engine:        engine,
		logger:        logger,
		maxWidth:      maxWidth,
		tracer:        otel.Tracer("gau-stitch-service/worker"),
		jobsCompleted: jobsCompleted,
		jobsFailed:    jobsFailed,
	}
}

// Process drives one job from pending to a terminal state. Any fault is
// contained here: the job ends failed with a best-effort message and the
// error never propagates to the submission path.
func (p *Processor) Process(ctx context.Context, jobID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorWithContextf(ctx, nil, "[Stitch Worker] Panic while processing job %s: %v", jobID, r)
			p.failJob(ctx, jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	job, err := p.repository.JobRepo.FindByID(ctx, jobID)
	if err != nil {
		p.logger.ErrorWithContextf(ctx, err, "[Stitch Worker] Job %s not found, dropping", jobID)
		return
	}

	p.logger.InfoWithContextf(ctx, "[Stitch Worker] Processing job %s (%d images, mode=%s)", jobID, len(job.Inputs), job.Mode)

	if _, err := p.repository.JobRepo.Update(ctx, jobID, func(j *entity.Job) {
		j.Status = entity.JobStatusProcessing
		j.Progress = 10
	}); err != nil {
		p.logger.ErrorWithContextf(ctx, err, "[Stitch Worker] Failed to mark job %s processing", jobID)
		return
	}

	// Inputs may have vanished between submission and execution; drop the
	// missing ones and require at least two survivors.
	validInputs := make([]string, 0, len(job.Inputs))
	for _, name := range job.Inputs {
		if p.store.InputExists(ctx, job.ID.String(), name) {
			validInputs = append(validInputs, name)
		}
	}
	if len(validInputs) < 2 {
		p.failJob(ctx, jobID, "not enough valid images")
		return
	}

	p.setProgress(ctx, jobID, 30)

	// Lexicographic order stands in for capture order; the engine has no
	// other hint about the spatial sequence.
	sort.Strings(validInputs)

	p.setProgress(ctx, jobID, 40)

	images, err := p.loadImages(ctx, job.ID.String(), validInputs)
	if err != nil {
		p.failJob(ctx, jobID, err.Error())
		return
	}

	engineCtx, span := p.tracer.Start(ctx, "engine.stitch", trace.WithAttributes(
		attribute.String("job.id", jobID.String()),
		attribute.String("stitch.mode", string(job.Mode)),
		attribute.Int("stitch.images", len(images)),
	))
	composite, err := p.engine.Stitch(engineCtx, images, job.Mode, job.Options)
	span.End()
	if err != nil {
		p.failJob(ctx, jobID, err.Error())
		return
	}

	p.setProgress(ctx, jobID, 80)

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, composite, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		p.failJob(ctx, jobID, fmt.Sprintf("failed to encode result: %v", err))
		return
	}
	size, err := p.store.SaveOutput(ctx, job.ID.String(), &encoded)
	if err != nil {
		p.failJob(ctx, jobID, fmt.Sprintf("failed to save output image: %v", err))
		return
	}

	if _, err := p.repository.JobRepo.Update(ctx, jobID, func(j *entity.Job) {
		j.Status = entity.JobStatusCompleted
		j.Progress = 100
		j.OutputFile = infra.OutputFilename(jobID.String())
	}); err != nil {
		p.logger.ErrorWithContextf(ctx, err, "[Stitch Worker] Failed to complete job %s", jobID)
		return
	}

	p.jobsCompleted.Add(ctx, 1)
	p.logger.InfoWithContextf(ctx, "[Stitch Worker] Job %s completed (%d bytes)", jobID, size)
}

// loadImages decodes each input and downscales anything wider than the
// ceiling, preserving aspect ratio, to bound the engine's memory and CPU
// cost.
func (p *Processor) loadImages(ctx context.Context, jobID string, inputs []string) ([]image.Image, error) {
	images := make([]image.Image, 0, len(inputs))
	for _, name := range inputs {
		rc, err := p.store.OpenInput(ctx, jobID, name)
		if err != nil {
			return nil, fmt.Errorf("cannot load image %s: %v", name, err)
		}
		img, err := imaging.Decode(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot decode image %s: %v", name, err)
		}
		if img.Bounds().Dx() > p.maxWidth {
			img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
		}
		images = append(images, img)
	}
	return images, nil
}

func (p *Processor) setProgress(ctx context.Context, jobID uuid.UUID, progress int) {
	if _, err := p.repository.JobRepo.Update(ctx, jobID, func(j *entity.Job) {
		j.Progress = progress
	}); err != nil {
		p.logger.WarningWithContextf(ctx, "[Stitch Worker] Failed to update progress for job %s: %v", jobID, err)
	}
}

// failJob moves the job to its terminal failed state. Progress stays at the
// last milestone reached.
func (p *Processor) failJob(ctx context.Context, jobID uuid.UUID, message string) {
	p.jobsFailed.Add(ctx, 1)
	p.logger.WarningWithContextf(ctx, "[Stitch Worker] Job %s failed: %s", jobID, message)
	if _, err := p.repository.JobRepo.Update(ctx, jobID, func(j *entity.Job) {
		j.Status = entity.JobStatusFailed
		j.ErrorMessage = message
	}); err != nil {
		p.logger.ErrorWithContextf(ctx, err, "[Stitch Worker] Failed to mark job %s failed", jobID)
	}
}
