package worker

import (
	"bytes"
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-stitch-service/config"
	"github.com/tnqbao/gau-stitch-service/entity"
	"github.com/tnqbao/gau-stitch-service/infra"
	"github.com/tnqbao/gau-stitch-service/repository"
)

type fakeEngine struct {
	stitch func(ctx context.Context, images []image.Image, mode entity.StitchMode, opts entity.StitchOptions) (image.Image, error)
	calls  [][]int // widths of the images received, per call
}

func (f *fakeEngine) Stitch(ctx context.Context, images []image.Image, mode entity.StitchMode, opts entity.StitchOptions) (image.Image, error) {
	widths := make([]int, len(images))
	for i, img := range images {
		widths[i] = img.Bounds().Dx()
	}
	f.calls = append(f.calls, widths)
	if f.stitch != nil {
		return f.stitch(ctx, images, mode, opts)
	}
	return imaging.New(100, 40, image.White.C), nil
}

func (f *fakeEngine) Health(ctx context.Context) (*infra.EngineHealth, error) {
	return &infra.EngineHealth{Status: "ok", EngineVersion: "4.9.0"}, nil
}

func newTestLogger(t *testing.T) *infra.LoggerClient {
	t.Helper()
	return infra.InitLoggerClient(&config.EnvConfig{})
}

func newTestStore(t *testing.T) *infra.LocalStorageClient {
	t.Helper()
	tmp := t.TempDir()
	store, err := infra.NewLocalStorageClient(filepath.Join(tmp, "uploads"), filepath.Join(tmp, "outputs"))
	require.NoError(t, err)
	return store
}

func saveTestImage(t *testing.T, store infra.ArtifactStore, jobID, name string, width int) {
	t.Helper()
	img := imaging.New(width, 10, image.White.C)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	require.NoError(t, store.SaveInput(context.Background(), jobID, name, &buf, int64(buf.Len())))
}

func newTestJob(t *testing.T, repo *repository.Repository, inputs []string) *entity.Job {
	t.Helper()
	job := entity.NewJob(uuid.New(), inputs, entity.ModePanorama, entity.DefaultStitchOptions())
	require.NoError(t, repo.JobRepo.Create(context.Background(), job))
	return job
}

func TestProcessor_Process_Completes(t *testing.T) {
	ctx := context.Background()
	repo := &repository.Repository{JobRepo: repository.NewJobRepository(nil)}
	store := newTestStore(t)
	engine := &fakeEngine{}
	processor := NewProcessor(repo, store, engine, newTestLogger(t), 2000)

	job := newTestJob(t, repo, []string{"left.jpg", "right.jpg"})
	saveTestImage(t, store, job.ID.String(), "left.jpg", 120)
	saveTestImage(t, store, job.ID.String(), "right.jpg", 140)

	processor.Process(ctx, job.ID)

	got, err := repo.JobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, entity.JobStatusCompleted, got.Status)
	require.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)
	require.Empty(t, got.ErrorMessage)
	require.Equal(t, infra.OutputFilename(job.ID.String()), got.OutputFile)

	size, err := store.OutputSize(ctx, job.ID.String())
	require.NoError(t, err)
	require.Greater(t, size, int64(0))

	rc, streamed, err := store.OpenOutput(ctx, job.ID.String())
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, size, streamed)
}

func TestProcessor_Process_SortsInputsByFilename(t *testing.T) {
	ctx := context.Background()
	repo := &repository.Repository{JobRepo: repository.NewJobRepository(nil)}
	store := newTestStore(t)
	engine := &fakeEngine{}
	processor := NewProcessor(repo, store, engine, newTestLogger(t), 2000)

	// Uploaded in order a, c, b; widths identify each file.
	job := newTestJob(t, repo, []string{"a.jpg", "c.jpg", "b.jpg"})
	saveTestImage(t, store, job.ID.String(), "a.jpg", 30)
	saveTestImage(t, store, job.ID.String(), "c.jpg", 50)
	saveTestImage(t, store, job.ID.String(), "b.jpg", 40)

	processor.Process(ctx, job.ID)

	require.Len(t, engine.calls, 1)
	require.Equal(t, []int{30, 40, 50}, engine.calls[0])
}

func TestProcessor_Process_DownscalesWideImages(t *testing.T) {
	ctx := context.Background()
	repo := &repository.Repository{JobRepo: repository.NewJobRepository(nil)}
	store := newTestStore(t)
	engine := &fakeEngine{}
	processor := NewProcessor(repo, store, engine, newTestLogger(t), 2000)

	job := newTestJob(t, repo, []string{"wide.jpg", "narrow.jpg"})
	saveTestImage(t, store, job.ID.String(), "wide.jpg", 2500)
	saveTestImage(t, store, job.ID.String(), "narrow.jpg", 800)

	processor.Process(ctx, job.ID)

	require.Len(t, engine.calls, 1)
	require.Equal(t, []int{800, 2000}, engine.calls[0])
}

func TestProcessor_Process_DropsMissingInputs(t *testing.T) {
	ctx := context.Background()
	repo := &repository.Repository{JobRepo: repository.NewJobRepository(nil)}
	store := newTestStore(t)
	engine := &fakeEngine{}
	processor := NewProcessor(repo, store, engine, newTestLogger(t), 2000)

	// Only one of the three referenced inputs exists on storage.
	job := newTestJob(t, repo, []string{"a.jpg", "b.jpg", "c.jpg"})
	saveTestImage(t, store, job.ID.String(), "a.jpg", 100)

	processor.Process(ctx, job.ID)

	got, err := repo.JobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, entity.JobStatusFailed, got.Status)
	require.Contains(t, got.ErrorMessage, "not enough valid images")
	require.NotNil(t, got.CompletedAt)
	require.Empty(t, engine.calls)
}

func TestProcessor_Process_EngineNeedMoreImages(t *testing.T) {
	ctx := context.Background()
	repo := &repository.Repository{JobRepo: repository.NewJobRepository(nil)}
	store := newTestStore(t)
	engine := &fakeEngine{
		stitch: func(ctx context.Context, images []image.Image, mode entity.StitchMode, opts entity.StitchOptions) (image.Image, error) {
			return nil, &infra.StitchError{Status: infra.StitchErrNeedMoreImages}
		},
	}
	processor := NewProcessor(repo, store, engine, newTestLogger(t), 2000)

	job := newTestJob(t, repo, []string{"a.jpg", "b.jpg"})
	saveTestImage(t, store, job.ID.String(), "a.jpg", 100)
	saveTestImage(t, store, job.ID.String(), "b.jpg", 100)

	processor.Process(ctx, job.ID)

	got, err := repo.JobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, entity.JobStatusFailed, got.Status)
	require.Contains(t, got.ErrorMessage, "need more images")
	// Progress stays at the last milestone reached before the engine call.
	require.Equal(t, 40, got.Progress)
}

func TestProcessor_Process_EnginePanicContained(t *testing.T) {
	ctx := context.Background()
	repo := &repository.Repository{JobRepo: repository.NewJobRepository(nil)}
	store := newTestStore(t)
	engine := &fakeEngine{
		stitch: func(ctx context.Context, images []image.Image, mode entity.StitchMode, opts entity.StitchOptions) (image.Image, error) {
			panic("engine blew up")
		},
	}
	processor := NewProcessor(repo, store, engine, newTestLogger(t), 2000)

	job := newTestJob(t, repo, []string{"a.jpg", "b.jpg"})
	saveTestImage(t, store, job.ID.String(), "a.jpg", 100)
	saveTestImage(t, store, job.ID.String(), "b.jpg", 100)

	require.NotPanics(t, func() {
		processor.Process(ctx, job.ID)
	})

	got, err := repo.JobRepo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, entity.JobStatusFailed, got.Status)
	require.Contains(t, got.ErrorMessage, "internal error")
}

func TestProcessor_Process_UnknownJobIsDropped(t *testing.T) {
	repo := &repository.Repository{JobRepo: repository.NewJobRepository(nil)}
	processor := NewProcessor(repo, newTestStore(t), &fakeEngine{}, newTestLogger(t), 2000)

	require.NotPanics(t, func() {
		processor.Process(context.Background(), uuid.New())
	})
}
