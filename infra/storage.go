package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tnqbao/gau-stitch-service/config"
)

// ErrArtifactNotFound is returned by ArtifactStore lookups when the artifact
// does not exist on the backing storage.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore is the job-scoped artifact storage contract. Inputs are
// written once by the submission handler and read by the worker; the output
// is written once by the worker and read by the download handler. No path is
// ever written concurrently.
type ArtifactStore interface {
	SaveInput(ctx context.Context, jobID, filename string, r io.Reader, size int64) error
	InputExists(ctx context.Context, jobID, filename string) bool
	OpenInput(ctx context.Context, jobID, filename string) (io.ReadCloser, error)
	SaveOutput(ctx context.Context, jobID string, r io.Reader) (int64, error)
	OpenOutput(ctx context.Context, jobID string) (io.ReadCloser, int64, error)
	OutputSize(ctx context.Context, jobID string) (int64, error)
}

// OutputFilename is the canonical name of a job's composite artifact.
func OutputFilename(jobID string) string {
	return fmt.Sprintf("panorama_%s.jpg", jobID)
}

// LocalStorageClient keeps artifacts on the local filesystem: one upload
// directory per job and a flat output directory, mirroring the layout the
// service has always used.
type LocalStorageClient struct {
	uploadDir string
	outputDir string
}

func InitLocalStorageClient(cfg *config.EnvConfig) *LocalStorageClient {
	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(fmt.Sprintf("Failed to create storage directory %s: %v", dir, err))
		}
	}
	return &LocalStorageClient{
		uploadDir: cfg.Storage.UploadDir,
		outputDir: cfg.Storage.OutputDir,
	}
}

func NewLocalStorageClient(uploadDir, outputDir string) (*LocalStorageClient, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &LocalStorageClient{uploadDir: uploadDir, outputDir: outputDir}, nil
}

func (s *LocalStorageClient) inputPath(jobID, filename string) string {
	return filepath.Join(s.uploadDir, jobID, filename)
}

func (s *LocalStorageClient) outputPath(jobID string) string {
	return filepath.Join(s.outputDir, OutputFilename(jobID))
}

func (s *LocalStorageClient) SaveInput(ctx context.Context, jobID, filename string, r io.Reader, size int64) error {
	jobDir := filepath.Join(s.uploadDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	f, err := os.Create(s.inputPath(jobID, filename))
	if err != nil {
		return fmt.Errorf("failed to create input artifact: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write input artifact: %w", err)
	}
	return nil
}

func (s *LocalStorageClient) InputExists(ctx context.Context, jobID, filename string) bool {
	_, err := os.Stat(s.inputPath(jobID, filename))
	return err == nil
}

func (s *LocalStorageClient) OpenInput(ctx context.Context, jobID, filename string) (io.ReadCloser, error) {
	f, err := os.Open(s.inputPath(jobID, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *LocalStorageClient) SaveOutput(ctx context.Context, jobID string, r io.Reader) (int64, error) {
	f, err := os.Create(s.outputPath(jobID))
	if err != nil {
		return 0, fmt.Errorf("failed to create output artifact: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write output artifact: %w", err)
	}
	return written, nil
}

func (s *LocalStorageClient) OpenOutput(ctx context.Context, jobID string) (io.ReadCloser, int64, error) {
	path := s.outputPath(jobID)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrArtifactNotFound
		}
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func (s *LocalStorageClient) OutputSize(ctx context.Context, jobID string) (int64, error) {
	info, err := os.Stat(s.outputPath(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrArtifactNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}
