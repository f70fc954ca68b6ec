package infra

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tnqbao/gau-stitch-service/config"
)

// MinioClient is the object-storage backed ArtifactStore. Inputs live under
// uploads/<job_id>/, outputs under outputs/. Used when replicas must share
// artifacts; the local backend remains the default.
type MinioClient struct {
	Client   *minio.Client
	Bucket   string
	Endpoint string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}
	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}
	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: false,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	m := &MinioClient{
		Client:   client,
		Bucket:   cfg.Storage.Bucket,
		Endpoint: endpoint,
	}
	if err := m.ensureBucket(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to ensure MinIO bucket: %v", err))
	}
	return m
}

func (m *MinioClient) ensureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (m *MinioClient) inputKey(jobID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s", jobID, filename)
}

func (m *MinioClient) outputKey(jobID string) string {
	return fmt.Sprintf("outputs/%s", OutputFilename(jobID))
}

func (m *MinioClient) SaveInput(ctx context.Context, jobID, filename string, r io.Reader, size int64) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, m.inputKey(jobID, filename), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to store input artifact: %w", err)
	}
	return nil
}

func (m *MinioClient) InputExists(ctx context.Context, jobID, filename string) bool {
	_, err := m.Client.StatObject(ctx, m.Bucket, m.inputKey(jobID, filename), minio.StatObjectOptions{})
	return err == nil
}

func (m *MinioClient) OpenInput(ctx context.Context, jobID, filename string) (io.ReadCloser, error) {
	obj, err := m.Client.GetObject(ctx, m.Bucket, m.inputKey(jobID, filename), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	// GetObject is lazy; surface missing objects now.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioErr(err)
	}
	return obj, nil
}

func (m *MinioClient) SaveOutput(ctx context.Context, jobID string, r io.Reader) (int64, error) {
	info, err := m.Client.PutObject(ctx, m.Bucket, m.outputKey(jobID), r, -1, minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store output artifact: %w", err)
	}
	return info.Size, nil
}

func (m *MinioClient) OpenOutput(ctx context.Context, jobID string) (io.ReadCloser, int64, error) {
	obj, err := m.Client.GetObject(ctx, m.Bucket, m.outputKey(jobID), minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, mapMinioErr(err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, mapMinioErr(err)
	}
	return obj, stat.Size, nil
}

func (m *MinioClient) OutputSize(ctx context.Context, jobID string) (int64, error) {
	stat, err := m.Client.StatObject(ctx, m.Bucket, m.outputKey(jobID), minio.StatObjectOptions{})
	if err != nil {
		return 0, mapMinioErr(err)
	}
	return stat.Size, nil
}

func mapMinioErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || strings.Contains(err.Error(), "does not exist") {
		return ErrArtifactNotFound
	}
	return err
}
