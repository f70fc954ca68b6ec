package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseStitchMode(t *testing.T) {
	for raw, want := range map[string]StitchMode{
		"":         ModePanorama,
		"panorama": ModePanorama,
		"PANORAMA": ModePanorama,
		" scans ":  ModeScans,
		"Scans":    ModeScans,
	} {
		got, err := ParseStitchMode(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"auto", "affine", "panoramas", "0"} {
		_, err := ParseStitchMode(raw)
		require.Error(t, err, raw)
		require.Contains(t, err.Error(), "invalid mode")
	}
}

func TestNewJob(t *testing.T) {
	id := uuid.New()
	job := NewJob(id, []string{"a.jpg", "b.jpg"}, ModeScans, DefaultStitchOptions())

	require.Equal(t, id, job.ID)
	require.Equal(t, JobStatusPending, job.Status)
	require.Equal(t, 0, job.Progress)
	require.Equal(t, ModeScans, job.Mode)
	require.Nil(t, job.CompletedAt)
	require.WithinDuration(t, time.Now(), job.CreatedAt, time.Second)
}

func TestJobClone_IsDeep(t *testing.T) {
	now := time.Now()
	job := NewJob(uuid.New(), []string{"a.jpg", "b.jpg"}, ModePanorama, DefaultStitchOptions())
	job.CompletedAt = &now

	clone := job.Clone()
	clone.Inputs[0] = "mutated.jpg"
	*clone.CompletedAt = now.Add(time.Hour)
	clone.Status = JobStatusFailed

	require.Equal(t, "a.jpg", job.Inputs[0])
	require.True(t, job.CompletedAt.Equal(now))
	require.Equal(t, JobStatusPending, job.Status)
}

func TestJobStatusTerminal(t *testing.T) {
	require.False(t, JobStatusPending.Terminal())
	require.False(t, JobStatusProcessing.Terminal())
	require.True(t, JobStatusCompleted.Terminal())
	require.True(t, JobStatusFailed.Terminal())
}
