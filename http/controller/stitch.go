package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tnqbao/gau-stitch-service/entity"
	"github.com/tnqbao/gau-stitch-service/http/controller/dto"
	"github.com/tnqbao/gau-stitch-service/infra"
	"github.com/tnqbao/gau-stitch-service/repository"
	"github.com/tnqbao/gau-stitch-service/utils"
)

// SubmitStitch accepts a multipart batch of images, persists the accepted
// ones into job-scoped storage, registers the job and schedules it. The
// response never waits on processing.
func (ctrl *Controller) SubmitStitch(c *gin.Context) {
	ctx := c.Request.Context()

	form, err := c.MultipartForm()
	if err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Stitch] Failed to parse multipart form: %v", err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			utils.JSON413(c, fmt.Sprintf("Upload too large: limit is %d bytes", maxBytesErr.Limit))
			return
		}
		utils.JSON400(c, "No images uploaded")
		return
	}

	files := form.File["images"]
	if len(files) < 2 {
		utils.JSON400(c, "At least 2 images required")
		return
	}

	mode, err := entity.ParseStitchMode(c.PostForm("mode"))
	if err != nil {
		utils.JSON400(c, err.Error())
		return
	}

	opts, err := ctrl.stitchOptionsFromForm(c)
	if err != nil {
		utils.JSON400(c, err.Error())
		return
	}

	jobID := uuid.New()
	saved := make([]string, 0, len(files))
	for i, fileHeader := range files {
		if !utils.AllowedImageFile(fileHeader.Filename) {
			ctrl.Infra.Logger.DebugWithContextf(ctx, "[Stitch] Skipping file with unsupported extension: %s", fileHeader.Filename)
			continue
		}

		filename := utils.SanitizeFilename(fileHeader.Filename, i)

		src, err := fileHeader.Open()
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Stitch] Failed to open uploaded file %s", fileHeader.Filename)
			utils.JSON500(c, "Failed to store uploaded images")
			return
		}
		err = ctrl.Infra.Storage.SaveInput(ctx, jobID.String(), filename, src, fileHeader.Size)
		src.Close()
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Stitch] Failed to persist uploaded file %s", filename)
			utils.JSON500(c, "Failed to store uploaded images")
			return
		}
		saved = append(saved, filename)
	}

	if len(saved) < 2 {
		utils.JSON400(c, "At least 2 valid images required")
		return
	}

	job := entity.NewJob(jobID, saved, mode, opts)
	if err := ctrl.Repository.JobRepo.Create(ctx, job); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Stitch] Failed to register job %s", jobID)
		utils.JSON500(c, "Failed to create job")
		return
	}

	if err := ctrl.Dispatcher.Dispatch(ctx, job); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Stitch] Failed to schedule job %s", jobID)
		// The job is registered but will never run; close it out instead of
		// leaving a forever-pending record.
		_, _ = ctrl.Repository.JobRepo.Update(ctx, jobID, func(j *entity.Job) {
			j.Status = entity.JobStatusFailed
			j.ErrorMessage = "failed to schedule job"
		})
		utils.JSON500(c, "Failed to schedule job")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Stitch] Accepted job %s (%d images, mode=%s)", jobID, len(saved), mode)
	utils.JSON202(c, dto.SubmitResponse{
		JobID:       jobID.String(),
		Status:      "accepted",
		Message:     "Panorama stitching started",
		ImagesCount: len(saved),
		Mode:        string(mode),
	})
}

// GetJobStatus returns a read-only snapshot of the job.
func (ctrl *Controller) GetJobStatus(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.JSON404(c, "Job not found")
		return
	}

	job, err := ctrl.Repository.JobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			utils.JSON404(c, "Job not found")
			return
		}
		utils.JSON500(c, "Failed to load job")
		return
	}

	response := dto.StatusResponse{
		JobID:       job.ID.String(),
		Status:      string(job.Status),
		Progress:    job.Progress,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		Mode:        string(job.Mode),
		ImagesCount: len(job.Inputs),
	}

	if job.CompletedAt != nil {
		response.CompletedAt = job.CompletedAt.Format(time.RFC3339)
		processingTime := job.CompletedAt.Sub(job.CreatedAt).Seconds()
		response.ProcessingTime = &processingTime
	}
	if job.ErrorMessage != "" {
		response.Error = job.ErrorMessage
	}
	if job.Status == entity.JobStatusCompleted {
		response.DownloadURL = fmt.Sprintf("/api/download/%s", job.ID)
		if size, err := ctrl.Infra.Storage.OutputSize(ctx, job.ID.String()); err == nil {
			response.FileSize = &size
		}
	}

	utils.JSON200(c, response)
}

// DownloadResult streams the composite JPEG of a completed job.
func (ctrl *Controller) DownloadResult(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.JSON404(c, "Job not found")
		return
	}

	job, err := ctrl.Repository.JobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			utils.JSON404(c, "Job not found")
			return
		}
		utils.JSON500(c, "Failed to load job")
		return
	}

	if job.Status != entity.JobStatusCompleted {
		utils.JSON400(c, "Result not ready")
		return
	}

	rc, size, err := ctrl.Infra.Storage.OpenOutput(ctx, job.ID.String())
	if err != nil {
		if errors.Is(err, infra.ErrArtifactNotFound) {
			utils.JSON404(c, "Output file not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Stitch] Failed to open output for job %s", jobID)
		utils.JSON500(c, "Failed to read output file")
		return
	}
	defer rc.Close()

	c.DataFromReader(200, size, "image/jpeg", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, infra.OutputFilename(job.ID.String())),
	})
}

func (ctrl *Controller) stitchOptionsFromForm(c *gin.Context) (entity.StitchOptions, error) {
	opts := entity.StitchOptions{
		ConfidenceThreshold: ctrl.Config.EnvConfig.Stitcher.ConfidenceThreshold,
		RegistrationResol:   ctrl.Config.EnvConfig.Stitcher.RegistrationResol,
		SeamEstimationResol: ctrl.Config.EnvConfig.Stitcher.SeamEstimationResol,
		CompositingResol:    ctrl.Config.EnvConfig.Stitcher.CompositingResol,
	}

	fields := map[string]*float64{
		"confidence_threshold":  &opts.ConfidenceThreshold,
		"registration_resol":    &opts.RegistrationResol,
		"seam_estimation_resol": &opts.SeamEstimationResol,
		"compositing_resol":     &opts.CompositingResol,
	}
	for name, target := range fields {
		raw := c.PostForm(name)
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %q", name, raw)
		}
		*target = parsed
	}
	return opts, nil
}
