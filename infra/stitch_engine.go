package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/tnqbao/gau-stitch-service/config"
	"github.com/tnqbao/gau-stitch-service/entity"
)

// StitchStatus mirrors the engine's coded outcomes.
type StitchStatus int

const (
	StitchOK StitchStatus = iota
	StitchErrNeedMoreImages
	StitchErrHomographyFail
	StitchErrCameraParamsFail
	StitchErrOther
)

// StitchError is the engine's coded failure, carrying the raw code for
// outcomes outside the known set.
type StitchError struct {
	Status StitchStatus
	Code   int
}

func (e *StitchError) Error() string {
	switch e.Status {
	case StitchErrNeedMoreImages:
		return "need more images"
	case StitchErrHomographyFail:
		return "homography estimation failed - try reordering images"
	case StitchErrCameraParamsFail:
		return "camera parameter adjustment failed"
	default:
		return fmt.Sprintf("unknown error: %d", e.Code)
	}
}

type EngineHealth struct {
	Status        string `json:"status"`
	EngineVersion string `json:"opencv_version"`
}

// StitchEngine is the external alignment/blend collaborator. The worker
// treats Stitch as a blocking, possibly minutes-long call; failures carry a
// *StitchError when the engine reported a coded outcome.
type StitchEngine interface {
	Stitch(ctx context.Context, images []image.Image, mode entity.StitchMode, opts entity.StitchOptions) (image.Image, error)
	Health(ctx context.Context) (*EngineHealth, error)
}

// StitchEngineService talks to the OpenCV sidecar over HTTP. The sidecar
// exposes the synchronous surface: POST /stitch with multipart images plus
// tuning fields, returning the composite JPEG or a coded error.
type StitchEngineService struct {
	EngineURL string
	client    *http.Client
}

func InitStitchEngineService(cfg *config.EnvConfig) *StitchEngineService {
	if cfg.Stitcher.EngineURL == "" {
		panic("Stitch engine URL is not configured")
	}
	return &StitchEngineService{
		EngineURL: cfg.Stitcher.EngineURL,
		// No timeout: the engine call is the dominant-cost step and the
		// service enforces no deadline on it.
		client: &http.Client{},
	}
}

func (s *StitchEngineService) Stitch(ctx context.Context, images []image.Image, mode entity.StitchMode, opts entity.StitchOptions) (image.Image, error) {
	url := fmt.Sprintf("%s/stitch", s.EngineURL)

	// Stream the multipart body so large batches never buffer fully in memory.
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	errChan := make(chan error, 1)

	go func() {
		defer pw.Close()
		defer w.Close()

		fields := map[string]string{
			"stitch_mode":           engineMode(mode),
			"confidence_threshold":  strconv.FormatFloat(opts.ConfidenceThreshold, 'f', -1, 64),
			"registration_resol":    strconv.FormatFloat(opts.RegistrationResol, 'f', -1, 64),
			"seam_estimation_resol": strconv.FormatFloat(opts.SeamEstimationResol, 'f', -1, 64),
			"compositing_resol":     strconv.FormatFloat(opts.CompositingResol, 'f', -1, 64),
		}
		for name, value := range fields {
			if err := w.WriteField(name, value); err != nil {
				errChan <- fmt.Errorf("failed to write %s field: %w", name, err)
				return
			}
		}

		for i, img := range images {
			fw, err := w.CreateFormFile("images", fmt.Sprintf("image_%03d.jpg", i))
			if err != nil {
				errChan <- fmt.Errorf("failed to create form file: %w", err)
				return
			}
			if err := imaging.Encode(fw, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
				errChan <- fmt.Errorf("failed to encode image %d: %w", i, err)
				return
			}
		}

		errChan <- nil
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)

	writeErr := <-errChan
	if writeErr != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, writeErr
	}
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		composite, err := imaging.Decode(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode composite: %w", err)
		}
		return composite, nil
	}

	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		return nil, fmt.Errorf("engine returned %d: %s", resp.StatusCode, raw)
	}
	return nil, mapEngineError(payload.Error)
}

func (s *StitchEngineService) Health(ctx context.Context) (*EngineHealth, error) {
	url := fmt.Sprintf("%s/health", s.EngineURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine health returned %d", resp.StatusCode)
	}

	var health EngineHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

func engineMode(mode entity.StitchMode) string {
	if mode == entity.ModeScans {
		return "SCANS"
	}
	return "PANORAMA"
}

// mapEngineError turns the sidecar's error text back into the coded outcome
// taxonomy.
func mapEngineError(msg string) *StitchError {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "need more images"):
		return &StitchError{Status: StitchErrNeedMoreImages}
	case strings.Contains(lower, "homography"):
		return &StitchError{Status: StitchErrHomographyFail}
	case strings.Contains(lower, "camera parameter"):
		return &StitchError{Status: StitchErrCameraParamsFail}
	default:
		code := -1
		if idx := strings.LastIndexByte(msg, ' '); idx >= 0 {
			if parsed, err := strconv.Atoi(strings.TrimSpace(msg[idx+1:])); err == nil {
				code = parsed
			}
		}
		return &StitchError{Status: StitchErrOther, Code: code}
	}
}
