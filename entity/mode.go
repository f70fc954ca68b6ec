package entity

import (
	"fmt"
	"strings"
)

// StitchMode selects the engine's alignment model. Panorama performs
// rotational/perspective alignment with seam blending, Scans performs
// order-preserving planar alignment for co-planar captures.
type StitchMode string

const (
	ModePanorama StitchMode = "panorama"
	ModeScans    StitchMode = "scans"
)

// ParseStitchMode validates the mode selector at the submission boundary.
// An empty selector defaults to panorama; anything outside the closed set
// is rejected.
func ParseStitchMode(raw string) (StitchMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ModePanorama, nil
	case string(ModePanorama):
		return ModePanorama, nil
	case string(ModeScans):
		return ModeScans, nil
	default:
		return "", fmt.Errorf("invalid mode %q: use \"panorama\" or \"scans\"", raw)
	}
}

// StitchOptions carries the engine tuning knobs. The defaults match the
// fixed values of the job-tracked deployment; submissions may override them
// per request.
type StitchOptions struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	RegistrationResol   float64 `json:"registration_resol"`
	SeamEstimationResol float64 `json:"seam_estimation_resol"`
	CompositingResol    float64 `json:"compositing_resol"`
}

func DefaultStitchOptions() StitchOptions {
	return StitchOptions{
		ConfidenceThreshold: 0.3,
		RegistrationResol:   0.6,
		SeamEstimationResol: 0.1,
		CompositingResol:    -1,
	}
}
