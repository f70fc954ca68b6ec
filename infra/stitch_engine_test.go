package infra

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"github.com/tnqbao/gau-stitch-service/config"
	"github.com/tnqbao/gau-stitch-service/entity"
)

func newEngineService(url string) *StitchEngineService {
	cfg := &config.EnvConfig{}
	cfg.Stitcher.EngineURL = url
	return InitStitchEngineService(cfg)
}

func testImages(t *testing.T, widths ...int) []image.Image {
	t.Helper()
	images := make([]image.Image, len(widths))
	for i, w := range widths {
		images[i] = imaging.New(w, 10, image.White.C)
	}
	return images
}

func TestStitchEngineService_Stitch(t *testing.T) {
	var gotFields map[string]string
	var gotImages int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/stitch", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))

		gotFields = map[string]string{}
		for name := range r.MultipartForm.Value {
			gotFields[name] = r.FormValue(name)
		}
		gotImages = len(r.MultipartForm.File["images"])

		w.Header().Set("Content-Type", "image/jpeg")
		require.NoError(t, imaging.Encode(w, imaging.New(300, 80, image.White.C), imaging.JPEG))
	}))
	defer server.Close()

	svc := newEngineService(server.URL)
	opts := entity.DefaultStitchOptions()

	composite, err := svc.Stitch(context.Background(), testImages(t, 100, 120), entity.ModeScans, opts)
	require.NoError(t, err)
	require.Equal(t, 300, composite.Bounds().Dx())

	require.Equal(t, 2, gotImages)
	require.Equal(t, "SCANS", gotFields["stitch_mode"])
	require.Equal(t, "0.3", gotFields["confidence_threshold"])
	require.Equal(t, "0.6", gotFields["registration_resol"])
	require.Equal(t, "0.1", gotFields["seam_estimation_resol"])
	require.Equal(t, "-1", gotFields["compositing_resol"])
}

func TestStitchEngineService_StitchCodedErrors(t *testing.T) {
	cases := []struct {
		engineMsg  string
		wantStatus StitchStatus
		wantText   string
		wantCode   int
	}{
		{"Need more images or images don't overlap enough", StitchErrNeedMoreImages, "need more images", 0},
		{"Homography estimation failed. Images may not overlap", StitchErrHomographyFail, "homography estimation failed - try reordering images", 0},
		{"Camera parameter adjustment failed", StitchErrCameraParamsFail, "camera parameter adjustment failed", 0},
		{"Stitching failed with status 3", StitchErrOther, "unknown error: 3", 3},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": tc.engineMsg})
		}))

		svc := newEngineService(server.URL)
		_, err := svc.Stitch(context.Background(), testImages(t, 100, 100), entity.ModePanorama, entity.DefaultStitchOptions())
		server.Close()

		require.Error(t, err, tc.engineMsg)
		var stitchErr *StitchError
		require.ErrorAs(t, err, &stitchErr, tc.engineMsg)
		require.Equal(t, tc.wantStatus, stitchErr.Status, tc.engineMsg)
		require.Equal(t, tc.wantText, stitchErr.Error(), tc.engineMsg)
		if tc.wantStatus == StitchErrOther {
			require.Equal(t, tc.wantCode, stitchErr.Code, tc.engineMsg)
		}
	}
}

func TestStitchEngineService_StitchUncodedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	svc := newEngineService(server.URL)
	_, err := svc.Stitch(context.Background(), testImages(t, 100, 100), entity.ModePanorama, entity.DefaultStitchOptions())

	require.Error(t, err)
	var stitchErr *StitchError
	require.False(t, errors.As(err, &stitchErr))
	require.Contains(t, err.Error(), "502")
}

func TestStitchEngineService_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "opencv_version": "4.9.0"})
	}))
	defer server.Close()

	svc := newEngineService(server.URL)
	health, err := svc.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "4.9.0", health.EngineVersion)
}

func TestStitchEngineService_HealthDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := newEngineService(server.URL)
	_, err := svc.Health(context.Background())
	require.Error(t, err)
}
