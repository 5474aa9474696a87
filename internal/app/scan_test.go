package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/samriddhi-1111/GangaGuards/internal/config"
	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
)

type bottleDetector struct{}

func (bottleDetector) DetectObjects(mat gocv.Mat) ([]dto.DetectionResult, error) {
	return []dto.DetectionResult{{Label: "plastic-bottle", Confidence: 0.9, Width: 4, Height: 4}}, nil
}

func TestRunScan_ReportsEachImage(t *testing.T) {
	var hits atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"inc-7"}`))
	}))
	defer collector.Close()

	t.Setenv("BACKEND_API_URL", collector.URL)
	cfg := config.FromEnv()
	log, err := logger.NewLogger(&bytes.Buffer{}, t.TempDir(), "debug")
	require.NoError(t, err)
	defer log.Close()

	dir := t.TempDir()
	for _, name := range []string{"1.png", "2.png"} {
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 24, 32, gocv.MatTypeCV8UC3)
		require.True(t, gocv.IMWrite(filepath.Join(dir, name), mat))
		mat.Close()
	}

	var out bytes.Buffer
	err = runScan(context.Background(), cfg, log, bottleDetector{}, dir, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 image(s)")
	assert.Contains(t, out.String(), "1.png\tsent\tplastic-bottle\tinc-7")
	assert.Contains(t, out.String(), "2.png\tfailed")
	assert.EqualValues(t, 2, hits.Load())
}

func TestRunScan_RequiresModel(t *testing.T) {
	t.Setenv("MODEL_PATH", filepath.Join(t.TempDir(), "missing.pb"))
	t.Setenv("LOG_DIR", t.TempDir())
	cfg := config.FromEnv()

	var out bytes.Buffer
	err := RunScan(context.Background(), cfg, t.TempDir(), &out)
	assert.True(t, errors.Is(err, ErrDetectorNotReady))
	assert.Empty(t, out.String())
}
