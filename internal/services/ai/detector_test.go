package ai

import (
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	"github.com/samriddhi-1111/GangaGuards/internal/config"
)

func TestNewDetectorService_MissingModelDetectsNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		ModelPath:          filepath.Join(dir, "missing.pb"),
		ConfigPath:         filepath.Join(dir, "missing.pbtxt"),
		LabelsPath:         filepath.Join(dir, "missing.txt"),
		DetectionThreshold: 0.5,
	}

	detector := NewDetectorService(cfg, nil)
	defer detector.Close()

	if detector.Ready() {
		t.Fatal("detector should not be ready without a model")
	}

	mat := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer mat.Close()

	results, err := detector.DetectObjects(mat)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no detections, got %v", results)
	}
}
