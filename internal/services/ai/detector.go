package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"

	"github.com/samriddhi-1111/GangaGuards/internal/config"
	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
)

// ssdStride is the number of floats per detection in an SSD output blob:
// image id, class id, confidence, left, top, right, bottom.
const ssdStride = 7

// DetectorService runs an SSD-style DNN over frames.
type DetectorService struct {
	net        gocv.Net
	ready      bool
	labels     []string
	threshold  float64
	modelPath  string
	configPath string
	logger     *logger.Logger
	mu         sync.Mutex
}

// NewDetectorService loads the network and its labels. A model that cannot be
// loaded is not fatal: the service then reports no detections.
func NewDetectorService(cfg *config.Config, log *logger.Logger) *DetectorService {
	if log == nil {
		log = logger.Nop()
	}
	service := &DetectorService{
		threshold:  cfg.DetectionThreshold,
		modelPath:  cfg.ModelPath,
		configPath: cfg.ConfigPath,
		logger:     log.Component("detector"),
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		service.logger.Warning("Using numeric class names: %v", err)
	}
	service.labels = labels

	if err := service.initializeNet(); err != nil {
		service.logger.Warning("Could not initialize detection network, nothing will be detected: %v", err)
		return service
	}
	return service
}

func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return errors.Newf("model file not found: %s", s.modelPath)
	}
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return errors.Newf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return errors.New("failed to load network")
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return errors.Wrap(err, "set preferable backend")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return errors.Wrap(err, "set preferable target")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized successfully (%d labels)", len(s.labels))
	return nil
}

// Ready reports whether a model is loaded.
func (s *DetectorService) Ready() bool {
	return s.ready
}

// DetectObjects runs the network over a BGR frame and returns every
// detection above the confidence threshold.
func (s *DetectorService) DetectObjects(mat gocv.Mat) ([]dto.DetectionResult, error) {
	if !s.ready {
		return nil, nil
	}
	if mat.Empty() {
		return nil, errors.New("frame is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	if output.Total()%ssdStride != 0 {
		return nil, errors.Newf("unexpected output size %d", output.Total())
	}
	rows := output.Reshape(1, output.Total()/ssdStride)
	defer rows.Close()

	cols, height := float32(mat.Cols()), float32(mat.Rows())
	var results []dto.DetectionResult
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if float64(confidence) < s.threshold {
			continue
		}
		classID := int(rows.GetFloatAt(i, 1))
		x := int(rows.GetFloatAt(i, 3) * cols)
		y := int(rows.GetFloatAt(i, 4) * height)
		results = append(results, dto.DetectionResult{
			Label:      classLabel(s.labels, classID),
			Confidence: float64(confidence),
			X:          x,
			Y:          y,
			Width:      int(rows.GetFloatAt(i, 5)*cols) - x,
			Height:     int(rows.GetFloatAt(i, 6)*height) - y,
		})
	}

	if len(results) > 0 {
		s.logger.Debug("Detected %d object(s), first %s (%.2f)", len(results), results[0].Label, results[0].Confidence)
	}
	return results, nil
}

// Annotate draws the boxes and labels onto the frame in place.
func Annotate(mat *gocv.Mat, detections []dto.DetectionResult) error {
	red := color.RGBA{R: 255, G: 0, B: 0, A: 0}

	for _, detection := range detections {
		rect := image.Rect(detection.X, detection.Y, detection.X+detection.Width, detection.Y+detection.Height)
		if err := gocv.Rectangle(mat, rect, red, 2); err != nil {
			return errors.Wrap(err, "draw rectangle")
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		pt := image.Pt(detection.X, detection.Y-5)
		if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, red, 1); err != nil {
			return errors.Wrap(err, "draw text")
		}
	}
	return nil
}

func (s *DetectorService) Close() error {
	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}
