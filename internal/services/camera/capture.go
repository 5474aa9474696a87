package camera

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
	"github.com/samriddhi-1111/GangaGuards/internal/services/ai"
)

// ErrFrameRead is returned when the device stops delivering frames.
var ErrFrameRead = errors.New("cannot read frame from camera")

// Detector finds objects in a frame.
type Detector interface {
	DetectObjects(mat gocv.Mat) ([]dto.DetectionResult, error)
}

// frameReader is the part of gocv.VideoCapture the service uses.
type frameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Options configures a CaptureService.
type Options struct {
	ProcessEveryNth int
	Annotate        bool
}

// CaptureService reads frames from a camera, runs the detector on every Nth
// frame and turns the result into detection samples.
type CaptureService struct {
	capture  frameReader
	detector Detector
	interval int
	annotate bool
	frame    gocv.Mat
	count    int
	logger   *logger.Logger
	now      func() time.Time
}

// Open starts capturing from the given device index.
func Open(deviceIndex int, detector Detector, opts Options, log *logger.Logger) (*CaptureService, error) {
	capture, err := gocv.OpenVideoCapture(deviceIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "open camera %d", deviceIndex)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Newf("camera %d is not available", deviceIndex)
	}
	return newCaptureService(capture, detector, opts, log), nil
}

func newCaptureService(capture frameReader, detector Detector, opts Options, log *logger.Logger) *CaptureService {
	if log == nil {
		log = logger.Nop()
	}
	if opts.ProcessEveryNth < 1 {
		opts.ProcessEveryNth = 1
	}
	return &CaptureService{
		capture:  capture,
		detector: detector,
		interval: opts.ProcessEveryNth,
		annotate: opts.Annotate,
		frame:    gocv.NewMat(),
		logger:   log.Component("camera"),
		now:      time.Now,
	}
}

// Next blocks until the next processed frame is available.
func (c *CaptureService) Next(ctx context.Context) (dto.DetectionSample, error) {
	for {
		if err := ctx.Err(); err != nil {
			return dto.DetectionSample{}, err
		}

		if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
			return dto.DetectionSample{}, ErrFrameRead
		}
		capturedAt := c.now()

		c.count++
		if c.count%c.interval != 0 {
			continue
		}
		c.count = 0

		detections, err := c.detector.DetectObjects(c.frame)
		if err != nil {
			c.logger.Warning("Inference failed, treating frame as empty: %v", err)
			detections = nil
		}

		if c.annotate && len(detections) > 0 {
			if err := ai.Annotate(&c.frame, detections); err != nil {
				c.logger.Warning("Failed to annotate frame: %v", err)
			}
		}

		img, err := c.frame.ToImage()
		if err != nil {
			c.logger.Warning("Skipping frame that cannot be converted: %v", err)
			continue
		}

		return dto.NewDetectionSample(img, capturedAt, detections), nil
	}
}

// Close releases the camera.
func (c *CaptureService) Close() error {
	c.frame.Close()
	return c.capture.Close()
}
