package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gocv.io/x/gocv"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
	"github.com/samriddhi-1111/GangaGuards/internal/services/ai"
	"github.com/samriddhi-1111/GangaGuards/internal/services/dispatch"
)

// ErrUnreadableImage is reported for files OpenCV cannot decode.
var ErrUnreadableImage = errors.New("cannot decode image")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// Detector finds objects in a still image.
type Detector interface {
	DetectObjects(mat gocv.Mat) ([]dto.DetectionResult, error)
}

// Options configures a Scanner.
type Options struct {
	Location *dto.Location
	Annotate bool
}

// FileResult is the outcome for one image.
type FileResult struct {
	Path     string
	Labels   []string
	Sent     bool
	Dispatch *dto.DispatchResult
	Err      error
}

// Scanner runs detection on still images and reports every image with
// detections straight to the collector. There is no confirmation delay or
// cooldown: each image is its own incident.
type Scanner struct {
	detector   Detector
	dispatcher dispatch.Dispatcher
	location   *dto.Location
	annotate   bool
	logger     *logger.Logger
	now        func() time.Time
}

func NewScanner(detector Detector, dispatcher dispatch.Dispatcher, opts Options, log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Nop()
	}
	return &Scanner{
		detector:   detector,
		dispatcher: dispatcher,
		location:   opts.Location,
		annotate:   opts.Annotate,
		logger:     log.Component("scan"),
		now:        time.Now,
	}
}

// Scan processes a single image, or every image directly inside a directory
// in name order. It stops early when ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, path string) ([]FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}
	if !info.IsDir() {
		return []FileResult{s.ScanFile(ctx, path)}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", path)
	}

	var results []FileResult
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.ScanFile(ctx, filepath.Join(path, entry.Name())))
	}
	s.logger.Info("📁 Scanned %d image(s) in %s", len(results), path)
	return results, nil
}

// ScanFile detects objects in one image and sends it when anything is found.
func (s *Scanner) ScanFile(ctx context.Context, path string) FileResult {
	result := FileResult{Path: path}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		result.Err = errors.Wrap(ErrUnreadableImage, filepath.Base(path))
		s.logger.Error("Error processing %s: %v", filepath.Base(path), result.Err)
		return result
	}

	detections, err := s.detector.DetectObjects(mat)
	if err != nil {
		result.Err = errors.Wrapf(err, "detect objects in %s", filepath.Base(path))
		s.logger.Error("Error processing %s: %v", filepath.Base(path), err)
		return result
	}
	if len(detections) == 0 {
		s.logger.Info("✅ Nothing detected in %s", filepath.Base(path))
		return result
	}

	if s.annotate {
		if err := ai.Annotate(&mat, detections); err != nil {
			s.logger.Warning("Failed to annotate %s: %v", filepath.Base(path), err)
		}
	}
	img, err := mat.ToImage()
	if err != nil {
		result.Err = errors.Wrapf(err, "convert %s", filepath.Base(path))
		return result
	}

	sample := dto.NewDetectionSample(img, s.now(), detections)
	result.Labels = sample.Labels
	s.logger.Info("🗑️  %d object(s) in %s: %s", len(detections), filepath.Base(path), strings.Join(sample.Labels, ", "))

	dispatched := s.dispatcher.Dispatch(ctx, dto.NewIncidentPayload(sample, s.location))
	result.Sent = true
	result.Dispatch = &dispatched
	return result
}

// WriteReport prints one line per file and a closing summary. It returns the
// number of failed files.
func WriteReport(w io.Writer, results []FileResult) int {
	var sent, failed int
	for _, r := range results {
		name := filepath.Base(r.Path)
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "%s\terror\t%v\n", name, r.Err)
		case !r.Sent:
			fmt.Fprintf(w, "%s\tclean\n", name)
		case r.Dispatch.Success:
			sent++
			remoteID := r.Dispatch.RemoteID
			if remoteID == "" {
				remoteID = "N/A"
			}
			fmt.Fprintf(w, "%s\tsent\t%s\t%s\n", name, strings.Join(r.Labels, ","), remoteID)
		default:
			failed++
			fmt.Fprintf(w, "%s\tfailed\t%s\t%s\n", name, strings.Join(r.Labels, ","), r.Dispatch.ErrorMessage())
		}
	}
	fmt.Fprintf(w, "%d image(s): %d sent, %d failed, %d clean\n", len(results), sent, failed, len(results)-sent-failed)
	return failed
}
