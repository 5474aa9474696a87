package app

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/samriddhi-1111/GangaGuards/internal/config"
	"github.com/samriddhi-1111/GangaGuards/internal/logger"
	"github.com/samriddhi-1111/GangaGuards/internal/services/ai"
	"github.com/samriddhi-1111/GangaGuards/internal/services/scan"
)

// ErrDetectorNotReady is returned by RunScan when the model did not load.
var ErrDetectorNotReady = errors.New("detection model is not loaded")

// RunScan runs detection over still images at path and reports every image
// with detections to the collector. The per-file report is written to out.
func RunScan(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger(os.Stderr, cfg.LogDirectory, cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer log.Close()

	detector := ai.NewDetectorService(cfg, log)
	defer detector.Close()
	if !detector.Ready() {
		return errors.Wrapf(ErrDetectorNotReady, "model %s", cfg.ModelPath)
	}

	return runScan(ctx, cfg, log, detector, path, out)
}

func runScan(ctx context.Context, cfg *config.Config, log *logger.Logger, detector scan.Detector, path string, out io.Writer) error {
	scanner := scan.NewScanner(detector, newDispatchClient(cfg, log), scan.Options{
		Location: cfg.Location,
		Annotate: cfg.AnnotateDetections,
	}, log)

	results, err := scanner.Scan(ctx, path)
	failed := scan.WriteReport(out, results)
	if err != nil {
		return err
	}
	if failed > 0 {
		return errors.Newf("%d of %d image(s) could not be reported", failed, len(results))
	}
	return nil
}
