package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/samriddhi-1111/GangaGuards/internal/app"
	"github.com/samriddhi-1111/GangaGuards/internal/config"
)

// CLI flags
var (
	cameraFlag     int
	backendFlag    string
	delayFlag      time.Duration
	cooldownFlag   time.Duration
	latFlag        float64
	lngFlag        float64
	locationFlag   string
	statusAddrFlag string
	logLevelFlag   string
	syncFlag       bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "watcher",
		Short: "Report sustained garbage detections to the GangaGuard backend",
		Long: `Watcher reads frames from a camera, runs the detection model and, once
something has been detected for the capture delay, sends an incident with
the annotated frame to the backend. A cooldown keeps it from sending the
same scene over and over.

Settings come from the environment (and an optional .env file); flags
override them.

Examples:
  watcher
  watcher --camera 1 --delay 2s
  watcher --lat 25.285217 --lng 82.790942 --location "Assi Ghat"
  watcher scan ./photos`,
		SilenceUsage: true,
		RunE:         runMain,
	}

	rootCmd.Flags().IntVar(&cameraFlag, "camera", 0, "Camera device index")
	rootCmd.Flags().DurationVar(&delayFlag, "delay", 0, "How long detection must persist before an incident is sent")
	rootCmd.Flags().DurationVar(&cooldownFlag, "cooldown", 0, "Minimum time between incidents")
	rootCmd.Flags().StringVar(&statusAddrFlag, "status-addr", "", `Status server address ("" disables)`)
	rootCmd.Flags().BoolVar(&syncFlag, "sync", false, "Send incidents inline instead of on the background worker")

	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend-url", "", "Backend base URL")
	rootCmd.PersistentFlags().Float64Var(&latFlag, "lat", 0, "Latitude attached to incidents")
	rootCmd.PersistentFlags().Float64Var(&lngFlag, "lng", 0, "Longitude attached to incidents")
	rootCmd.PersistentFlags().StringVar(&locationFlag, "location", "", "Location description attached to incidents")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warning, error)")
	rootCmd.MarkFlagsRequiredTogether("lat", "lng")

	rootCmd.AddCommand(newScanCmd())
	return rootCmd
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <file|dir>",
		Short: "Run detection on still images and report those with garbage",
		Long: `Scan runs the detection model once on an image, or on every image
directly inside a directory, and sends each image with detections to the
backend as its own incident. Images with nothing detected are skipped.
There is no capture delay or cooldown in this mode.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runScan,
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to start watcher")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunScan(ctx, cfg, args[0], cmd.OutOrStdout())
}

// errLocationWithoutCoordinates is returned for --location when no
// coordinates are known to attach it to.
var errLocationWithoutCoordinates = errors.New("--location needs --lat and --lng (or LOCATION_LAT and LOCATION_LNG)")

// applyFlags copies explicitly set flags over the environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("camera") {
		cfg.CameraIndex = cameraFlag
	}
	if flags.Changed("backend-url") {
		cfg.BackendURL = backendFlag
		cfg.IncidentEndpoint = ""
	}
	if flags.Changed("delay") {
		cfg.RequiredDuration = delayFlag
	}
	if flags.Changed("cooldown") {
		cfg.Cooldown = cooldownFlag
	}
	if flags.Changed("lat") && flags.Changed("lng") {
		cfg.SetLocation(latFlag, lngFlag, locationFlag)
	} else if flags.Changed("location") {
		if cfg.Location == nil {
			return errLocationWithoutCoordinates
		}
		cfg.Location.Text = locationFlag
	}
	if flags.Changed("status-addr") {
		cfg.StatusAddr = statusAddrFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("sync") {
		cfg.DispatchAsync = !syncFlag
	}
	return nil
}
