package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/samriddhi-1111/GangaGuards/internal/dto"
)

// ErrInvalidConfig marks every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	BackendURL       string        // Base URL of the incident collector
	IncidentEndpoint string        // Full POST endpoint (derived from BackendURL when empty)
	RequiredDuration time.Duration // How long detection must persist before it counts
	Cooldown         time.Duration // Minimum gap between dispatched incidents
	DispatchTimeout  time.Duration
	DispatchAsync    bool // Single-slot background worker instead of inline POST
	DispatchGzip     bool
	DispatchMaxWidth int // Frames wider than this are downscaled before encoding (0 = never)
	JPEGQuality      int

	CameraIndex        int
	ProcessingInterval int // Run inference on every Nth frame (1 = every frame)
	ModelPath          string
	ConfigPath         string
	LabelsPath         string
	DetectionThreshold float64
	AnnotateDetections bool

	Location *dto.Location // Fixed place attached to every incident

	StatusAddr   string // "" disables the status server
	StatusToken  string
	LogDirectory string
	LogLevel     string
}

// Load reads an optional .env file and then builds the configuration from
// the environment, falling back to defaults.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		BackendURL:         getEnv("BACKEND_API_URL", "http://localhost:4000"),
		IncidentEndpoint:   getEnv("INCIDENT_ENDPOINT", ""),
		RequiredDuration:   getEnvAsDuration("DETECTION_CAPTURE_DELAY", 3*time.Second),
		Cooldown:           getEnvAsDuration("COOLDOWN_SECONDS", 10*time.Second),
		DispatchTimeout:    getEnvAsDuration("DISPATCH_TIMEOUT", 10*time.Second),
		DispatchAsync:      getEnvAsBool("DISPATCH_ASYNC", true),
		DispatchGzip:       getEnvAsBool("DISPATCH_GZIP", false),
		DispatchMaxWidth:   getEnvAsInt("DISPATCH_MAX_WIDTH", 1280),
		JPEGQuality:        getEnvAsInt("JPEG_QUALITY", 85),
		CameraIndex:        getEnvAsInt("CAMERA_INDEX", 0),
		ProcessingInterval: getEnvAsInt("PROCESSING_INTERVAL", 1),
		ModelPath:          getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:         getEnv("CONFIG_PATH", filepath.Join(".", "models", "graph.pbtxt")),
		LabelsPath:         getEnv("LABELS_PATH", filepath.Join(".", "models", "labels.txt")),
		DetectionThreshold: getEnvAsFloat("DETECTION_THRESHOLD", 0.5),
		AnnotateDetections: getEnvAsBool("ANNOTATE_DETECTIONS", true),
		StatusAddr:         getEnvAllowEmpty("STATUS_ADDR", ":8090"),
		StatusToken:        getEnv("STATUS_TOKEN", ""),
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	lat, latOK := lookupFloat("LOCATION_LAT")
	lng, lngOK := lookupFloat("LOCATION_LNG")
	if latOK && lngOK {
		cfg.SetLocation(lat, lng, os.Getenv("LOCATION_TEXT"))
	}

	return cfg
}

// SetLocation attaches a fixed location. A missing description is replaced
// with the coordinates themselves.
func (c *Config) SetLocation(lat, lng float64, text string) {
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("Location (%g, %g)", lat, lng)
	}
	c.Location = &dto.Location{Lat: lat, Lng: lng, Text: text}
}

// Endpoint returns the URL incidents are POSTed to.
func (c *Config) Endpoint() string {
	if c.IncidentEndpoint != "" {
		return c.IncidentEndpoint
	}
	return strings.TrimRight(c.BackendURL, "/") + "/api/incidents/ml"
}

// Validate reports the first setting that would make the watcher misbehave.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint())
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidConfig, "incident endpoint %q is not an http(s) URL", c.Endpoint())
	}
	if c.RequiredDuration < 0 {
		return errors.Wrapf(ErrInvalidConfig, "capture delay must not be negative, got %s", c.RequiredDuration)
	}
	if c.Cooldown < 0 {
		return errors.Wrapf(ErrInvalidConfig, "cooldown must not be negative, got %s", c.Cooldown)
	}
	if c.DispatchTimeout <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "dispatch timeout must be positive, got %s", c.DispatchTimeout)
	}
	if c.ProcessingInterval < 1 {
		return errors.Wrapf(ErrInvalidConfig, "processing interval must be at least 1, got %d", c.ProcessingInterval)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.Wrapf(ErrInvalidConfig, "jpeg quality must be within 1..100, got %d", c.JPEGQuality)
	}
	if c.Location != nil {
		if c.Location.Lat < -90 || c.Location.Lat > 90 || c.Location.Lng < -180 || c.Location.Lng > 180 {
			return errors.Wrapf(ErrInvalidConfig, "location (%g, %g) is out of range", c.Location.Lat, c.Location.Lng)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty treats a variable that is set but empty as a real value.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, ok := lookupFloat(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("2500ms") as well as bare
// integers, which are read as seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

func lookupFloat(key string) (float64, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
