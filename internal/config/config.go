// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Camera sources.
const (
	SourceDevice    = "device"
	SourceSynthetic = "synthetic"
)

// Config holds every tunable of the service.
type Config struct {
	Addr      string
	StaticDir string
	Tray      bool

	CameraSource string
	CameraID     int
	CameraWidth  int
	CameraHeight int
	CameraFPS    int
	CameraMirror bool
	CameraLayout string

	VideoDir   string
	PhotoDir   string
	DataDir    string
	LogDir     string
	LogLevel   string
	VideoCodec string
	VideoExt   string
	RecordFPS  float64
	TickSleep  time.Duration

	BlurSize           int
	DiffThreshold      int
	MinArea            int
	DilateIterations   int
	MotionPersistence  time.Duration
	MotionPollInterval time.Duration
	MotionOnStart      bool

	HookDir     string
	HookTimeout time.Duration
}

// Load reads the configuration from the environment. When envFile exists it
// is loaded first; variables already set in the environment take precedence.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	base := getEnv("WATCHPOST_HOME", defaultHome())

	cfg := &Config{
		Addr:      getEnv("WATCHPOST_ADDR", ":8080"),
		StaticDir: getEnv("STATIC_DIR", ""),
		Tray:      getEnvAsBool("TRAY", false),

		CameraSource: getEnv("CAMERA_SOURCE", SourceDevice),
		CameraID:     getEnvAsInt("CAMERA_ID", 0),
		CameraWidth:  getEnvAsInt("CAMERA_WIDTH", 640),
		CameraHeight: getEnvAsInt("CAMERA_HEIGHT", 480),
		CameraFPS:    getEnvAsInt("CAMERA_FPS", 15),
		CameraMirror: getEnvAsBool("CAMERA_MIRROR", true),
		CameraLayout: getEnv("CAMERA_LAYOUT", "bgr"),

		VideoDir:   getEnv("VIDEO_DIR", filepath.Join(base, "videos")),
		PhotoDir:   getEnv("PHOTO_DIR", filepath.Join(base, "photos")),
		DataDir:    getEnv("DATA_DIR", base),
		LogDir:     getEnv("LOG_DIR", filepath.Join(base, "logs")),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		VideoCodec: getEnv("VIDEO_CODEC", "MJPG"),
		VideoExt:   getEnv("VIDEO_EXT", ".avi"),
		RecordFPS:  getEnvAsFloat("RECORD_FPS", 15),
		TickSleep:  getEnvAsDuration("TICK_SLEEP", 5*time.Millisecond),

		BlurSize:           getEnvAsInt("BLUR_SIZE", 21),
		DiffThreshold:      getEnvAsInt("DIFF_THRESHOLD", 25),
		MinArea:            getEnvAsInt("MIN_AREA", 1500),
		DilateIterations:   getEnvAsInt("DILATE_ITERATIONS", 2),
		MotionPersistence:  getEnvAsDuration("MOTION_PERSISTENCE", 5*time.Second),
		MotionPollInterval: getEnvAsDuration("MOTION_POLL_INTERVAL", 100*time.Millisecond),
		MotionOnStart:      getEnvAsBool("MOTION_ON_START", false),

		HookDir:     getEnv("HOOK_DIR", filepath.Join(base, "hooks")),
		HookTimeout: getEnvAsDuration("HOOK_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and normalizes the blur size to an odd number.
func (c *Config) Validate() error {
	var errs []error

	if c.CameraSource != SourceDevice && c.CameraSource != SourceSynthetic {
		errs = append(errs, fmt.Errorf("CAMERA_SOURCE must be %q or %q, got %q", SourceDevice, SourceSynthetic, c.CameraSource))
	}
	if c.CameraLayout != "bgr" && c.CameraLayout != "rgb" {
		errs = append(errs, fmt.Errorf("CAMERA_LAYOUT must be bgr or rgb, got %q", c.CameraLayout))
	}
	if c.CameraWidth <= 0 || c.CameraHeight <= 0 {
		errs = append(errs, fmt.Errorf("camera size must be positive, got %dx%d", c.CameraWidth, c.CameraHeight))
	}
	if c.CameraFPS <= 0 {
		errs = append(errs, fmt.Errorf("CAMERA_FPS must be positive, got %d", c.CameraFPS))
	}
	if c.RecordFPS <= 0 {
		errs = append(errs, fmt.Errorf("RECORD_FPS must be positive, got %v", c.RecordFPS))
	}
	if c.BlurSize <= 0 {
		errs = append(errs, fmt.Errorf("BLUR_SIZE must be positive, got %d", c.BlurSize))
	} else if c.BlurSize%2 == 0 {
		c.BlurSize++
	}
	if c.DiffThreshold <= 0 || c.DiffThreshold > 255 {
		errs = append(errs, fmt.Errorf("DIFF_THRESHOLD must be in 1..255, got %d", c.DiffThreshold))
	}
	if c.MinArea <= 0 {
		errs = append(errs, fmt.Errorf("MIN_AREA must be positive, got %d", c.MinArea))
	}
	if c.DilateIterations < 0 {
		errs = append(errs, fmt.Errorf("DILATE_ITERATIONS must not be negative, got %d", c.DilateIterations))
	}
	if c.MotionPersistence < 0 {
		errs = append(errs, fmt.Errorf("MOTION_PERSISTENCE must not be negative, got %v", c.MotionPersistence))
	}
	if c.MotionPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("MOTION_POLL_INTERVAL must be positive, got %v", c.MotionPollInterval))
	}
	if c.TickSleep < 0 {
		errs = append(errs, fmt.Errorf("TICK_SLEEP must not be negative, got %v", c.TickSleep))
	}

	return errors.Join(errs...)
}

// DBPath returns the location of the SQLite index.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "watchpost.db")
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".watchpost"
	}
	return filepath.Join(home, ".watchpost")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
