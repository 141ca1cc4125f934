package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Feras-dev/track-laser-pointer/internal/detection"
	"github.com/Feras-dev/track-laser-pointer/internal/pipeline"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "LOCKON_"

type Config struct {
	LogLevel  string
	LogFormat string

	OutputSubdir    string
	Workers         int
	CreateOutputDir bool
	OnDecodeFailure pipeline.DecodePolicy
	OnNoDetection   pipeline.NoDetectionPolicy

	Threshold        uint8
	LegacyZeroMean   bool
	MarkerHalfLength int
	MarkerColor      string
	MarkerLabel      bool
}

// Load reads the given .env files (".env" in the working directory when none
// are named) into the environment and then calls LoadFromEnv. A missing
// default .env is not an error; variables already set in the environment win
// over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return LoadFromEnv()
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:    getEnvOrDefault("LOG_FORMAT", "text"),
		OutputSubdir: getEnvOrDefault("OUTPUT_SUBDIR", pipeline.DefaultOutputSubdir),
		MarkerColor:  getEnvOrDefault("MARKER_COLOR", "#FFFFFF"),
	}

	var err error
	if cfg.Workers, err = parseIntOrDefault("WORKERS", 1); err != nil {
		return nil, err
	}
	if cfg.MarkerHalfLength, err = parseIntOrDefault("MARKER_HALF_LENGTH", detection.DefaultHalfLength); err != nil {
		return nil, err
	}
	threshold, err := parseIntOrDefault("THRESHOLD", int(detection.DefaultThreshold))
	if err != nil {
		return nil, err
	}
	if cfg.CreateOutputDir, err = parseBoolOrDefault("CREATE_OUTPUT_DIR", false); err != nil {
		return nil, err
	}
	if cfg.LegacyZeroMean, err = parseBoolOrDefault("LEGACY_ZERO_MEAN", false); err != nil {
		return nil, err
	}
	if cfg.MarkerLabel, err = parseBoolOrDefault("MARKER_LABEL", false); err != nil {
		return nil, err
	}
	if cfg.OnDecodeFailure, err = pipeline.ParseDecodePolicy(getEnvOrDefault("ON_DECODE_FAILURE", string(pipeline.DecodeSkip))); err != nil {
		return nil, fmt.Errorf("invalid %sON_DECODE_FAILURE: %w", EnvPrefix, err)
	}
	if cfg.OnNoDetection, err = pipeline.ParseNoDetectionPolicy(getEnvOrDefault("ON_NO_DETECTION", string(pipeline.NoDetectionSkip))); err != nil {
		return nil, fmt.Errorf("invalid %sON_NO_DETECTION: %w", EnvPrefix, err)
	}

	if threshold < 0 || threshold > 255 {
		return nil, fmt.Errorf("%sTHRESHOLD must be within 0..255 (got %d)", EnvPrefix, threshold)
	}
	cfg.Threshold = uint8(threshold)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that flags may have overridden after loading.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1 (got %d)", c.Workers)
	}
	if c.MarkerHalfLength < 0 {
		return fmt.Errorf("marker half length must be >= 0 (got %d)", c.MarkerHalfLength)
	}
	sub := strings.TrimSpace(c.OutputSubdir)
	if sub == "" || sub == "." || sub == ".." {
		return fmt.Errorf("invalid output subdirectory %q", c.OutputSubdir)
	}
	if _, err := detection.ParseIntensity(c.MarkerColor); err != nil {
		return err
	}
	return nil
}

// Estimator builds the centroid estimator described by the configuration.
func (c *Config) Estimator() *detection.Estimator {
	opts := []detection.EstimatorOption{detection.WithThreshold(c.Threshold)}
	if c.LegacyZeroMean {
		opts = append(opts, detection.WithLegacyZeroMeanDrop())
	}
	return detection.NewEstimator(opts...)
}

// Marker builds the crosshair described by the configuration.
func (c *Config) Marker() (detection.Marker, error) {
	intensity, err := detection.ParseIntensity(c.MarkerColor)
	if err != nil {
		return detection.Marker{}, err
	}
	m := detection.DefaultMarker()
	m.HalfLength = c.MarkerHalfLength
	m.Intensity = intensity
	m.Label = c.MarkerLabel
	return m, nil
}

// PipelineOptions returns the batch options described by the configuration.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		OutputSubdir:    c.OutputSubdir,
		OnDecodeFailure: c.OnDecodeFailure,
		OnNoDetection:   c.OnNoDetection,
		Workers:         c.Workers,
		CreateOutputDir: c.CreateOutputDir,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(EnvPrefix + key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %q", EnvPrefix, key, value)
	}
	return n, nil
}

func parseBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s%s: %q", EnvPrefix, key, value)
	}
	return b, nil
}
