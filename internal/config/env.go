package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvMode             = "PLATE_MODE"
	EnvMaxFrames        = "PLATE_MAX_FRAMES"
	EnvMinConfidence    = "PLATE_MIN_TEXT_CONFIDENCE"
	EnvVehicleModel     = "PLATE_VEHICLE_MODEL"
	EnvPlateModel       = "PLATE_PLATE_MODEL"
	EnvDetectorBackend  = "PLATE_DETECTOR_BACKEND"
	EnvRecognizer       = "PLATE_RECOGNIZER_BACKEND"
	EnvLanguage         = "PLATE_LANGUAGE"
	EnvModelServiceAddr = "PLATE_MODEL_SERVICE_ADDR"
	EnvModelCallTimeout = "PLATE_MODEL_CALL_TIMEOUT"
	EnvDatabase         = "PLATE_DB"
	EnvLiveAddr         = "PLATE_LIVE_ADDR"
)

// LoadEnv loads variables from the given .env files (default ".env") into
// the process environment. Missing files are ignored; variables already
// set are not overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays PLATE_* environment variables onto c and validates
// the result. Unset or empty variables leave c unchanged.
func (c *RunConfig) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *RunConfig) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvMode); v != "" {
		c.Mode = ptrString(v)
	}
	if v := getenv(EnvMaxFrames); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxFrames, err)
		}
		c.MaxFrames = ptrInt(n)
	}
	if v := getenv(EnvMinConfidence); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMinConfidence, err)
		}
		c.MinTextConfidence = ptrFloat64(f)
	}

	detector := func() *DetectorConfig {
		if c.Detector == nil {
			c.Detector = &DetectorConfig{}
		}
		return c.Detector
	}
	recognizer := func() *RecognizerConfig {
		if c.Recognizer == nil {
			c.Recognizer = &RecognizerConfig{}
		}
		return c.Recognizer
	}
	if v := getenv(EnvVehicleModel); v != "" {
		detector().VehicleModel = ptrString(v)
	}
	if v := getenv(EnvPlateModel); v != "" {
		detector().PlateModel = ptrString(v)
	}
	if v := getenv(EnvDetectorBackend); v != "" {
		detector().Backend = ptrString(v)
	}
	if v := getenv(EnvRecognizer); v != "" {
		recognizer().Backend = ptrString(v)
	}
	if v := getenv(EnvLanguage); v != "" {
		recognizer().Language = ptrString(v)
	}

	if v := getenv(EnvModelServiceAddr); v != "" {
		c.ModelServiceAddr = ptrString(v)
	}
	if v := getenv(EnvModelCallTimeout); v != "" {
		c.ModelCallTimeout = ptrString(v)
	}
	if v := getenv(EnvDatabase); v != "" {
		c.Database = ptrString(v)
	}
	if v := getenv(EnvLiveAddr); v != "" {
		c.LiveAddr = ptrString(v)
	}
	return c.Validate()
}
