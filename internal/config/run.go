// Package config loads the run configuration. Every field is optional: a
// nil pointer means "use the default", which the Get* accessors supply.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/plate.report/internal/alpr"
)

// Backend names.
const (
	BackendDNN       = "dnn"
	BackendTesseract = "tesseract"
	BackendRemote    = "remote"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// RunConfig is the root configuration of a run.
type RunConfig struct {
	Mode                 *string  `json:"mode,omitempty"`
	MaxFrames            *int     `json:"max_frames,omitempty"` // 0 = no limit
	VehicleClasses       []int    `json:"vehicle_classes,omitempty"`
	ContainmentTolerance *float64 `json:"containment_tolerance,omitempty"` // pixels
	MinTextConfidence    *float64 `json:"min_text_confidence,omitempty"`

	Tracker    *TrackerConfig    `json:"tracker,omitempty"`
	Detector   *DetectorConfig   `json:"detector,omitempty"`
	Recognizer *RecognizerConfig `json:"recognizer,omitempty"`

	ModelServiceAddr *string `json:"model_service_addr,omitempty"`
	ModelCallTimeout *string `json:"model_call_timeout,omitempty"` // duration string like "30s"

	// Outputs
	Output      *string `json:"output,omitempty"`   // CSV path
	Database    *string `json:"database,omitempty"` // SQLite path, empty disables persistence
	ReportDir   *string `json:"report_dir,omitempty"`
	AnnotateDir *string `json:"annotate_dir,omitempty"`
	LiveAddr    *string `json:"live_addr,omitempty"` // e.g. ":8090", empty disables
}

// TrackerConfig tunes the built-in tracker.
type TrackerConfig struct {
	MaxAge       *int     `json:"max_age,omitempty"`
	MinHits      *int     `json:"min_hits,omitempty"`
	IoUThreshold *float64 `json:"iou_threshold,omitempty"`
}

// DetectorConfig selects and tunes the vehicle and plate detectors.
type DetectorConfig struct {
	Backend        *string  `json:"backend,omitempty"`
	VehicleModel   *string  `json:"vehicle_model,omitempty"`
	PlateModel     *string  `json:"plate_model,omitempty"`
	InputSize      *int     `json:"input_size,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	NMSThreshold   *float64 `json:"nms_threshold,omitempty"`
}

// RecognizerConfig selects and tunes the text recognizer.
type RecognizerConfig struct {
	Backend   *string `json:"backend,omitempty"`
	Language  *string `json:"language,omitempty"`
	Whitelist *string `json:"whitelist,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// LoadRunConfig loads a RunConfig from a JSON file. The file must have a
// .json extension and be at most 1MB. Omitted fields keep their defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set. It does not require model
// paths; see CheckBackends.
func (c *RunConfig) Validate() error {
	if c.Mode != nil {
		if _, err := alpr.ParseMode(*c.Mode); err != nil {
			return err
		}
	}
	if c.MaxFrames != nil && *c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must be non-negative, got %d", *c.MaxFrames)
	}
	for _, id := range c.VehicleClasses {
		if id < 0 {
			return fmt.Errorf("vehicle_classes must be non-negative class ids, got %d", id)
		}
	}
	if c.ContainmentTolerance != nil && *c.ContainmentTolerance < 0 {
		return fmt.Errorf("containment_tolerance must be non-negative, got %f", *c.ContainmentTolerance)
	}
	if c.MinTextConfidence != nil && (*c.MinTextConfidence < 0 || *c.MinTextConfidence > 1) {
		return fmt.Errorf("min_text_confidence must be between 0 and 1, got %f", *c.MinTextConfidence)
	}

	if t := c.Tracker; t != nil {
		if t.MaxAge != nil && *t.MaxAge < 0 {
			return fmt.Errorf("tracker.max_age must be non-negative, got %d", *t.MaxAge)
		}
		if t.MinHits != nil && *t.MinHits < 0 {
			return fmt.Errorf("tracker.min_hits must be non-negative, got %d", *t.MinHits)
		}
		if t.IoUThreshold != nil && (*t.IoUThreshold <= 0 || *t.IoUThreshold > 1) {
			return fmt.Errorf("tracker.iou_threshold must be in (0, 1], got %f", *t.IoUThreshold)
		}
	}

	if d := c.Detector; d != nil {
		if d.Backend != nil && *d.Backend != BackendDNN && *d.Backend != BackendRemote {
			return fmt.Errorf("detector.backend must be %q or %q, got %q", BackendDNN, BackendRemote, *d.Backend)
		}
		if d.InputSize != nil && (*d.InputSize <= 0 || *d.InputSize%32 != 0) {
			return fmt.Errorf("detector.input_size must be a positive multiple of 32, got %d", *d.InputSize)
		}
		if d.ScoreThreshold != nil && (*d.ScoreThreshold < 0 || *d.ScoreThreshold > 1) {
			return fmt.Errorf("detector.score_threshold must be between 0 and 1, got %f", *d.ScoreThreshold)
		}
		if d.NMSThreshold != nil && (*d.NMSThreshold < 0 || *d.NMSThreshold > 1) {
			return fmt.Errorf("detector.nms_threshold must be between 0 and 1, got %f", *d.NMSThreshold)
		}
	}

	if r := c.Recognizer; r != nil && r.Backend != nil {
		if *r.Backend != BackendTesseract && *r.Backend != BackendRemote {
			return fmt.Errorf("recognizer.backend must be %q or %q, got %q", BackendTesseract, BackendRemote, *r.Backend)
		}
	}

	if c.ModelCallTimeout != nil && *c.ModelCallTimeout != "" {
		d, err := time.ParseDuration(*c.ModelCallTimeout)
		if err != nil {
			return fmt.Errorf("invalid model_call_timeout '%s': %w", *c.ModelCallTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("model_call_timeout must be positive, got %s", d)
		}
	}
	return nil
}

// CheckBackends reports settings a run cannot start without: model paths
// for local detectors and an address when any backend is remote.
func (c *RunConfig) CheckBackends() error {
	if err := c.Validate(); err != nil {
		return err
	}
	remote := c.GetDetectorBackend() == BackendRemote || c.GetRecognizerBackend() == BackendRemote
	if remote && c.GetModelServiceAddr() == "" {
		return fmt.Errorf("model_service_addr is required when a backend is %q", BackendRemote)
	}
	if c.GetDetectorBackend() == BackendDNN {
		if c.GetPlateModel() == "" {
			return fmt.Errorf("detector.plate_model is required for the %q backend", BackendDNN)
		}
		if c.GetMode() == alpr.ModeWithVehicleAssociation && c.GetVehicleModel() == "" {
			return fmt.Errorf("detector.vehicle_model is required in %s mode", alpr.ModeWithVehicleAssociation)
		}
	}
	return nil
}

// GetMode returns the mode or the default (with-vehicle-association).
// Call Validate first; an unknown mode falls back to the default.
func (c *RunConfig) GetMode() alpr.Mode {
	if c.Mode == nil {
		return alpr.ModeWithVehicleAssociation
	}
	m, err := alpr.ParseMode(*c.Mode)
	if err != nil {
		return alpr.ModeWithVehicleAssociation
	}
	return m
}

// GetMaxFrames returns max_frames or 0 (no limit).
func (c *RunConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return 0
	}
	return *c.MaxFrames
}

// GetVehicleClasses returns the configured classes or car, motorcycle,
// bus and truck.
func (c *RunConfig) GetVehicleClasses() []int {
	if len(c.VehicleClasses) == 0 {
		return append([]int(nil), alpr.DefaultVehicleClasses...)
	}
	return append([]int(nil), c.VehicleClasses...)
}

// GetContainmentTolerance returns containment_tolerance or 0.
func (c *RunConfig) GetContainmentTolerance() float64 {
	if c.ContainmentTolerance == nil {
		return 0
	}
	return *c.ContainmentTolerance
}

// GetMinTextConfidence returns min_text_confidence or 0 (disabled).
func (c *RunConfig) GetMinTextConfidence() float64 {
	if c.MinTextConfidence == nil {
		return 0
	}
	return *c.MinTextConfidence
}

// GetTrackerMaxAge returns tracker.max_age or 1.
func (c *RunConfig) GetTrackerMaxAge() int {
	if c.Tracker == nil || c.Tracker.MaxAge == nil {
		return 1
	}
	return *c.Tracker.MaxAge
}

// GetTrackerMinHits returns tracker.min_hits or 3.
func (c *RunConfig) GetTrackerMinHits() int {
	if c.Tracker == nil || c.Tracker.MinHits == nil {
		return 3
	}
	return *c.Tracker.MinHits
}

// GetTrackerIoUThreshold returns tracker.iou_threshold or 0.3.
func (c *RunConfig) GetTrackerIoUThreshold() float64 {
	if c.Tracker == nil || c.Tracker.IoUThreshold == nil {
		return 0.3
	}
	return *c.Tracker.IoUThreshold
}

// GetDetectorBackend returns detector.backend or "dnn".
func (c *RunConfig) GetDetectorBackend() string {
	if c.Detector == nil || c.Detector.Backend == nil {
		return BackendDNN
	}
	return *c.Detector.Backend
}

// GetVehicleModel returns detector.vehicle_model or "".
func (c *RunConfig) GetVehicleModel() string {
	if c.Detector == nil || c.Detector.VehicleModel == nil {
		return ""
	}
	return *c.Detector.VehicleModel
}

// GetPlateModel returns detector.plate_model or "".
func (c *RunConfig) GetPlateModel() string {
	if c.Detector == nil || c.Detector.PlateModel == nil {
		return ""
	}
	return *c.Detector.PlateModel
}

// GetInputSize returns detector.input_size or 640.
func (c *RunConfig) GetInputSize() int {
	if c.Detector == nil || c.Detector.InputSize == nil {
		return 640
	}
	return *c.Detector.InputSize
}

// GetScoreThreshold returns detector.score_threshold or 0.25.
func (c *RunConfig) GetScoreThreshold() float64 {
	if c.Detector == nil || c.Detector.ScoreThreshold == nil {
		return 0.25
	}
	return *c.Detector.ScoreThreshold
}

// GetNMSThreshold returns detector.nms_threshold or 0.45.
func (c *RunConfig) GetNMSThreshold() float64 {
	if c.Detector == nil || c.Detector.NMSThreshold == nil {
		return 0.45
	}
	return *c.Detector.NMSThreshold
}

// GetRecognizerBackend returns recognizer.backend or "tesseract".
func (c *RunConfig) GetRecognizerBackend() string {
	if c.Recognizer == nil || c.Recognizer.Backend == nil {
		return BackendTesseract
	}
	return *c.Recognizer.Backend
}

// GetLanguage returns recognizer.language or "eng".
func (c *RunConfig) GetLanguage() string {
	if c.Recognizer == nil || c.Recognizer.Language == nil {
		return "eng"
	}
	return *c.Recognizer.Language
}

// GetWhitelist returns recognizer.whitelist and whether it was set. An
// explicit empty string allows every character.
func (c *RunConfig) GetWhitelist() (string, bool) {
	if c.Recognizer == nil || c.Recognizer.Whitelist == nil {
		return "", false
	}
	return *c.Recognizer.Whitelist, true
}

// GetModelServiceAddr returns model_service_addr or "".
func (c *RunConfig) GetModelServiceAddr() string {
	if c.ModelServiceAddr == nil {
		return ""
	}
	return *c.ModelServiceAddr
}

// GetModelCallTimeout returns model_call_timeout or 30s.
func (c *RunConfig) GetModelCallTimeout() time.Duration {
	if c.ModelCallTimeout == nil || *c.ModelCallTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.ModelCallTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetOutput returns the CSV output path or "plates.csv".
func (c *RunConfig) GetOutput() string {
	if c.Output == nil || *c.Output == "" {
		return "plates.csv"
	}
	return *c.Output
}

// GetDatabase returns the SQLite path or "" (persistence disabled).
func (c *RunConfig) GetDatabase() string {
	if c.Database == nil {
		return ""
	}
	return *c.Database
}

// GetReportDir returns report_dir or "" (no report).
func (c *RunConfig) GetReportDir() string {
	if c.ReportDir == nil {
		return ""
	}
	return *c.ReportDir
}

// GetAnnotateDir returns annotate_dir or "" (no overlays).
func (c *RunConfig) GetAnnotateDir() string {
	if c.AnnotateDir == nil {
		return ""
	}
	return *c.AnnotateDir
}

// GetLiveAddr returns live_addr or "" (live server disabled).
func (c *RunConfig) GetLiveAddr() string {
	if c.LiveAddr == nil {
		return ""
	}
	return *c.LiveAddr
}
