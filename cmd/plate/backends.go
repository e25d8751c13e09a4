package main

import (
	"fmt"
	"io"
	"log"

	"github.com/banshee-data/plate.report/internal/alpr/detect"
	"github.com/banshee-data/plate.report/internal/alpr/pipeline"
	"github.com/banshee-data/plate.report/internal/alpr/recognize"
	"github.com/banshee-data/plate.report/internal/alpr/remote"
	"github.com/banshee-data/plate.report/internal/config"
)

// backends holds the model collaborators of a run. vehicles is nil when
// not needed.
type backends struct {
	vehicles   pipeline.Detector
	plates     pipeline.Detector
	recognizer pipeline.Recognizer
	closers    []io.Closer
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			log.Printf("close backend: %v", err)
		}
	}
}

func detectorConfig(cfg *config.RunConfig, name, model string) detect.Config {
	return detect.Config{
		Name:           name,
		ModelPath:      model,
		InputSize:      cfg.GetInputSize(),
		ScoreThreshold: cfg.GetScoreThreshold(),
		NMSThreshold:   cfg.GetNMSThreshold(),
	}
}

// openBackends builds the detectors and recognizer selected by cfg.
func openBackends(cfg *config.RunConfig, needVehicles bool) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	var client *remote.Client
	remoteClient := func() (*remote.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := remote.Dial(cfg.GetModelServiceAddr(), cfg.GetModelCallTimeout())
		if err != nil {
			return nil, err
		}
		client = c
		b.closers = append(b.closers, c)
		return c, nil
	}

	switch cfg.GetDetectorBackend() {
	case config.BackendRemote:
		c, err := remoteClient()
		if err != nil {
			return nil, err
		}
		b.plates = c.PlateDetector()
		if needVehicles {
			b.vehicles = c.VehicleDetector()
		}
	default:
		plates, err := detect.NewDNN(detectorConfig(cfg, "plate", cfg.GetPlateModel()))
		if err != nil {
			return nil, fmt.Errorf("plate detector: %w", err)
		}
		b.closers = append(b.closers, plates)
		b.plates = plates
		if needVehicles {
			vehicles, err := detect.NewDNN(detectorConfig(cfg, "vehicle", cfg.GetVehicleModel()))
			if err != nil {
				return nil, fmt.Errorf("vehicle detector: %w", err)
			}
			b.closers = append(b.closers, vehicles)
			b.vehicles = vehicles
		}
	}

	switch cfg.GetRecognizerBackend() {
	case config.BackendRemote:
		c, err := remoteClient()
		if err != nil {
			return nil, err
		}
		b.recognizer = c.Recognizer()
	default:
		wl, set := cfg.GetWhitelist()
		if !set {
			wl = recognize.DefaultWhitelist
		}
		t, err := recognize.NewTesseract(recognize.Config{Language: cfg.GetLanguage(), Whitelist: wl})
		if err != nil {
			return nil, fmt.Errorf("recognizer: %w", err)
		}
		b.closers = append(b.closers, t)
		b.recognizer = t
	}
	return b, nil
}
