package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/banshee-data/plate.report/internal/alpr/remote"
	"github.com/banshee-data/plate.report/internal/config"
)

// modelsCommand serves the local detectors and recognizer to remote runs.
func modelsCommand(args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	configPath := fs.String("config", "", "run configuration JSON file")
	envFile := fs.String("env", ".env", "optional .env file with PLATE_* overrides")
	listen := fs.String("listen", ":50051", "gRPC listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.LoadEnv(*envFile); err != nil {
		return err
	}
	cfg := &config.RunConfig{}
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadRunConfig(*configPath); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if cfg.GetDetectorBackend() == config.BackendRemote || cfg.GetRecognizerBackend() == config.BackendRemote {
		return errors.New("models serves local backends; detector and recognizer backends must not be remote")
	}
	if cfg.GetPlateModel() == "" {
		return errors.New("detector.plate_model is required")
	}

	models, err := openBackends(cfg, cfg.GetVehicleModel() != "")
	if err != nil {
		return err
	}
	defer models.Close()

	b := remote.Backends{Plates: models.plates, Recognizer: models.recognizer}
	if models.vehicles != nil {
		b.Vehicles = models.vehicles
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", *listen, err)
	}
	srv := remote.NewServer(b)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Printf("shutting down model service")
		srv.GracefulStop()
	}()

	log.Printf("model service %s listening on %s (vehicles=%v)", remote.ServiceName, lis.Addr(), b.Vehicles != nil)
	return srv.Serve(lis)
}
