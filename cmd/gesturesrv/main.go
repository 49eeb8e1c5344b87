package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gesturesrv/internal/app"
	"gesturesrv/internal/config"
)

func main() {
	var (
		configFileF = flag.String("config", "", "path to an optional YAML config overlay")
		addrF       = flag.String("addr", ":8080", "HTTP listen address")
		cameraDevF  = flag.String("camera-device", "/dev/video0", "capture device or network source URL")
	)

	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger := log.New(os.Stderr, "[gesturesrv] ", log.Ltime)

	if *configFileF != "" {
		if err := cfg.LoadFromFile(*configFileF); err != nil {
			logger.Fatalf("load config file: %v", err)
		}
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "/app/data"
	}
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "gesturesrv.db")
	}

	a, err := app.New(cfg, app.Options{
		Logger:       logger,
		DBPath:       dbPath,
		CameraDevice: *cameraDevF,
	})
	if err != nil {
		logger.Fatalf("failed to initialize application: %v", err)
	}
	defer a.Close()

	logger.Printf("project store initialized at %s", dbPath)
	logger.Printf("default project: %s", cfg.DefaultProject)

	if err := a.Orchestrator.Start(cfg.DefaultProject); err != nil {
		logger.Printf("warning: failed to auto-start default project %q: %v", cfg.DefaultProject, err)
	}

	srv := &http.Server{
		Addr:    *addrF,
		Handler: a.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", *addrF)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logger.Printf("received signal %v, shutting down", sig)
	case err := <-errc:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Orchestrator.Stop(); err != nil {
		logger.Printf("orchestrator stop error: %v", err)
	}
	a.Hub.Shutdown()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("http server shutdown error: %v", err)
	}

	logger.Println("exited")
	fmt.Fprint(os.Stderr, "")
}
