package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/banknotes/internal/app"
	"github.com/ayusman/banknotes/internal/capture"
	"github.com/ayusman/banknotes/internal/config"
	"github.com/ayusman/banknotes/internal/display"
	"github.com/ayusman/banknotes/internal/inference"
	"github.com/ayusman/banknotes/internal/server"
	"github.com/ayusman/banknotes/internal/source"
	"github.com/ayusman/banknotes/internal/store"
)

func main() {
	configPath := flag.String("config", "", "optional JSON file overriding the defaults")
	dbPath := flag.String("db", filepath.Join(config.DataDir(), "settings.db"), "settings database path")
	serveAddr := flag.String("serve", "", "serve the preview over HTTP on this address instead of opening a window")
	writeConfig := flag.String("write-config", "", "write the effective non-secret configuration to this file and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.Export(*configPath, *writeConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		log.Printf("Configuration written to %s", *writeConfig)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *serveAddr != "" {
		cfg.Display.ServeAddr = *serveAddr
	}

	client, err := inference.NewClient(cfg.PredictionEndpoint, cfg.PredictionKey, cfg.Timeout())
	if err != nil {
		log.Fatalf("Failed to create prediction client: %v", err)
	}

	// Remembering the last camera and source is optional
	var st *store.Store
	if *dbPath != "" {
		st, err = store.New(*dbPath)
		if err != nil {
			log.Printf("Settings will not be remembered: %v", err)
			st = nil
		} else {
			log.Printf("Settings database: %s", st.Path())
			defer st.Close()
		}
	}

	newDisplay := func(title string) display.Display { return display.NewWindow(title) }
	if cfg.Display.ServeAddr != "" {
		preview := server.NewPreview()
		if _, err := preview.Serve(cfg.Display.ServeAddr); err != nil {
			log.Fatalf("Failed to start preview server: %v", err)
		}
		defer preview.Close()
		newDisplay = func(string) display.Display { return preview }
	}

	application := app.New(cfg, app.Deps{
		Cameras: capture.NewSystemProvider(cfg.Camera.MaxProbe, capture.Settings{
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
		}),
		Predictor:  client,
		Loader:     source.NewLoader(cfg.Timeout()),
		NewDisplay: newDisplay,
		Store:      st,
	})
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Menu(ctx, os.Stdin, os.Stdout); err != nil {
		log.Printf("Error: %v", err)
	}
}
