package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/nikhathmuzawar/pickplace-app/internal/devicesim"
)

func main() {
	defaults := devicesim.DefaultOptions()
	serverURL := flag.String("url", defaults.ServerURL, "relay base URL")
	imageDir := flag.String("images", defaults.ImageDir, "directory of .png/.jpg images to publish")
	interval := flag.Duration("interval", defaults.FrameInterval, "camera frame interval")
	reconnect := flag.Duration("reconnect", defaults.ReconnectDelay, "delay between reconnect attempts")
	noCamera := flag.Bool("no-camera", false, "do not stream frames to the ingestion socket")
	flag.Parse()

	sim, err := devicesim.New(devicesim.Options{
		ServerURL:      *serverURL,
		ImageDir:       *imageDir,
		FrameInterval:  *interval,
		ReconnectDelay: *reconnect,
	})
	if err != nil {
		log.Fatalf("Failed to start simulator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*noCamera {
		go func() {
			if err := sim.RunCamera(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Camera stream stopped: %v", err)
			}
		}()
	}

	if err := sim.RunDevice(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Device session stopped: %v", err)
	}
	log.Println("Simulator stopped")
}
