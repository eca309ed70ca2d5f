package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	captureengine "github.com/e7canasta/capture-engine"
	"github.com/e7canasta/capture-engine/internal/gpu"
)

// Version information
const version = "v0.1.0"

// identityPose is a fixed host coordinate system for probing transform
// delivery without a tracking stack.
type identityPose struct{}

func (identityPose) Transforms() (gpu.Matrix4, gpu.Matrix4, error) {
	return gpu.Identity(), gpu.Identity(), nil
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	width := flag.Uint("width", 1280, "Capture width in pixels")
	height := flag.Uint("height", 720, "Capture height in pixels")
	audio := flag.Bool("audio", false, "Capture audio alongside video")
	overlay := flag.Bool("overlay", false, "Attach the compositing overlay")
	pose := flag.Bool("pose", false, "Recompute camera transforms per frame")
	duration := flag.Duration("duration", 0, "Capture duration (0 = until interrupted)")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("capture-probe %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg := captureengine.DefaultConfig()
	if *configPath != "" {
		loaded, err := captureengine.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *width == 0 || *height == 0 {
		log.Fatalf("Invalid dimensions: %dx%d", *width, *height)
	}

	// Print banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║              Capture Engine Probe %s                  ║\n", version)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Resolution:    %dx%d\n", *width, *height)
	fmt.Printf("  Role:          %s\n", cfg.Role)
	fmt.Printf("  Audio:         %v\n", *audio)
	fmt.Printf("  Overlay:       %v\n", *overlay)
	fmt.Printf("  Pose:          %v\n", *pose)
	fmt.Printf("\n")

	var videoFrames, audioFrames, failures atomic.Uint64
	started := make(chan struct{}, 1)
	stopped := make(chan struct{}, 1)

	provider := gpu.NewSoftwareProvider()

	engine, err := captureengine.Create(provider, func(s captureengine.State) {
		switch s.Kind {
		case captureengine.StatePreviewStarted:
			started <- struct{}{}
		case captureengine.StatePreviewStopped:
			stopped <- struct{}{}
		case captureengine.StatePreviewVideoFrame:
			videoFrames.Add(1)
		case captureengine.StatePreviewAudioFrame:
			audioFrames.Add(1)
		case captureengine.StateFailed:
			failures.Add(1)
			slog.Error("Capture failed", "error", s.Err)
		}
	}, captureengine.WithConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	if *pose {
		engine.SetAppCoordinateSystem(identityPose{})
	}

	// Subscribe to delivery events so per-sample traffic is visible in debug.
	handler := captureengine.NewPayloadHandler()
	engine.SetPayloadHandler(handler)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Starting preview...")
	if err := engine.StartPreview(uint32(*width), uint32(*height), *audio, *overlay); err != nil {
		log.Fatalf("Failed to start preview: %v", err)
	}

	select {
	case <-started:
		slog.Info("Preview started")
	case <-time.After(30 * time.Second):
		if lastErr := engine.LastError(); lastErr != nil {
			log.Fatalf("Preview did not start: %v", lastErr)
		}
		log.Fatalf("Preview did not start within 30s")
	}

	fmt.Printf("Capturing... press Ctrl+C to stop\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n\n")

	startTime := time.Now()

	statsTicker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer statsTicker.Stop()

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

run:
	for {
		select {
		case <-sigChan:
			fmt.Printf("\n\nReceived interrupt signal, shutting down...\n")
			break run

		case <-deadline:
			fmt.Printf("\nCapture duration elapsed, shutting down...\n")
			break run

		case <-statsTicker.C:
			stats := engine.Stats()
			uptime := time.Since(startTime)

			fmt.Printf("\n")
			fmt.Printf("╭─────────────────────────────────────────────────────────╮\n")
			fmt.Printf("│ Capture Statistics (Uptime: %s)\n", uptime.Round(time.Second))
			fmt.Printf("├─────────────────────────────────────────────────────────┤\n")
			fmt.Printf("│ Video Frames:       %6d delivered\n", stats.VideoFrames)
			fmt.Printf("│ Video Notifies:     %6d callbacks\n", videoFrames.Load())
			fmt.Printf("│ Audio Frames:       %6d delivered\n", stats.AudioFrames)
			fmt.Printf("│ Failures:           %6d\n", failures.Load())
			fmt.Printf("╰─────────────────────────────────────────────────────────╯\n")
			fmt.Printf("\n")
		}
	}

	slog.Info("Stopping preview...")
	if err := engine.StopPreview(); err != nil && !errors.Is(err, captureengine.ErrOperationInFlight) {
		slog.Error("Error stopping preview", "error", err)
	} else {
		select {
		case <-stopped:
		case <-time.After(10 * time.Second):
			slog.Warn("Stop did not complete within 10s")
		}
	}

	engine.Shutdown()

	// Final stats
	finalStats := engine.Stats()
	uptime := time.Since(startTime)

	fmt.Printf("\n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("                     Final Statistics                      \n")
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("  Session:            %s\n", finalStats.SessionID)
	fmt.Printf("  Total Uptime:       %s\n", uptime.Round(time.Second))
	fmt.Printf("  Video Frames:       %d delivered\n", finalStats.VideoFrames)
	fmt.Printf("  Audio Frames:       %d delivered\n", finalStats.AudioFrames)
	fmt.Printf("  Failures:           %d\n", failures.Load())
	if lastErr := engine.LastError(); lastErr != nil {
		fmt.Printf("  Last Error:         %v\n", lastErr)
	}
	fmt.Printf("═══════════════════════════════════════════════════════════\n")
	fmt.Printf("\n")

	slog.Info("Capture probe completed")
}
