package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"omr-service/internal/imaging"
	"omr-service/internal/omr"
	"omr-service/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	defaults := omr.DefaultConfig()

	fs := ff.NewFlagSet("omr-server")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		fetchTimeout = fs.DurationLong("fetch-timeout", 30*time.Second, "Timeout for downloading a sheet image")

		blur          = fs.IntLong("blur", defaults.BlurKernelSize, "Gaussian smoothing kernel size in pixels")
		thresholdMode = fs.StringLong("threshold-mode", string(defaults.ThresholdMode), "Binarization strategy: 'fixed' or 'adaptive'")
		thresholdVal  = fs.Float64Long("threshold-value", defaults.ThresholdValue, "Global intensity cutoff for fixed mode (0-1)")
		minRadius     = fs.IntLong("min-radius", defaults.MinRadius, "Minimum bubble radius in pixels")
		maxRadius     = fs.IntLong("max-radius", defaults.MaxRadius, "Maximum bubble radius in pixels")
		minDist       = fs.IntLong("min-dist", defaults.MinDist, "Minimum distance between bubble centers in pixels")
		edgeThresh    = fs.Float64Long("edge-threshold", defaults.EdgeThreshold, "Gradient strength required to vote (0-1)")
		accumThresh   = fs.Float64Long("accumulator-threshold", defaults.AccumulatorThreshold, "Circumference fraction required to accept a center (0-1)")
		rowSep        = fs.Float64Long("row-separation", defaults.RowSeparationFactor, "Row gap as a multiple of the median bubble diameter")
		markedThresh  = fs.Float64Long("marked-threshold", defaults.MarkedThreshold, "Minimum dark fraction for a marked bubble (0-1)")
		sepThresh     = fs.Float64Long("separation-threshold", defaults.SeparationThreshold, "Minimum lead over the runner-up for an unambiguous answer (0-1)")

		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("OMR_SERVICE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("omr-server %s (%s)\n", Version, GitCommit)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := omr.DetectionConfig{
		BlurKernelSize:       *blur,
		ThresholdMode:        imaging.ThresholdMode(*thresholdMode),
		ThresholdValue:       *thresholdVal,
		MinRadius:            *minRadius,
		MaxRadius:            *maxRadius,
		MinDist:              *minDist,
		EdgeThreshold:        *edgeThresh,
		AccumulatorThreshold: *accumThresh,
		RowSeparationFactor:  *rowSep,
		FillSampleScale:      defaults.FillSampleScale,
		MarkedThreshold:      *markedThresh,
		SeparationThreshold:  *sepThresh,
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid detection configuration", "error", err)
		os.Exit(1)
	}

	handler := server.NewOMRHandler(server.NewHTTPFetcher(*fetchTimeout), cfg, log)
	router := server.NewRouter(handler)

	log.Info("starting omr-server", "version", Version, "port", *port, "threshold_mode", cfg.ThresholdMode)
	if err := router.Run(fmt.Sprintf(":%d", *port)); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
