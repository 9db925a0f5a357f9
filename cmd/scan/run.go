package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/timmy/mojiscan/internal/app"
	"github.com/timmy/mojiscan/internal/config"
	"github.com/timmy/mojiscan/internal/domain"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/service"
)

const (
	exitOK = iota
	exitFailure
	exitUsage
)

// run parses args, performs one scan and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	imagePath := fs.String("image", "", "Path to the handwritten-text image (png or jpeg)")
	reference := fs.String("reference", "", "Correct text to score the transcription against")
	referenceFile := fs.String("reference-file", "", "File containing the correct text")
	configPath := fs.String("config", "", "Path to config file")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	logLevel := fs.String("log-level", "warn", "Log level written to stderr")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *imagePath == "" {
		fmt.Fprintln(stderr, "error: -image is required")
		fs.Usage()
		return exitUsage
	}
	if *reference != "" && *referenceFile != "" {
		fmt.Fprintln(stderr, "error: -reference and -reference-file are mutually exclusive")
		return exitUsage
	}

	appLogger := logger.New(&logger.Config{
		Level:       *logLevel,
		Format:      "text",
		Output:      stderr,
		ServiceName: "mojiscan-scan",
	})
	logger.SetDefaultLogger(appLogger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to load config: %v\n", err)
		return exitFailure
	}
	appLogger.Redact(cfg.Inference.APIKey)

	ref := *reference
	if *referenceFile != "" {
		data, err := os.ReadFile(*referenceFile)
		if err != nil {
			fmt.Fprintf(stderr, "error: failed to read reference file: %v\n", err)
			return exitFailure
		}
		ref = string(data)
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(stderr, "error: failed to read image: %v\n", err)
		return exitFailure
	}
	image, err := domain.NewImagePayload(data, cfg.Transcribe.AllowedFormats...)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, appLogger, nil)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	result, err := application.Scans.Scan(ctx, &service.ScanRequest{Image: image, Reference: ref})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	printResult(stdout, stderr, result)
	return exitOK
}

func printResult(stdout, stderr io.Writer, result *service.ScanResult) {
	outcome := result.Outcome
	fmt.Fprintln(stdout, outcome.FinalText)

	for _, w := range outcome.Warnings {
		fmt.Fprintf(stderr, "warning: %s (%s)\n", w, outcome.ArbitrationError)
	}

	var meta []string
	meta = append(meta, "path="+string(outcome.Path), fmt.Sprintf("backend_calls=%d", outcome.BackendCalls))
	if result.Score != nil {
		meta = append(meta,
			fmt.Sprintf("edit_distance=%d", result.Score.EditDistance),
			fmt.Sprintf("similarity=%.2f%%", result.Score.SimilarityPercent),
		)
	}
	fmt.Fprintln(stderr, strings.Join(meta, " "))
}
