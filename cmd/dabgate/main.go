package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/dabline/internal/config"
	"github.com/okian/dabline/internal/gatecli"
)

// Default configuration constants.
const (
	defaultTimeout     = 2 * time.Minute
	defaultGateTimeout = 10 * time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	// Tuning and gate defaults come from the service configuration.
	ctx, cancel := context.WithTimeout(context.Background(), defaultGateTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return gatecli.ExitError
	}

	var (
		capture   = flag.String("capture", cfg.GateCapture, "Capture file (YAML or JSON) to certify locally")
		artifact  = flag.String("artifact", cfg.GateArtifact, "Where to write the JSON artifact")
		baseURL   = flag.String("url", "", "Run the gate on a live service instead")
		workers   = flag.Int("workers", cfg.GateWorkers, "Cases run in parallel")
		seed      = flag.Uint64("seed", cfg.GateSeed, "Stress slice seed")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout for -url")
		logFile   = flag.String("log", "", "Also write logs to this file")
		logFormat = flag.String("log-format", cfg.LogFormat, "text or json")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		gatecli.ShowHelp(os.Stdout)
		return gatecli.ExitPass
	}

	closeLog, err := gatecli.SetupLogging(*logFile, *logFormat, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return gatecli.ExitError
	}
	defer func() { _ = closeLog() }()

	gcfg := &gatecli.Config{
		CapturePath:  *capture,
		ArtifactPath: *artifact,
		BaseURL:      *baseURL,
		Workers:      *workers,
		Seed:         *seed,
		Timeout:      *timeout,
		LogFile:      *logFile,
		LogFormat:    *logFormat,
		Verbose:      *verbose,
	}

	a, err := gatecli.Run(ctx, gcfg, cfg.Pipeline(), os.Stdout)
	if err != nil {
		os.Stderr.WriteString("Gate failed to run: " + err.Error() + "\n")
	}
	return gatecli.ExitCode(a, err)
}
