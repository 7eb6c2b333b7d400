package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/logger"
	"github.com/ironsheep/region-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("region-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("region-tools-mcp - MCP server for image region detection")
			fmt.Println()
			fmt.Println("Usage: region-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  REGION_MCP_LOG_LEVEL=debug        Log level (debug, info, warn, error)")
			fmt.Println("  REGION_MCP_LOG_FORMAT=console     Human readable logs instead of JSON")
			fmt.Println("  REGION_MCP_POOL_CAPACITY=4096     Initial record pool capacity")
			fmt.Println("  REGION_MCP_TRACK_TIMES=true       Log the duration of each detection stage")
			fmt.Println("  REGION_MCP_FRAMES=32              Number of detection results kept")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// stdout is for the MCP protocol
	level := logger.ParseLevel(os.Getenv("REGION_MCP_LOG_LEVEL"))
	var log zerolog.Logger
	if os.Getenv("REGION_MCP_LOG_FORMAT") == "console" {
		log = logger.NewConsole(os.Stderr, level)
	} else {
		log = logger.New(os.Stderr, level)
	}

	cfg, frames, err := configFromEnv(os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Int("pool_capacity", cfg.PoolInitialCapacity).
		Bool("track_times", cfg.TrackTimes).
		Int("frames", frames).
		Msg("starting")

	srv := server.New(
		server.WithLogger(logger.Component(log, "server")),
		server.WithDetectionConfig(cfg),
		server.WithFrameLimit(frames),
	)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// configFromEnv reads the detector settings and the frame limit. Unset
// variables keep their defaults.
func configFromEnv(getenv func(string) string) (detection.Config, int, error) {
	cfg := detection.DefaultConfig()
	frames := 0

	if v := getenv("REGION_MCP_POOL_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, 0, fmt.Errorf("REGION_MCP_POOL_CAPACITY: %w", err)
		}
		cfg.PoolInitialCapacity = n
	}
	if v := getenv("REGION_MCP_TRACK_TIMES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, 0, fmt.Errorf("REGION_MCP_TRACK_TIMES: %w", err)
		}
		cfg.TrackTimes = b
	}
	if v := getenv("REGION_MCP_FRAMES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, 0, fmt.Errorf("REGION_MCP_FRAMES: %w", err)
		}
		frames = n
	}

	if err := cfg.Validate(); err != nil {
		return cfg, 0, err
	}
	return cfg, frames, nil
}
