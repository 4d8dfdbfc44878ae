// ABOUTME: Entry point for the pulse-server sync core
// ABOUTME: Serves the agent/session API and the live WebSocket channel

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/pulsehq/pulse/internal/config"
	"github.com/pulsehq/pulse/internal/hub"
	"github.com/pulsehq/pulse/internal/metrics"
	"github.com/pulsehq/pulse/internal/respond"
	"github.com/pulsehq/pulse/internal/scheduler"
	"github.com/pulsehq/pulse/internal/server"
	"github.com/pulsehq/pulse/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
             _
 _ __  _   _| |___  ___
| '_ \| | | | / __|/ _ \
| |_) | |_| | \__ \  __/
| .__/ \__,_|_|___/\___|
|_|
`

// getConfigPath returns the path to the server config file.
// Priority: PULSE_CONFIG env var > XDG_CONFIG_HOME/pulse/server.yaml > ~/.config/pulse/server.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PULSE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "server.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "pulse", "server.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pulse-server <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve     Start the sync server")
		fmt.Println("  health    Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, or falls back to defaults when the
// default location has no file.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) && os.Getenv("PULSE_CONFIG") == "" {
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Ticks:     metrics %s, agents %s\n", cfg.Broadcast.MetricsInterval, cfg.Broadcast.AgentInterval)
	fmt.Println()

	logger.Info("starting pulse-server",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"metrics_interval", cfg.Broadcast.MetricsInterval,
		"agent_interval", cfg.Broadcast.AgentInterval,
	)

	st := store.New()
	h := hub.New(st, logger)
	sampler := metrics.NewSynthetic(nil)

	registry := respond.NewRegistry(logger)
	if err := registry.Register(respond.MockPrefix, respond.NewMock()); err != nil {
		return fmt.Errorf("registering mock provider: %w", err)
	}

	sched := scheduler.New(st, sampler, h,
		cfg.Broadcast.MetricsInterval, cfg.Broadcast.AgentInterval, logger)
	go sched.Run(ctx)

	srv := server.New(cfg, st, h, registry, logger)
	return srv.Start(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
