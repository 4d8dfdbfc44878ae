// ABOUTME: Terminal watcher for the pulse sync channel
// ABOUTME: Mirrors server state over WebSocket and renders periodic updates

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/pulsehq/pulse/internal/config"
	"github.com/pulsehq/pulse/internal/store"
	"github.com/pulsehq/pulse/internal/syncclient"
)

const defaultURL = "ws://localhost:8080/ws"

const renderInterval = 2 * time.Second

func main() {
	url := defaultURL
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, url); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, url string) error {
	cfg := config.Default()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	cyan.Println("pulse-watch")
	gray.Printf("  channel: %s\n\n", url)

	client := syncclient.New(syncclient.Options{
		URL:           url,
		BaseDelay:     cfg.Reconnect.BaseDelay,
		MaxDelay:      cfg.Reconnect.MaxDelay,
		MaxAttempts:   cfg.Reconnect.MaxAttempts,
		OnStateChange: printState,
	})
	defer client.Disconnect()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			gray.Println("  bye")
			return nil
		case <-ticker.C:
			render(client)
		}
	}
}

func printState(state syncclient.State) {
	prefix := "  ● "
	switch state {
	case syncclient.StateConnected:
		color.New(color.FgGreen).Print(prefix)
	case syncclient.StateReconnecting, syncclient.StateConnecting:
		color.New(color.FgYellow).Print(prefix)
	case syncclient.StateFailed, syncclient.StateDisconnected:
		color.New(color.FgRed).Print(prefix)
	default:
		color.New(color.FgHiBlack).Print(prefix)
	}
	fmt.Println(state)
}

func render(client *syncclient.Client) {
	if !client.Connected() {
		return
	}

	mirror := client.Mirror()
	snap := mirror.System()
	agents := mirror.Agents()

	gray := color.New(color.FgHiBlack)
	gray.Printf("  %s  ", time.Now().Format("15:04:05"))

	printSystemStatus(snap.Status)
	fmt.Printf("  cpu %.0f%%  mem %.0f%%  agents %d\n",
		snap.Metrics.CPUUsage, snap.Metrics.MemoryUsage, len(agents))

	for _, agent := range agents {
		printAgent(agent)
	}
}

func printSystemStatus(status store.SystemStatus) {
	switch status {
	case store.SystemStatusHealthy:
		color.New(color.FgGreen).Print(status)
	case store.SystemStatusDegraded:
		color.New(color.FgYellow).Print(status)
	default:
		color.New(color.FgRed).Print(status)
	}
}

func printAgent(agent *store.Agent) {
	marker := color.New(color.FgHiBlack)
	if agent.Status == store.AgentStatusActive {
		marker = color.New(color.FgGreen)
	} else if agent.Status == store.AgentStatusError {
		marker = color.New(color.FgRed)
	}

	marker.Print("    ▸ ")
	fmt.Printf("%-20s %-8s", agent.Name, agent.Status)
	if agent.CurrentTask != nil {
		color.New(color.FgHiBlack).Printf("  %s", *agent.CurrentTask)
	}
	fmt.Println()
}
