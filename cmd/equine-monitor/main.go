package main

import (
	"bufio"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	equinesync "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/simulator"
)

//go:embed assets/banner_color.ansi
var bannerColor string

//go:embed assets/banner_plain.txt
var bannerPlain string

func main() {
	fmt.Print(selectBanner())
	fmt.Println()
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "simulate":
		err = simulateCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("equine-monitor %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to monitor configuration file")
	watch := fs.Bool("watch", false, "Hot-reload analysis thresholds when the config file changes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := equinesync.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := equinesync.NewMonitorRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *watch {
		go func() {
			if err := rt.WatchConfig(ctx, *cfgPath); err != nil {
				log.Printf("config watch stopped: %v", err)
			}
		}()
	}

	return rt.Run(ctx)
}

func simulateCommand(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	horseID := fs.String("horse", "horse-001", "Horse identifier for the simulated herd member")
	lameLeg := fs.String("lame-leg", "", "Leg to degrade (FL, FR, BL, BR); empty for a sound horse")
	severity := fs.Float64("severity", 0.3, "Lameness severity between 0 and 1")
	stress := fs.Float64("stress", 0, "Probability per beat of entering a stress episode")
	walDir := fs.String("wal", "./data/sim-wal", "WAL directory for the simulated run")
	apiAddr := fs.String("api", ":8080", "REST/WebSocket listen address")
	metricsAddr := fs.String("metrics", ":9100", "Prometheus metrics listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sim := simulator.New(simulator.Config{
		HorseID:          *horseID,
		LameLeg:          equinesync.LegLabel(*lameLeg),
		LamenessSeverity: *severity,
		StressChance:     *stress,
	})

	cfg := &equinesync.Config{
		Policy: equinesync.Policy{
			MaxWALSizeBytes: 1 << 30,
			MaxQueueLen:     100_000,
			MaxBatchSize:    5_000,
			IdleSleep:       5 * time.Millisecond,
			OnWALFull:       "block",
			OnQueueFull:     "block",
		},
		Metrics: equinesync.MetricsConfig{Addr: *metricsAddr},
		API:     equinesync.APIConfig{Addr: *apiAddr},
		WAL:     equinesync.WALConfig{Dir: *walDir},
	}

	rt, err := equinesync.NewMonitorRuntime(cfg, equinesync.WithCollector(sim))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Simulating horse %s (api %s, metrics %s, Ctrl+C to stop)\n", *horseID, *apiAddr, *metricsAddr)
	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := equinesync.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good ✅\n", *cfgPath)
	return nil
}

func selectBanner() string {
	if os.Getenv("NO_COLOR") != "" {
		return bannerPlain
	}
	return bannerColor
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"equinesync_readings_ingested_total": 0,
		"equinesync_windows_analyzed_total":  0,
		"equinesync_alerts_emitted_total":    0,
		"equinesync_queue_length":            0,
		"equinesync_wal_size_bytes":          0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] readings=%.0f windows=%.0f alerts=%.0f queue=%.0f wal_bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["equinesync_readings_ingested_total"],
		targets["equinesync_windows_analyzed_total"],
		targets["equinesync_alerts_emitted_total"],
		targets["equinesync_queue_length"],
		targets["equinesync_wal_size_bytes"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`EquineSync CLI

Usage:
  equine-monitor <command> [flags]

Commands:
  run        Start the monitoring runtime using the provided config
  simulate   Run the runtime against a built-in herd simulator
  validate   Load and validate a config file without starting the runtime
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  equine-monitor run -config ./data/config.yaml -watch
  equine-monitor simulate -horse horse-001 -lame-leg FL -severity 0.4
  equine-monitor validate -config ./data/config.yaml
  equine-monitor stats -url http://localhost:9100/metrics -interval 1s
`)
}
