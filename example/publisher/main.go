package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	equinesync "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System"
	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/simulator"
)

// Pushes simulated telemetry through the external publisher instead of
// running a collector, printing each closed analysis window.
func main() {
	pub, err := equinesync.NewExternalPublisher(&equinesync.ExternalPublisherConfig{
		WAL: equinesync.WALConfig{Dir: "./data/publisher-wal"},
	}, printOutput)
	if err != nil {
		log.Fatalf("new publisher: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := simulator.New(simulator.Config{
		HorseID: "horse-001",
		LameLeg: equinesync.FrontLeft,
	})

	readings := make(chan *equinesync.Reading, 1024)
	if err := sim.Start(readings); err != nil {
		log.Fatalf("start simulator: %v", err)
	}
	defer sim.Stop()

	for {
		select {
		case <-ctx.Done():
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Close(closeCtx); err != nil {
				log.Fatalf("close publisher: %v", err)
			}
			return
		case r := <-readings:
			if err := pub.Publish(*r); err != nil {
				log.Printf("publish: %v", err)
			}
		}
	}
}

func printOutput(horseID string, out *equinesync.Output) error {
	if out.Symmetry != nil {
		fmt.Printf("%s gait=%s total=%.1f\n", horseID, out.Symmetry.Gait, out.Symmetry.Scores.Total)
	}
	if out.HRV != nil {
		fmt.Printf("%s stress=%s score=%d\n", horseID, out.HRV.Stress.Level, out.HRV.Stress.StressScore)
	}
	for _, a := range out.Alerts {
		fmt.Printf("%s ALERT %s %s %s\n", horseID, a.Severity, a.Type, a.Message)
	}
	return nil
}
