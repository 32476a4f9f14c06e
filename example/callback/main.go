package main

import (
	"context"
	"fmt"
	"log"
	"time"

	equinesync "github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System"
)

func main() {
	flow, err := equinesync.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(alert equinesync.Alert) error {
		fmt.Printf("%s [%s] horse=%s type=%s leg=%s value=%.1f\n",
			alert.Timestamp.Format(time.RFC3339),
			alert.Severity,
			alert.HorseID,
			alert.Type,
			alert.Leg,
			alert.Value,
		)
		return nil
	}

	if err := flow.Run(ctx, equinesync.StreamOutAlertCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
