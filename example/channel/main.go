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

	sink, alerts, closeAlerts := equinesync.NewChannelAlertSink("fanout", 32)
	defer closeAlerts()

	go fanoutWorker("notify", alerts)

	if err := flow.Run(ctx, equinesync.StreamOutAlertSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, alerts <-chan equinesync.Alert) {
	for alert := range alerts {
		fmt.Printf("[%s] %s %s horse=%s at %s\n",
			name, alert.Severity, alert.Type, alert.HorseID, time.Now().Format(time.RFC3339))
	}
}
