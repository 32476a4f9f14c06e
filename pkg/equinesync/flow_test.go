package equinesync

import (
	"context"
	"testing"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	col := &stubCollector{}
	resultSink := &stubResultSink{}
	alertSink := &stubAlertSink{}

	rt, err := flow.
		Options(WithoutAPI()).
		StreamIN(
			StreamInCollector(col),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(
			StreamOutResultSink(resultSink),
			StreamOutAlertSink(alertSink),
			StreamOutObservability(&stubObservability{}),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt.collector != col {
		t.Fatalf("expected custom collector to be wired")
	}
	if len(rt.resultSinks) != 1 || rt.resultSinks[0] != resultSink {
		t.Fatalf("expected custom result sink to be wired")
	}
	if len(rt.alertSinks) != 1 || rt.alertSinks[0] != alertSink {
		t.Fatalf("expected custom alert sink to be wired")
	}
}

func TestConfFromConfigRejectsNil(t *testing.T) {
	if _, err := ConfFromConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg, WithFlowOptions(WithoutAPI()))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop immediately to avoid waiting on a real broker.
	cancel()
	if err := flow.StreamIN(
		StreamInCollector(&stubCollector{}),
		StreamInObservability(&stubObservability{}),
	).Run(ctx,
		StreamOutResultSink(&stubResultSink{}),
		StreamOutObservability(&stubObservability{}),
	); err != nil && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestStreamOutAlertCallbackWiresSink(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	rt, err := flow.
		Options(WithoutAPI()).
		StreamIN(
			StreamInCollector(&stubCollector{}),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(
			StreamOutAlertCallback("test-hook", func(Alert) error { return nil }),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if len(rt.alertSinks) != 1 || rt.alertSinks[0].Name() != "test-hook" {
		t.Fatalf("expected callback alert sink to be wired")
	}
}
