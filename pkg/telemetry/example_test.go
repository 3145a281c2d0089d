package telemetry_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/tunekit/tunekit/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("Application started")

	// Output varies, no output specified
}

// Example_instrumentedOperation demonstrates wrapping a bulk load in a span.
func Example_instrumentedOperation() {
	cfg := telemetry.DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "none"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	op := telemetry.StartOperation(ctx, "config.load",
		telemetry.AttrModel.String("SuperABS"),
		telemetry.AttrSource.String("params.yaml"),
	)
	failures := 2
	tel.Metrics.RecordLoad("required", failures, op.Timer.Duration())
	op.End(errors.New("2 parameters could not be read"))

	fmt.Println(op.Span != nil)
	// Output: true
}
