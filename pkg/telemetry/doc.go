// Package telemetry provides observability instrumentation for tunekit tools.
//
// It integrates structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus) behind one Telemetry value created at startup.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// Core packages take a plain zerolog.Logger through their options; pass
// tel.Logger.Zerolog() or a component child of it:
//
//	logger := tel.Logger.NewComponentLogger("config").WithModel("SuperABS")
//	bridge := config.NewBridge(h, config.WithLogger(logger.Zerolog()))
//
// # Tracing
//
// Bulk loads and snapshot operations are wrapped in spans:
//
//	ctx, span := tel.Tracer.StartLoadSpan(ctx, "SuperABS", "params.yaml", "required")
//	defer span.End()
//
// Exporters: otlp (gRPC), stdout, none.
//
// # Metrics
//
// Metrics live in a private registry served by Handler:
//
//	tunekit_config_reads_total{source,status}
//	tunekit_config_load_duration_seconds{mode}
//	tunekit_config_load_failures_total{mode}
//	tunekit_param_writes_total{operation,status}
//	tunekit_tunables{model}
//	tunekit_quantities_exported_total{access}
//	tunekit_snapshot_operations_total{operation,status}
//	tunekit_policy_violations_total{policy}
//	tunekit_errors_by_class_total{class}
//
// All Metrics methods are no-ops on a nil or disabled collector, so
// libraries can record unconditionally.
package telemetry
