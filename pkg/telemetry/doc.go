// Package telemetry provides logging, tracing and metrics for froyo-playbook.
//
// Logging uses zerolog. Components receive a zerolog.Logger obtained from
// Logger.Zerolog and tag it with a "component" field.
//
// Tracing uses OpenTelemetry. Each playbook invocation is one "playbook.run"
// span carrying the run ID, playbook path, mode and resolved state. Exporters:
// stdout, otlp (gRPC) or none.
//
// Metrics use a private Prometheus registry. The process runs once per
// invocation, so instead of serving /metrics the registry is written to a
// node_exporter textfile on shutdown:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.TextfilePath = "/var/lib/node_exporter/froyo_playbook.prom"
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
package telemetry
