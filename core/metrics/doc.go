// Package metrics defines the sinks that record engine runs. Sinks like the
// Prometheus, InfluxDB and MQTT ones in infra/metrics register themselves in
// the sink registry and are built from configuration with NewMetricsSink,
// which returns a MultiSink when several sinks are configured.
package metrics
