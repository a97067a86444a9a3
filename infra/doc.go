// Package infra holds the adapters behind the core interfaces: the zerolog
// logger, Prometheus and InfluxDB sinks, the MQTT run publisher and the
// Sentry monitor.
package infra
