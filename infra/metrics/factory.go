package metrics

import (
	"github.com/kilianp07/slotplan/core/factory"
	coremetrics "github.com/kilianp07/slotplan/core/metrics"
	"github.com/kilianp07/slotplan/infra/mqtt"
)

func mustRegister(name string, f factory.Factory[coremetrics.MetricsSink]) {
	if err := coremetrics.RegisterMetricsSink(name, f); err != nil {
		panic(err)
	}
}

// decodeInto returns a factory decoding the sink conf into C before
// calling build.
func decodeInto[C any](build func(C) (coremetrics.MetricsSink, error)) factory.Factory[coremetrics.MetricsSink] {
	return func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c C
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return build(c)
	}
}

func init() {
	mustRegister("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	// The Prometheus sink takes no settings; it always uses the default
	// registry served by serve-metrics.
	mustRegister("prometheus", decodeInto(func(struct{}) (coremetrics.MetricsSink, error) {
		return NewPromSink()
	}))
	mustRegister("influx", decodeInto(func(c InfluxConfig) (coremetrics.MetricsSink, error) {
		return NewInfluxSinkWithFallback(c), nil
	}))
	mustRegister("mqtt", decodeInto(func(c mqtt.Config) (coremetrics.MetricsSink, error) {
		return mqtt.NewPublisherFromConfig(c)
	}))
}
