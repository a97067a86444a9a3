// Package factory builds pluggable modules, such as metrics sinks, from
// configuration. A module is a type name plus raw settings that the
// registered factory decodes into its own struct:
//
//	sinks := factory.NewRegistry[metrics.MetricsSink]()
//	sinks.MustRegister("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c.URL), nil
//	})
//	sink, err := sinks.Create(factory.ModuleConfig{Type: "influx", Conf: map[string]any{"url": "http://db:8086"}})
package factory
