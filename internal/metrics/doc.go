// Package metrics provides the observability hooks used by the build
// pipeline, the development server and the contact relay.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no caller needs nil checks:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Monitoring.Metrics.Enabled {
//	    reg := prom.NewRegistry()
//	    rec = metrics.NewPrometheusRecorder(reg)
//	    mux.Handle(cfg.Monitoring.Metrics.Path, metrics.HTTPHandler(reg))
//	}
package metrics
