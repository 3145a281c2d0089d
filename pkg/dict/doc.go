// Package dict publishes scalar tunable parameters to a host's named-value
// dictionary.
//
// An Exporter resolves a parameter through a tunable.Handle and registers a
// Quantity that points straight at model memory, so the host observes every
// write without copying. Two dictionaries are provided: MemoryDictionary for
// embedding and tests, and PromDictionary which turns each quantity into a
// Prometheus gauge read on scrape.
//
//	d := dict.NewPromDictionary("model")
//	e := dict.NewExporter(d, dict.WithLogger(logger))
//	if err := e.ExportScalar(h, "ctrl.kp", tunable.Float64, "", "1", dict.AccessOutput); err != nil {
//		return err
//	}
//	http.Handle("/metrics", d.Handler())
package dict
