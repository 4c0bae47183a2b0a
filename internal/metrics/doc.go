// Package metrics records assembly run metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics stay optional:
//
//	type Dispatcher struct {
//	    Recorder metrics.Recorder
//	}
//
// When a textfile path is configured the pipeline swaps in a
// PrometheusRecorder and writes its registry with WriteTextfile after each
// run, for collection by the node_exporter textfile collector.
package metrics
