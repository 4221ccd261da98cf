// Package temporal keeps retained metric time series and derives
// correlation graphs from them.
//
// Every ProcessMetric call writes one point (last write wins on an equal
// timestamp) and then evicts points older than now minus the retention
// window from that series only. There is no background sweeper.
//
// Correlations use Pearson's coefficient over the points inside a window.
// Series are snapshotted under their own read locks and the math runs on
// the copies, so a large BuildGraph never blocks writers for long.
//
// Example Usage:
//
//	b := temporal.NewBuilder(temporal.DefaultConfig())
//	b.ProcessMetric(metric)
//	corr, ok := b.CalculateCorrelation("latency", "tokens", start, end)
//	graph := b.BuildGraph(start, end)
package temporal
