// Package metrics defines sinks recording dispatch outcomes for later
// analysis. MetricsSink is mandatory; the other recorder interfaces are
// optional and detected with type assertions.
package metrics
