// Package metrics defines the Prometheus collectors for the monitor:
// fleet gauges (managed/running containers), loop counters and cycle
// duration, and restart outcome counters. Handler exposes them for an
// optional /metrics listener.
package metrics
