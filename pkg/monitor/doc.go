/*
Package monitor implements the reconciliation engine that keeps declared
containers running.

The Monitor owns the managed-container state and drives two timers from a
single goroutine:

	┌──────────────────────────────────────────────────┐
	│                 Monitoring Loop                  │
	└──────────┬──────────────────────────┬────────────┘
	           │ check interval           │ status interval
	           ▼                          ▼
	   ┌───────────────┐         ┌──────────────────┐
	   │ ReconcileOnce │         │ StatusSummary +  │
	   └──────┬────────┘         │ Discover         │
	          │                  └──────────────────┘
	          ▼
	  reload config ─ paths changed? ─ yes ─► rediscover, done
	          │ no
	          ▼
	  list running containers
	          │
	          ▼
	  for each managed container absent from the running set:
	      eligible (under failure cap, outside backoff)?
	          │ yes
	          ▼
	      restart its compose unit, wait the settle delay,
	      re-query, record success or failure

A reconciliation pass holds the monitor mutex end to end, including the
settle delay, so the two timer handlers never touch shared state
concurrently even if their ticks coincide.

Eligibility follows the lifecycle records in pkg/state: a container whose
failure streak reached the configured maximum is never restarted again
until a rediscovery rebuilds its record, and a container inside its
exponential backoff window is skipped for the cycle. A failed runtime
query aborts the whole cycle without recording anything — an unreachable
runtime must not be mistaken for a fleet outage.

The container runtime is abstracted behind the Inspector interface so
tests drive reconciliation against a scripted fake instead of spawning
podman processes.
*/
package monitor
