// Package events fans monitor lifecycle events (container down, restart
// succeeded/failed, discovery completed) out to in-process subscribers.
// Delivery is best-effort so a slow consumer can never stall the
// reconciliation loop.
package events
