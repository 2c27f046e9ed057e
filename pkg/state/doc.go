/*
Package state tracks the restart lifecycle of managed containers.

Each managed container has a Record holding its restart count, its streak
of consecutive failed restart attempts, and the timestamp anchoring its
backoff window. The backoff grows exponentially with the failure streak,

	2^min(failures, 6) seconds

so it doubles from 1s up to a 64s ceiling and never grows past it. A
successful restart always re-stamps the backoff clock and clears the
streak; a failed attempt stamps the clock only if it is the first failure
of the streak, anchoring backoff to the start of an outage rather than
the most recent attempt.

State bundles the record map with the latest running-container snapshot.
It carries no locking: the monitor owns it and serializes all access.
*/
package state
