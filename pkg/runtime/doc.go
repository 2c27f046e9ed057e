// Package runtime wraps the external podman tooling the monitor depends
// on: `podman ps` to observe running containers and `podman-compose
// down`/`up -d` to restart a whole deployment unit in place. Both are
// plain command invocations; a non-zero exit from any step is surfaced
// as an error with the command's stderr attached.
package runtime
