// Package compose reads multi-service compose descriptors and resolves
// the container names they declare.
//
// A service contributes one container unless its restart policy is
// exactly "no" — such services opted out of supervision at the runtime
// level and are left alone here too. The container identity is the
// explicit container_name when present, otherwise the compose default
// {parent-directory}_{service}_1, falling back to the bare service name
// when the descriptor path has no usable parent directory.
package compose
