// Package config loads the monitor configuration: the list of compose
// descriptors to supervise, the check and status intervals, and the
// consecutive-failure cap. The file is re-read every check cycle so
// descriptor-list changes take effect without a restart.
package config
