// Package log provides the global zerolog logger for podkeep.
//
// Init configures a console writer (human-readable by default, raw JSON
// with Config.JSONOutput) and, when a log directory is configured, tees
// every event into a JSON file sink at <dir>/podkeep.log. Packages derive
// child loggers with WithComponent or WithContainer so every line carries
// its origin.
package log
