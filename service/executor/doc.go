// Package executor simulates process execution: it estimates how long a
// process runs for a given resource allocation, arms cancellable completion
// timers and runs per-type completion handlers before a process is finished.
package executor
