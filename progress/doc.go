// Package progress keeps aggregated lifecycle counters of the processes handled
// by the engine. Counters are updated with signed deltas so that a transition
// moves one process from one bucket to another.
package progress
