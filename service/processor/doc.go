// Package processor hosts the process lifecycle manager. Every operation is a
// Command dispatched through a single state machine that validates the legal
// transition table, serialises work per process id and keeps the registry,
// resource ledger, execution contexts, hierarchy and completion timers in
// step. Commands can also be submitted asynchronously to workers that keep
// per-process arrival order.
package processor
