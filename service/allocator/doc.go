// Package allocator owns the resource ledger: the committed CPU/RAM amounts of
// every process and their per-host sums. It is the only component allowed to
// mutate allocations and it answers admission questions for the processor.
package allocator
