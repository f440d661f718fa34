// Package work tracks the life cycle of work units: contiguous sub-ranges
// of the search range handed out to workers.
//
// Units are generated lazily from (range, unit width, next id): unit i
// covers [start + i*width, start + (i+1)*width - 1], clamped to the range
// end. The ledger therefore never materializes the full unit list, which
// for a wide range would be astronomically long. The pending queue holds
// only units that came back — timed out or restored from a checkpoint —
// and those are handed out before any fresh unit is generated.
//
// State transitions: Pending -> InProgress -> Completed, with
// InProgress -> Pending on timeout. Completion of an id the ledger no
// longer tracks is dropped silently: that is a late report for a unit that
// was already reassigned.
package work
