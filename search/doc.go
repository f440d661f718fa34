package search

/*

# Local search coordination

This package drives a key search on one host: it owns the target set and
its prefilter, partitions the key range into work units, and dispatches the
units to one engine per device.

The hit path is two-stage. Engines derive candidate public key hashes and
test them against the shared bloom prefilter; only a positive goes on to
the exact lookup in the materialized target set. The filter is built once,
exclusively, before any unit is dispatched, and is read-mostly afterwards.

Engines are polymorphic over the device: CPUEngine sweeps with the shared
task pool; an accelerator engine implements the same Engine capability set
and is selected at construction. The coordinator owns the engines; engines
reach back only through callbacks, never through an owning reference, which
keeps the coordinator/engine/callback graph acyclic.

Sweep strategies: sequential, backward, both ends concurrently, uniform
random, and dance (alternating ends walking inward). All of them honor the
stride and visit each candidate at most once per unit, except random, which
samples with replacement and stops after one range-width worth of samples.

*/
