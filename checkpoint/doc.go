package checkpoint

/*

# Checkpoint protocol

A checkpoint is an atomic snapshot of a coordinator's frontier: the
original range, the unconsumed pending units, the units that were in flight
when the snapshot was taken, the completed unit ids, and the results so
far. Assignment state is deliberately discarded: on resume, in-flight units
fold back into the pending queue and are handed out afresh.

The on-disk artifact is a fixed little-endian header (magic "KQCP", schema
version, payload length) followed by a CBOR-encoded snapshot body. Writes
are atomic: temp file, fsync, rename. Loads verify the magic, the schema
version, the payload length, and finally the filter digest against the
filter the resuming process built; a digest mismatch means the target set
changed and the completed-unit bookkeeping cannot be trusted.

Completed unit ids are stored run-length encoded. A healthy run completes
units in long contiguous stretches, so the encoding is tiny even for
millions of units.

A checkpoint may additionally be sealed: a COSE Sign1 envelope over the
snapshot digest, letting a fleet operator verify that a resumed state was
produced by a trusted coordinator and not tampered with at rest.

*/
