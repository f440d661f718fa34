package secmem

/*

# Aligned and secure memory discipline

This package provides the allocation primitives the hot search paths rely
on:

- aligned buffers for lane-oriented batch processing
- secure buffers for private key material: best-effort page locking on
  allocation, guaranteed zeroization on Close
- a fixed-block pool with O(1) allocation under a single mutex
- a generic resource guard pairing a handle with its disposer
- process-wide allocation counters

Page locking is platform dependent. Lock failure is recorded, logged once by
the caller, and never fatal: a search on a platform without mlock still runs,
it just loses the no-swap property. LockSupported reports the capability.

Zeroization uses byte stores followed by a sequentially consistent atomic so
the compiler cannot elide the writes. Buffers are exclusively owned; Close
zeroizes before the memory is released to the runtime.

*/
