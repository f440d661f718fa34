package taskpool

import "errors"

// autoChunk is the default chunk width for the parallel primitives:
// max(1, span / (4 * workers)), giving each worker a few chunks to smooth
// uneven bodies.
func autoChunk(lo, hi uint64, workers int) uint64 {
	if hi <= lo {
		return 1
	}
	c := (hi - lo) / uint64(4*workers)
	if c == 0 {
		c = 1
	}
	return c
}

// ParallelFor partitions [lo, hi) into chunks, submits each as a Normal
// priority task and awaits them all. chunk == 0 selects the automatic
// width. Errors from all chunks are joined.
func (p *Pool) ParallelFor(lo, hi uint64, chunk uint64, body func(lo, hi uint64) error) error {
	if hi <= lo {
		return nil
	}
	if chunk == 0 {
		chunk = autoChunk(lo, hi, p.Workers())
	}
	var fns []Func
	for start := lo; start < hi; start += chunk {
		end := min(start+chunk, hi)
		fns = append(fns, func() error { return body(start, end) })
	}
	handles, err := p.SubmitBatch(fns, Normal)
	if err != nil {
		return err
	}
	var errsAll []error
	for _, h := range handles {
		if err := h.Wait(); err != nil {
			errsAll = append(errsAll, err)
		}
	}
	return errors.Join(errsAll...)
}

// ParallelReduce maps chunks of [lo, hi) in parallel and combines the
// per-chunk results pairwise. combine must be associative; chunk results
// are combined in index order, so commutativity is not required.
func ParallelReduce[T any](p *Pool, lo, hi uint64, chunk uint64, identity T,
	mapper func(lo, hi uint64) (T, error), combine func(a, b T) T) (T, error) {

	if hi <= lo {
		return identity, nil
	}
	if chunk == 0 {
		chunk = autoChunk(lo, hi, p.Workers())
	}

	type slot struct {
		v   T
		err error
	}
	var slots []*slot
	var fns []Func
	for start := lo; start < hi; start += chunk {
		end := min(start+chunk, hi)
		s := &slot{}
		slots = append(slots, s)
		fns = append(fns, func() error {
			s.v, s.err = mapper(start, end)
			return s.err
		})
	}
	handles, err := p.SubmitBatch(fns, Normal)
	if err != nil {
		return identity, err
	}
	for _, h := range handles {
		if werr := h.Wait(); werr != nil {
			err = errors.Join(err, werr)
		}
	}
	if err != nil {
		return identity, err
	}

	// Tree reduction over the ordered chunk results.
	vals := make([]T, len(slots))
	for i, s := range slots {
		vals[i] = s.v
	}
	for len(vals) > 1 {
		var next []T
		for i := 0; i < len(vals); i += 2 {
			if i+1 < len(vals) {
				next = append(next, combine(vals[i], vals[i+1]))
			} else {
				next = append(next, vals[i])
			}
		}
		vals = next
	}
	return combine(identity, vals[0]), nil
}
