package bloom

// Partitioned shards a filter into P independent classic filters, selected
// by a hash of the key modulo P. Each partition carries its own mutex, so
// adds landing in distinct partitions never contend. The partition selector
// uses a different seed than the probe digest so that partition choice and
// probe positions are uncorrelated.
type Partitioned struct {
	parts []*Filter
}

// NewPartitioned creates p partitions jointly sized for expectedItems at
// the target false positive rate. Each partition receives m/p bits of the
// joint geometry.
func NewPartitioned(p int, expectedItems uint64, fpRate float64) (*Partitioned, error) {
	if p < 1 {
		return nil, ErrBadPartitions
	}
	m, k, err := SizeFor(expectedItems, fpRate)
	if err != nil {
		return nil, err
	}
	perPart := m / uint64(p)
	if perPart == 0 {
		perPart = 1
	}
	pf := &Partitioned{parts: make([]*Filter, 0, p)}
	for range p {
		f, err := NewBits(perPart, k)
		if err != nil {
			return nil, err
		}
		pf.parts = append(pf.parts, f)
	}
	return pf, nil
}

// Partitions returns the partition count.
func (p *Partitioned) Partitions() int { return len(p.parts) }

// Add inserts data into its partition, locking only that partition.
func (p *Partitioned) Add(data []byte) {
	p.parts[partitionIndex(data, uint64(len(p.parts)))].Add(data)
}

// Query checks data against its partition without locking.
func (p *Partitioned) Query(data []byte) bool {
	return p.parts[partitionIndex(data, uint64(len(p.parts)))].Query(data)
}

// Clear zeros every partition.
func (p *Partitioned) Clear() {
	for _, f := range p.parts {
		f.Clear()
	}
}

// ItemsAdded sums the items over all partitions.
func (p *Partitioned) ItemsAdded() uint64 {
	var total uint64
	for _, f := range p.parts {
		total += f.ItemsAdded()
	}
	return total
}
