package bloom

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// header is the decoded fixed persisted header.
type header struct {
	variant     uint8
	counterBits uint8
	m           uint64
	k           uint64
	items       uint64
	payloadLen  uint64
}

func encodeHeader(h header) []byte {
	buf := make([]byte, HeaderBytesV1)
	copy(buf[0:4], MagicV1)
	buf[4] = h.variant
	buf[5] = h.counterBits
	// buf[6:8] reserved, zero
	binary.LittleEndian.PutUint64(buf[8:16], h.m)
	binary.LittleEndian.PutUint64(buf[16:24], h.k)
	binary.LittleEndian.PutUint64(buf[24:32], h.items)
	binary.LittleEndian.PutUint64(buf[32:40], h.payloadLen)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	if len(buf) < HeaderBytesV1 {
		return header{}, ErrTruncated
	}
	if string(buf[0:4]) != MagicV1 {
		return header{}, ErrBadMagic
	}
	h := header{
		variant:     buf[4],
		counterBits: buf[5],
		m:           binary.LittleEndian.Uint64(buf[8:16]),
		k:           binary.LittleEndian.Uint64(buf[16:24]),
		items:       binary.LittleEndian.Uint64(buf[24:32]),
		payloadLen:  binary.LittleEndian.Uint64(buf[32:40]),
	}
	if h.variant != VariantClassic && h.variant != VariantCounting {
		return header{}, ErrBadVariant
	}
	if h.m == 0 || h.k == 0 {
		return header{}, ErrBadHeader
	}
	return h, nil
}

// WriteTo serializes the classic filter.
func (f *Filter) WriteTo(w io.Writer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hdr := encodeHeader(header{
		variant:    VariantClassic,
		m:          f.m,
		k:          uint64(f.k),
		items:      f.items,
		payloadLen: uint64(len(f.bits)),
	})
	n, err := w.Write(hdr)
	if err != nil {
		return int64(n), err
	}
	n2, err := w.Write(f.bits)
	return int64(n) + int64(n2), err
}

// Save writes the filter to path.
func (f *Filter) Save(path string) error {
	return saveTo(path, f.WriteTo)
}

// Read deserializes a classic filter.
func Read(r io.Reader) (*Filter, error) {
	h, payload, err := readFile(r)
	if err != nil {
		return nil, err
	}
	if h.variant != VariantClassic {
		return nil, ErrWrongVariant
	}
	if h.payloadLen != bitsetBytes(h.m) {
		return nil, ErrBadHeader
	}
	f, err := NewBits(h.m, uint32(h.k))
	if err != nil {
		return nil, err
	}
	copy(f.bits, payload)
	f.items = h.items
	return f, nil
}

// Load reads a classic filter from path.
func Load(path string) (*Filter, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Read(fp)
}

// WriteTo serializes the counting filter.
func (c *Counting) WriteTo(w io.Writer) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hdr := encodeHeader(header{
		variant:     VariantCounting,
		counterBits: c.counterBits,
		m:           c.m,
		k:           uint64(c.k),
		items:       c.items,
		payloadLen:  uint64(len(c.counters)),
	})
	n, err := w.Write(hdr)
	if err != nil {
		return int64(n), err
	}
	n2, err := w.Write(c.counters)
	return int64(n) + int64(n2), err
}

// Save writes the counting filter to path.
func (c *Counting) Save(path string) error {
	return saveTo(path, c.WriteTo)
}

// ReadCounting deserializes a counting filter.
func ReadCounting(r io.Reader) (*Counting, error) {
	h, payload, err := readFile(r)
	if err != nil {
		return nil, err
	}
	if h.variant != VariantCounting {
		return nil, ErrWrongVariant
	}
	if h.counterBits < 1 || h.counterBits > 8 {
		return nil, ErrBadHeader
	}
	if h.payloadLen != counterBytes(h.m, h.counterBits) {
		return nil, ErrBadHeader
	}
	c, err := NewCounting(h.m, uint32(h.k), h.counterBits)
	if err != nil {
		return nil, err
	}
	copy(c.counters, payload)
	c.items = h.items
	return c, nil
}

// LoadCounting reads a counting filter from path.
func LoadCounting(path string) (*Counting, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadCounting(fp)
}

// SaveCascade writes one file per level, named <base>.<level>.
func (c *Cascade) SaveCascade(base string) error {
	for i, f := range c.levels {
		if err := f.Save(cascadeLevelPath(base, i)); err != nil {
			return err
		}
	}
	return nil
}

// LoadCascade reads consecutive level files starting at <base>.0 until the
// first missing file. At least one level must exist.
func LoadCascade(base string) (*Cascade, error) {
	var levels []*Filter
	for i := 0; ; i++ {
		f, err := Load(cascadeLevelPath(base, i))
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		levels = append(levels, f)
	}
	if len(levels) == 0 {
		return nil, ErrBadLevels
	}
	return &Cascade{levels: levels}, nil
}

func cascadeLevelPath(base string, level int) string {
	return fmt.Sprintf("%s.%d", base, level)
}

func readFile(r io.Reader) (header, []byte, error) {
	hdr := make([]byte, HeaderBytesV1)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return header{}, nil, ErrTruncated
	}
	h, err := decodeHeader(hdr)
	if err != nil {
		return header{}, nil, err
	}
	payload := make([]byte, h.payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return header{}, nil, ErrTruncated
	}
	return h, payload, nil
}

func saveTo(path string, writeTo func(io.Writer) (int64, error)) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := writeTo(fp); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
