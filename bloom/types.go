package bloom

import "errors"

const (
	MagicV1 = "BLM1"

	VariantClassic  uint8 = 1
	VariantCounting uint8 = 2

	// HeaderBytesV1 is the fixed header size for the persisted format.
	HeaderBytesV1 = 40
)

var (
	ErrBadParams     = errors.New("bloom: expected items and fp rate must be positive")
	ErrBadM          = errors.New("bloom: bit count m must be nonzero")
	ErrBadK          = errors.New("bloom: hash count k must be nonzero")
	ErrBadLevels     = errors.New("bloom: cascade must have at least one level")
	ErrBadRatio      = errors.New("bloom: cascade ratio must be in (0, 1)")
	ErrBadPartitions = errors.New("bloom: partition count must be nonzero")
	ErrBadCounter    = errors.New("bloom: counter bits must be in 1..8")

	ErrBadMagic     = errors.New("bloom: header magic invalid")
	ErrBadVariant   = errors.New("bloom: unsupported variant")
	ErrTruncated    = errors.New("bloom: payload truncated")
	ErrBadHeader    = errors.New("bloom: header fields invalid")
	ErrWrongVariant = errors.New("bloom: file holds a different filter variant")
)
