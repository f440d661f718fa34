package checkpoint

import (
	"github.com/fxamacker/cbor/v2"
)

// CBORCodec pins the encode and decode modes so snapshot bytes are stable
// across processes.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec builds the codec with canonical encoding options.
func NewCBORCodec() (CBORCodec, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return CBORCodec{}, err
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return CBORCodec{}, err
	}
	return CBORCodec{enc: enc, dec: dec}, nil
}

// MarshalCBOR encodes v with the pinned options.
func (c CBORCodec) MarshalCBOR(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// UnmarshalCBOR decodes data into v with the pinned options.
func (c CBORCodec) UnmarshalCBOR(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
