package uint256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSubRoundTrip(t *testing.T) {
	cases := []struct{ a, b string }{
		{"ffffffffffffffff", "1"},
		{"10000000000000000", "ffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "deadbeef"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ab", "ab"},
	}
	for _, tc := range cases {
		a, err := FromHex(tc.a)
		require.NoError(t, err)
		b, err := FromHex(tc.b)
		require.NoError(t, err)
		require.True(t, b.Cmp(a) <= 0, "test fixtures require b <= a")
		require.Equal(t, a, a.Sub(b).Add(b))
	}
}

func TestAddDropsCarry(t *testing.T) {
	max, err := FromHex("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	require.NoError(t, err)

	require.Equal(t, Uint256{}, max.Add(New(1)))

	r, carry := max.CheckedAdd(New(1))
	require.Equal(t, Uint256{}, r)
	require.Equal(t, uint64(1), carry)

	r, carry = max.CheckedAdd(Uint256{})
	require.Equal(t, max, r)
	require.Equal(t, uint64(0), carry)
}

func TestIncCarriesAcrossLimbs(t *testing.T) {
	u, err := FromHex("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	u.Inc()
	require.Equal(t, "100000000000000000000000000000000", u.Hex())

	var zero Uint256
	max, _ := FromHex("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	max.Inc()
	require.Equal(t, zero, max)
}

func TestBytesRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"ab",
		"ffffffffffffffff",
		"123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0",
		"8000000000000000000000000000000000000000000000000000000000000000",
	}
	for _, h := range cases {
		u, err := FromHex(h)
		require.NoError(t, err)
		require.Equal(t, u, FromBytes(u.Bytes()), h)
	}

	// Arbitrary 32 bytes also round trip.
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i*7 + 3)
	}
	require.Equal(t, raw, FromBytes(raw).Bytes())
}

func TestHexRoundTrip(t *testing.T) {
	cases := []string{"0", "1", "ab", "deadbeef", "10000000000000000", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"}
	for _, h := range cases {
		u, err := FromHex(h)
		require.NoError(t, err)
		require.Equal(t, h, u.Hex())
	}
}

func TestFromHexForms(t *testing.T) {
	u, err := FromHex("0xAB")
	require.NoError(t, err)
	require.Equal(t, New(0xAB), u)

	u, err = FromHex("00ab")
	require.NoError(t, err)
	require.Equal(t, New(0xAB), u)

	_, err = FromHex("xyz")
	require.ErrorIs(t, err, ErrHexDigit)

	_, err = FromHex("10000000000000000000000000000000000000000000000000000000000000000")
	require.ErrorIs(t, err, ErrHexLength)
}

func TestBitOps(t *testing.T) {
	var u Uint256
	require.Equal(t, -1, u.HighestBit())

	u.SetBit(0, true)
	require.True(t, u.Bit(0))
	require.Equal(t, 0, u.HighestBit())

	u.SetBit(255, true)
	require.Equal(t, 255, u.HighestBit())
	u.SetBit(255, false)
	require.Equal(t, 0, u.HighestBit())

	u.SetBit(70, true)
	require.Equal(t, 70, u.HighestBit())
	require.True(t, u.Bit(70))
	require.False(t, u.Bit(71))
}

func TestDivMod64(t *testing.T) {
	u, err := FromHex("10000000000000000") // 2^64
	require.NoError(t, err)
	q, rem := u.DivMod64(2)
	require.Equal(t, "8000000000000000", q.Hex())
	require.Equal(t, uint64(0), rem)

	q, rem = New(32768).DivMod64(7)
	require.Equal(t, New(4681), q)
	require.Equal(t, uint64(1), rem)
}

func TestMul64(t *testing.T) {
	u, _ := FromHex("ffffffffffffffff")
	r := u.Mul64(2)
	require.Equal(t, "1fffffffffffffffe", r.Hex())

	require.Equal(t, Uint256{}, New(12345).Mul64(0))
}

func TestShifts(t *testing.T) {
	one := New(1)
	require.Equal(t, "10000000000000000", one.Lsh(64).Hex())
	require.Equal(t, one, one.Lsh(64).Rsh(64))
	require.Equal(t, Uint256{}, one.Lsh(256))
	require.Equal(t, Uint256{}, one.Rsh(1))

	u, _ := FromHex("deadbeefcafe")
	require.Equal(t, u, u.Lsh(100).Rsh(100))
}

func TestOrdering(t *testing.T) {
	lo, _ := FromHex("ffffffffffffffff")
	hi, _ := FromHex("10000000000000000")
	require.True(t, lo.Less(hi))
	require.False(t, hi.Less(lo))
	require.True(t, lo.Equal(lo))
	require.Equal(t, 0, lo.Cmp(lo))
}
