package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Known(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "00", Encode([]byte{0}))
	assert.Equal(t, "FF", Encode([]byte{0xFF}))
	assert.Equal(t, "68656C6C6F", EncodeString("hello"))
}

func TestRoundTrip_Empty(t *testing.T) {
	got, err := Decode(Encode(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRoundTrip_AllZero(t *testing.T) {
	in := make([]byte, 64)
	got, err := Decode(Encode(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestRoundTrip_FullByteRange(t *testing.T) {
	in := make([]byte, 256)
	for i := range in {
		in[i] = byte(i)
	}
	got, err := Decode(Encode(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestRoundTrip_HostileContent(t *testing.T) {
	for _, s := range []string{
		`single ' and double " quotes`,
		`{"json": "structure"}`,
		"$.path.injection",
		"DROP TABLE nodes; --",
		"newline\nand\ttab",
	} {
		got, err := DecodeString(EncodeString(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestEncode_OrderPreserving(t *testing.T) {
	pairs := [][2][]byte{
		{[]byte{0x00}, []byte{0x01}},
		{[]byte{0x0F}, []byte{0x10}},
		{[]byte("abc"), []byte("abd")},
		{[]byte("ab"), []byte("abc")},
		{[]byte{0x7F}, []byte{0x80}},
	}
	for _, p := range pairs {
		require.True(t, bytes.Compare(p[0], p[1]) < 0)
		assert.Less(t, Encode(p[0]), Encode(p[1]))
	}
}

func TestDecode_RejectsForeignText(t *testing.T) {
	for _, text := range []string{
		"A",        // odd length
		"ab",       // lowercase
		"G0",       // non-hex
		"0G",       // non-hex in low nibble
		"41 42",    // whitespace
		"0x41",     // prefix notation
		"41\n",     // trailing byte
		"日本",       // multibyte
		"41424-43", // punctuation
	} {
		_, err := Decode(text)
		require.Error(t, err, "text %q should be rejected", text)
		var de *DecodeError
		assert.ErrorAs(t, err, &de)
	}
}

func TestDecodeError_Message(t *testing.T) {
	_, err := Decode("4g")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot decode")
}
