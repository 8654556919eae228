package linestream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTF8_PassThrough(t *testing.T) {
	raw := []byte{'o', 'k', 0xFF, 0x00}

	text, err := UTF8.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, string(raw), text)

	b, err := UTF8.Encode("grüße")
	require.NoError(t, err)
	assert.Equal(t, []byte("grüße"), b)
	assert.Equal(t, "UTF-8", UTF8.Name())
}

func TestLatin1(t *testing.T) {
	b, err := Latin1.Encode("café")
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xE9}, b)

	text, err := Latin1.Decode([]byte{0xE9, 't', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "été", text)
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		charset string
		name    string
	}{
		{charset: "", name: "UTF-8"},
		{charset: "utf-8", name: "UTF-8"},
		{charset: "ISO-8859-1", name: "ISO-8859-1"},
	}

	for _, tt := range tests {
		t.Run(tt.charset, func(t *testing.T) {
			codec, err := CodecFor(tt.charset)
			require.NoError(t, err)
			assert.Equal(t, tt.name, codec.Name())
		})
	}
}

func TestCodecFor_Latin1RoundTrip(t *testing.T) {
	codec, err := CodecFor("ISO-8859-1")
	require.NoError(t, err)

	b, err := codec.Encode("naïve")
	require.NoError(t, err)
	assert.Len(t, b, 5)

	text, err := codec.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "naïve", text)
}

func TestCodecFor_Unknown(t *testing.T) {
	_, err := CodecFor("x-no-such-charset")
	assert.ErrorIs(t, err, ErrUnknownCharset)
}
