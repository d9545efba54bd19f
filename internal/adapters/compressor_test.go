package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressorRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated: the quick brown fox jumps over the lazy dog")

	for _, codec := range []Codec{CodecGzip, CodecZstd, CodecSnappy, CodecLZ4} {
		t.Run(string(codec), func(t *testing.T) {
			c, err := NewCompressor(codec)
			require.NoError(t, err)
			assert.Equal(t, string(codec), c.Name())

			compressed, err := c.Compress(payload)
			require.NoError(t, err)

			decompressed, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, decompressed)
		})
	}
}

func TestCompressorUnsupportedCodec(t *testing.T) {
	c, err := NewCompressor(Codec("bogus"))
	require.NoError(t, err)

	_, err = c.Compress([]byte("data"))
	assert.Error(t, err)

	_, err = c.Decompress([]byte("data"))
	assert.Error(t, err)
}

func TestCompressorEmptyPayload(t *testing.T) {
	c, err := NewCompressor(CodecZstd)
	require.NoError(t, err)

	compressed, err := c.Compress(nil)
	require.NoError(t, err)

	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, decompressed)
}
