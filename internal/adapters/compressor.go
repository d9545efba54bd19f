// Copyright 2025 Takhin Data, Inc.

package adapters

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the compression algorithm a Compressor applies to COLD/
// BACKUP tier objects, per spec.md §9's note that compaction/compression
// codecs are pluggable. All three are teacher go.mod dependencies otherwise
// unused by any segment file the teacher itself exercises.
type Codec string

const (
	CodecGzip   Codec = "gzip"
	CodecZstd   Codec = "zstd"
	CodecSnappy Codec = "snappy"
	CodecLZ4    Codec = "lz4"
)

// Compressor wraps one of the supported codecs behind a uniform
// Compress/Decompress surface, consumed by S3Store for COLD/BACKUP content
// and exposed independently for any caller that wants raw codec access.
type Compressor struct {
	codec   Codec
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
}

func NewCompressor(codec Codec) (*Compressor, error) {
	c := &Compressor{codec: codec}
	if codec == CodecZstd {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("init zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("init zstd decoder: %w", err)
		}
		c.zstdEnc = enc
		c.zstdDec = dec
	}
	return c, nil
}

func (c *Compressor) Name() string { return string(c.codec) }

func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.codec {
	case CodecGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case CodecZstd:
		return c.zstdEnc.EncodeAll(data, nil), nil

	case CodecSnappy:
		return snappy.Encode(nil, data), nil

	case CodecLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("compressor: unsupported codec %q", c.codec)
	}
}

func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	switch c.codec {
	case CodecGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)

	case CodecZstd:
		return c.zstdDec.DecodeAll(data, nil)

	case CodecSnappy:
		return snappy.Decode(nil, data)

	case CodecLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)

	default:
		return nil, fmt.Errorf("compressor: unsupported codec %q", c.codec)
	}
}
