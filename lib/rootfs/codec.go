// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rootfs

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Codec identifies the compression wrapped around a snapshot's tar
// stream.
type Codec uint8

const (
	// CodecNone is a plain tar stream.
	CodecNone Codec = iota

	// CodecGzip is parallel gzip. Widely readable, moderate ratio.
	CodecGzip

	// CodecXZ gives the best ratio at the highest CPU cost.
	CodecXZ

	// CodecZstd is the default: good ratio and fast in both
	// directions.
	CodecZstd

	// CodecLZ4 trades ratio for the fastest round trip.
	CodecLZ4
)

// suffixes maps file name suffixes to codecs. Longer suffixes come
// first so ".tar.gz" is not matched as ".tar".
var suffixes = []struct {
	suffix string
	codec  Codec
}{
	{".tar.zst", CodecZstd},
	{".tar.lz4", CodecLZ4},
	{".tar.gz", CodecGzip},
	{".tar.xz", CodecXZ},
	{".tzst", CodecZstd},
	{".tgz", CodecGzip},
	{".txz", CodecXZ},
	{".tar", CodecNone},
}

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecXZ:
		return "xz"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Extension returns the canonical file name suffix for the codec.
func (c Codec) Extension() string {
	for _, entry := range suffixes {
		if entry.codec == c {
			return entry.suffix
		}
	}
	return ""
}

// ParseCodec parses a codec from its name.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "none":
		return CodecNone, nil
	case "gzip":
		return CodecGzip, nil
	case "xz":
		return CodecXZ, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("unknown codec: %q", name)
	}
}

// CodecForPath chooses the codec from a snapshot file name.
func CodecForPath(path string) (Codec, error) {
	for _, entry := range suffixes {
		if strings.HasSuffix(path, entry.suffix) {
			return entry.codec, nil
		}
	}
	return 0, fmt.Errorf("unsupported snapshot format: %s (want .tar, .tar.zst, .tar.lz4, .tar.gz or .tar.xz)", path)
}

// NewWriter wraps w in the codec's compressor. Closing the result
// flushes the compressor but does not close w.
func (c Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CodecNone:
		return nopWriteCloser{w}, nil
	case CodecGzip:
		return pgzip.NewWriter(w), nil
	case CodecXZ:
		return xz.NewWriter(w)
	case CodecZstd:
		return zstd.NewWriter(w)
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", c)
	}
}

// NewReader wraps r in the codec's decompressor. Closing the result
// releases decoder resources but does not close r.
func (c Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CodecNone:
		return io.NopCloser(r), nil
	case CodecGzip:
		return pgzip.NewReader(r)
	case CodecXZ:
		reader, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(reader), nil
	case CodecZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", c)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
