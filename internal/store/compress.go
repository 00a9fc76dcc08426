package store

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the codec applied to every entry file of a store.
// It is fixed per store; reading files written under a different setting
// fails to decode.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// streamBufferSize is the bufio size on both sides of the codec.
const streamBufferSize = 8192

// ParseCompression accepts the names used in flags and config files.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off", "false":
		return CompressionNone, nil
	case "gzip", "gz", "on", "true":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, s)
}

// Ext returns the file extension appended after .dat.
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	}
	return ""
}

func (c Compression) String() string {
	if c == "" {
		return string(CompressionNone)
	}
	return string(c)
}

// streamCodec wraps file streams with buffering and the configured
// compression. Encoders and decoders are reused across files, so a
// streamCodec must not be used concurrently.
type streamCodec struct {
	alg Compression

	bw *bufio.Writer
	br *bufio.Reader

	gzw *gzip.Writer
	gzr *gzip.Reader
	zw  *zstd.Encoder
	zr  *zstd.Decoder
}

func newStreamCodec(alg Compression) (*streamCodec, error) {
	sc := &streamCodec{
		alg: alg,
		bw:  bufio.NewWriterSize(nil, streamBufferSize),
		br:  bufio.NewReaderSize(nil, streamBufferSize),
	}
	switch alg {
	case CompressionZstd:
		zw, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		zr, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			zw.Close()
			return nil, err
		}
		sc.zw, sc.zr = zw, zr
	case CompressionGzip:
		gzw, err := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
		if err != nil {
			return nil, err
		}
		sc.gzw = gzw
	}
	return sc, nil
}

// writer returns a stream that compresses into w. The returned finish func
// must be called after the last write; it flushes everything into w but does
// not close w.
func (sc *streamCodec) writer(w io.Writer) (io.Writer, func() error, error) {
	sc.bw.Reset(w)
	switch sc.alg {
	case CompressionGzip:
		sc.gzw.Reset(sc.bw)
		return sc.gzw, func() error {
			if err := sc.gzw.Close(); err != nil {
				return err
			}
			return sc.bw.Flush()
		}, nil
	case CompressionZstd:
		sc.zw.Reset(sc.bw)
		return sc.zw, func() error {
			if err := sc.zw.Close(); err != nil {
				return err
			}
			return sc.bw.Flush()
		}, nil
	}
	return sc.bw, sc.bw.Flush, nil
}

// reader returns a stream that decompresses r.
func (sc *streamCodec) reader(r io.Reader) (io.Reader, error) {
	sc.br.Reset(r)
	switch sc.alg {
	case CompressionGzip:
		if sc.gzr == nil {
			gzr, err := gzip.NewReader(sc.br)
			if err != nil {
				return nil, err
			}
			sc.gzr = gzr
			return gzr, nil
		}
		if err := sc.gzr.Reset(sc.br); err != nil {
			return nil, err
		}
		return sc.gzr, nil
	case CompressionZstd:
		if err := sc.zr.Reset(sc.br); err != nil {
			return nil, err
		}
		return sc.zr, nil
	}
	return sc.br, nil
}

// release drops references to the last file so it can be collected.
func (sc *streamCodec) release() {
	sc.bw.Reset(nil)
	sc.br.Reset(nil)
}

// Close releases the decoders. Encoders finish their frame on every write
// and hold nothing between files.
func (sc *streamCodec) Close() error {
	if sc.zr != nil {
		sc.zr.Close()
	}
	if sc.gzr != nil {
		return sc.gzr.Close()
	}
	return nil
}
