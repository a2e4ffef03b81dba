package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// DecompressConfig bounds transparent request decompression. All three
// limits guard against zip bombs: a tiny compressed body expanding into
// gigabytes would otherwise exhaust memory before any handler runs.
type DecompressConfig struct {
	MaxCompressedSize   int64
	MaxDecompressedSize int64
	MaxCompressionRatio int64
}

// DefaultDecompressConfig allows bodies up to 10 MiB compressed, 50 MiB
// decompressed, at most 1:100 expansion.
func DefaultDecompressConfig() DecompressConfig {
	return DecompressConfig{
		MaxCompressedSize:   10 << 20,
		MaxDecompressedSize: 50 << 20,
		MaxCompressionRatio: 100,
	}
}

// Decompress transparently inflates gzip and zstd request bodies so
// scanners can upload compressed documents. Unknown encodings get 415.
func Decompress(cfg DecompressConfig) func(http.Handler) http.Handler {
	if cfg.MaxCompressedSize <= 0 {
		cfg.MaxCompressedSize = DefaultDecompressConfig().MaxCompressedSize
	}
	if cfg.MaxDecompressedSize <= 0 {
		cfg.MaxDecompressedSize = DefaultDecompressConfig().MaxDecompressedSize
	}
	if cfg.MaxCompressionRatio <= 0 {
		cfg.MaxCompressionRatio = DefaultDecompressConfig().MaxCompressionRatio
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
			if encoding == "" || encoding == "identity" || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := inflate(r.Body, encoding, cfg)
			if err != nil {
				status := http.StatusBadRequest
				if err == errUnsupportedEncoding {
					status = http.StatusUnsupportedMediaType
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				fmt.Fprintf(w, `{"error":"BAD_REQUEST","code":"BAD_REQUEST","message":%q}`, err.Error())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Del("Content-Encoding")
			r.Header.Del("Content-Length")

			next.ServeHTTP(w, r)
		})
	}
}

var errUnsupportedEncoding = fmt.Errorf("unsupported content encoding")

func inflate(body io.ReadCloser, encoding string, cfg DecompressConfig) ([]byte, error) {
	defer body.Close()

	compressed, err := readCapped(body, cfg.MaxCompressedSize)
	if err != nil {
		return nil, fmt.Errorf("compressed body exceeds %d bytes", cfg.MaxCompressedSize)
	}

	var reader io.Reader
	switch encoding {
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("invalid zstd body: %w", err)
		}
		defer zr.Close()
		reader = zr
	default:
		return nil, errUnsupportedEncoding
	}

	decompressed, err := readCapped(reader, cfg.MaxDecompressedSize)
	if err != nil {
		return nil, fmt.Errorf("decompressed body exceeds %d bytes", cfg.MaxDecompressedSize)
	}

	if len(compressed) > 0 {
		ratio := int64(len(decompressed)) / int64(len(compressed))
		if ratio > cfg.MaxCompressionRatio {
			return nil, fmt.Errorf("compression ratio %d exceeds limit %d", ratio, cfg.MaxCompressionRatio)
		}
	}

	return decompressed, nil
}

// readCapped reads at most limit bytes and errors when the source has
// more, instead of silently truncating.
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, io.ErrShortBuffer
	}
	return data, nil
}
