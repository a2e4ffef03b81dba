package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBody(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(data)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func zstdBody(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func echoHandler(t *testing.T, got *[]byte) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		*got = body
		w.WriteHeader(http.StatusOK)
	})
}

func TestDecompress_Gzip(t *testing.T) {
	payload := []byte(`{"scanner":"trivy"}`)

	var got []byte
	mw := Decompress(DefaultDecompressConfig())(echoHandler(t, &got))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", bytes.NewReader(gzipBody(t, payload)))
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, got)
}

func TestDecompress_Zstd(t *testing.T) {
	payload := []byte(`{"scanner":"xray"}`)

	var got []byte
	mw := Decompress(DefaultDecompressConfig())(echoHandler(t, &got))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", bytes.NewReader(zstdBody(t, payload)))
	req.Header.Set("Content-Encoding", "zstd")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, got)
}

func TestDecompress_IdentityPassthrough(t *testing.T) {
	payload := []byte(`plain`)

	var got []byte
	mw := Decompress(DefaultDecompressConfig())(echoHandler(t, &got))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, got)
}

func TestDecompress_UnsupportedEncoding(t *testing.T) {
	mw := Decompress(DefaultDecompressConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("data"))
	req.Header.Set("Content-Encoding", "br")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestDecompress_RejectsZipBomb(t *testing.T) {
	// 1 MiB of zeros compresses tiny; a ratio limit of 10 must reject it.
	cfg := DefaultDecompressConfig()
	cfg.MaxCompressionRatio = 10

	mw := Decompress(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	bomb := gzipBody(t, make([]byte, 1<<20))
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(bomb))
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecompress_RejectsOversizedDecompressed(t *testing.T) {
	cfg := DefaultDecompressConfig()
	cfg.MaxDecompressedSize = 64
	cfg.MaxCompressionRatio = 1 << 30

	mw := Decompress(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(gzipBody(t, make([]byte, 128))))
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
