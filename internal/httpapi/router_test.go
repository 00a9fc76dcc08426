package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/diskmap/internal/store"
)

func newTestServer(t *testing.T, maxBody int64) (*httptest.Server, *store.Store[[]byte]) {
	t.Helper()
	st, err := store.Open[[]byte](store.Config{Dir: t.TempDir(), Compression: store.CompressionGzip}, store.BytesCodec{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(NewRouter(zerolog.Nop(), st, maxBody))
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestPutGetDelete(t *testing.T) {
	srv, st := newTestServer(t, 0)

	resp := do(t, http.MethodPut, srv.URL+"/v1/keys/matrix/block-1", []byte("payload"))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, st.ContainsKey("matrix/block-1"))

	resp = do(t, http.MethodGet, srv.URL+"/v1/keys/matrix/block-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payload", string(readBody(t, resp)))
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))

	resp = do(t, http.MethodHead, srv.URL+"/v1/keys/matrix/block-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/v1/keys/matrix/block-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/v1/keys/matrix/block-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodHead, srv.URL+"/v1/keys/matrix/block-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodDelete, srv.URL+"/v1/keys/matrix/block-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestEmptyBodyStoresEmptyValue(t *testing.T) {
	srv, st := newTestServer(t, 0)
	resp := do(t, http.MethodPut, srv.URL+"/v1/keys/empty", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, st.ContainsKey("empty"))
}

func TestMissingKey(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	resp := do(t, http.MethodGet, srv.URL+"/v1/keys/", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBodyTooLarge(t *testing.T) {
	srv, st := newTestServer(t, 16)
	resp := do(t, http.MethodPut, srv.URL+"/v1/keys/big", bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.False(t, st.ContainsKey("big"))
}

func TestKeysSizeStats(t *testing.T) {
	srv, st := newTestServer(t, 0)
	require.NoError(t, st.Put("alpha", []byte("1")))
	require.NoError(t, st.Put("beta", []byte("2")))
	require.NoError(t, st.Put("al.pine", []byte("3")))

	var keys KeysResponse
	resp := do(t, http.MethodGet, srv.URL+"/v1/keys", nil)
	require.NoError(t, json.Unmarshal(readBody(t, resp), &keys))
	assert.Equal(t, []string{"al_pine", "alpha", "beta"}, keys.Keys)
	assert.Equal(t, 3, keys.Count)

	resp = do(t, http.MethodGet, srv.URL+"/v1/keys?prefix=al.", nil)
	require.NoError(t, json.Unmarshal(readBody(t, resp), &keys))
	assert.Equal(t, []string{"al_pine"}, keys.Keys)

	var size SizeResponse
	resp = do(t, http.MethodGet, srv.URL+"/v1/size", nil)
	require.NoError(t, json.Unmarshal(readBody(t, resp), &size))
	assert.Equal(t, 3, size.Size)

	var stats StatsResponse
	resp = do(t, http.MethodGet, srv.URL+"/v1/stats", nil)
	require.NoError(t, json.Unmarshal(readBody(t, resp), &stats))
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, uint64(3), stats.Writes)
}

func TestEraseAndClear(t *testing.T) {
	srv, st := newTestServer(t, 0)
	require.NoError(t, st.Put("alpha", []byte("1")))

	resp := do(t, http.MethodPost, srv.URL+"/v1/erase", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, st.Size())

	var keys KeysResponse
	resp = do(t, http.MethodGet, srv.URL+"/v1/keys", nil)
	body := readBody(t, resp)
	require.NoError(t, json.Unmarshal(body, &keys))
	assert.Equal(t, []string{}, keys.Keys)
	assert.True(t, strings.Contains(string(body), `"keys":[]`))

	require.NoError(t, st.Put("beta", []byte("2")))
	resp = do(t, http.MethodPost, srv.URL+"/v1/clear", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, st.Size())
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	resp := do(t, http.MethodGet, srv.URL+"/v1/erase", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRequestIDMiddleware(t *testing.T) {
	srv, _ := newTestServer(t, 0)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "client-id-1")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "client-id-1", resp2.Header.Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	resp := do(t, http.MethodOptions, srv.URL+"/v1/keys/x", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAccessLogRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	h := AccessLog(log, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Contains(t, buf.String(), `"status":418`)
}
