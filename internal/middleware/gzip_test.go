package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler возвращает тело запроса с типом содержимого из параметра ct.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	w.Header().Set("Content-Type", r.URL.Query().Get("ct"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func gzipped(t *testing.T, s string) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	const payload = `{"product_id":1,"quantity":2}`

	tests := []struct {
		name           string
		contentType    string
		acceptGzip     bool
		compressedBody bool
		wantEncoding   string
	}{
		{name: "json response compressed", contentType: "application/json", acceptGzip: true, wantEncoding: "gzip"},
		{name: "html response compressed", contentType: "text/html; charset=utf-8", acceptGzip: true, wantEncoding: "gzip"},
		{name: "plain text left as is", contentType: "text/plain", acceptGzip: true},
		{name: "client without gzip", contentType: "application/json"},
		{name: "compressed request body", contentType: "application/json", acceptGzip: true, compressedBody: true, wantEncoding: "gzip"},
		{name: "compressed request, plain response", contentType: "application/json", compressedBody: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(payload)
			if tt.compressedBody {
				body = gzipped(t, payload)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items?ct="+url.QueryEscape(tt.contentType), body)
			if tt.compressedBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptGzip {
				req.Header.Set("Accept-Encoding", "gzip, deflate")
			}
			w := httptest.NewRecorder()

			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			require.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, tt.contentType, res.Header.Get("Content-Type"))
			require.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))

			var reader io.Reader = res.Body
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				require.NoError(t, err)
				defer gr.Close()
				reader = gr
			}
			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, payload, string(got))
		})
	}
}

func TestGzipMiddleware_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()

	GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, http.StatusBadRequest, env.Code)
}
