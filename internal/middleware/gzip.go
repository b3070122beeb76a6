package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

var compressibleTypes = []string{"application/json", "text/html"}

type gzipWriter struct {
	http.ResponseWriter
	gz          *gzip.Writer
	wroteHeader bool
	compress    bool
}

func (g *gzipWriter) WriteHeader(status int) {
	if g.wroteHeader {
		return
	}
	g.wroteHeader = true

	contentType := g.Header().Get("Content-Type")
	for _, t := range compressibleTypes {
		if strings.HasPrefix(contentType, t) {
			g.compress = true
			break
		}
	}

	if g.compress {
		g.Header().Set("Content-Encoding", "gzip")
		g.Header().Del("Content-Length")
		g.gz = gzip.NewWriter(g.ResponseWriter)
	}
	g.ResponseWriter.WriteHeader(status)
}

func (g *gzipWriter) Write(b []byte) (int, error) {
	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	if g.compress {
		return g.gz.Write(b)
	}
	return g.ResponseWriter.Write(b)
}

func (g *gzipWriter) Close() error {
	if g.gz != nil {
		return g.gz.Close()
	}
	return nil
}

type gzipReader struct {
	io.ReadCloser
	gz *gzip.Reader
}

func (g *gzipReader) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReader) Close() error {
	if err := g.gz.Close(); err != nil {
		return err
	}
	return g.ReadCloser.Close()
}

// GzipMiddleware распаковывает тела запросов в gzip и сжимает JSON и HTML ответы
// для клиентов, которые принимают gzip.
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Cuerpo gzip inválido.")
				return
			}
			r.Body = &gzipReader{ReadCloser: r.Body, gz: gz}
			r.Header.Del("Content-Encoding")
		}

		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gw := &gzipWriter{ResponseWriter: w}
		defer gw.Close()
		next.ServeHTTP(gw, r)
	})
}
