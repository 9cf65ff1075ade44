package mcp

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	srv "github.com/mark3labs/mcp-go/server"
)

// withHTTPLogging logs compacted request and response bodies of the
// streamable transport at debug level.
func withHTTPLogging(next http.Handler, logger logSDK.Logger) http.Handler {
	if next == nil || logger == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startAt := time.Now()
		body, truncated, err := readAndRestoreRequestBody(r, httpLogBodyLimit)
		if err != nil {
			logger.Error("read mcp request body", zap.Error(err))
		}
		sessionID := strings.TrimSpace(r.Header.Get(srv.HeaderKeySessionID))

		logger.Debug("incoming mcp http request",
			zap.String("method", r.Method),
			zap.String("body", compactMCPBody(body)),
			zap.Bool("body_truncated", truncated),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("mcp_session_id", sessionID),
		)

		lrw := &loggingResponseWriter{ResponseWriter: w, bodyLimit: httpLogBodyLimit}
		next.ServeHTTP(lrw, r)

		respBody, respTruncated := lrw.Body()
		logger.Debug("outgoing mcp http response",
			zap.String("method", r.Method),
			zap.Int("status", lrw.Status()),
			zap.String("body", compactMCPBody(respBody)),
			zap.Bool("body_truncated", respTruncated),
			zap.Duration("cost", time.Since(startAt)),
		)
	})
}

func readAndRestoreRequestBody(r *http.Request, limit int) (string, bool, error) {
	if r.Body == nil {
		return "", false, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", false, errors.Wrap(err, "read body")
	}
	if err := r.Body.Close(); err != nil {
		return "", false, errors.Wrap(err, "close body")
	}

	r.Body = io.NopCloser(bytes.NewReader(data))
	if len(data) <= limit {
		return string(data), false, nil
	}
	return string(data[:limit]), true, nil
}

// loggingResponseWriter keeps a bounded copy of the response body.
// It forwards Flush and Hijack so that SSE streams keep working.
type loggingResponseWriter struct {
	http.ResponseWriter
	status    int
	buffer    bytes.Buffer
	truncated bool
	bodyLimit int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}

	remaining := lrw.bodyLimit - lrw.buffer.Len()
	switch {
	case remaining <= 0:
		lrw.truncated = true
	case len(b) > remaining:
		lrw.buffer.Write(b[:remaining])
		lrw.truncated = true
	default:
		lrw.buffer.Write(b)
	}

	return lrw.ResponseWriter.Write(b)
}

func (lrw *loggingResponseWriter) Status() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

func (lrw *loggingResponseWriter) Body() (string, bool) {
	return lrw.buffer.String(), lrw.truncated
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := lrw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}
