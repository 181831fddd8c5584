package logging

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied request IDs.
const maxRequestIDLength = 64

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.wrote {
		return
	}
	sr.status, sr.wrote = code, true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.WriteHeader(http.StatusOK)
	return sr.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrader take over the connection.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status, sr.wrote = http.StatusSwitchingProtocols, true
	return h.Hijack()
}

func newRequestID() string {
	return uuid.NewString()
}

// RequestID stores the inbound X-Request-ID in the request context,
// generating one when it is missing or too long, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = newRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// AccessLog writes one http_request record per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		HTTPRequestContext(r.Context(), r.Method, r.URL.Path, r.RemoteAddr, sr.status, time.Since(start))
	})
}

// Middleware tags each request with an ID and logs it.
func Middleware(next http.Handler) http.Handler {
	return RequestID(AccessLog(next))
}
