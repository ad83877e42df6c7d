package pagecache

import (
	"bytes"
	"net/http"
)

// responseSaver is a wrapper around http.ResponseWriter that holds back the
// response while its cacheability is still undecided. The header event and
// body writes are buffered; nothing reaches the underlying writer until
// either forward is called or the handler flushes.
//
// A Flush from the handler marks the response as streaming. At that point
// the held headers and any buffered body bytes are forwarded verbatim and
// every later write passes straight through. The decision is irreversible:
// a streaming response is never buffered again, and never stored.
type responseSaver struct {
	rw          http.ResponseWriter
	header      http.Header
	status      int
	wroteHeader bool
	streaming   bool
	body        bytes.Buffer
}

func newResponseSaver(w http.ResponseWriter) *responseSaver {
	return &responseSaver{
		rw:     w,
		header: make(http.Header),
	}
}

// Implementation of http.ResponseWriter
func (s *responseSaver) Header() http.Header {
	return s.header
}

// Implementation of http.ResponseWriter
func (s *responseSaver) WriteHeader(statusCode int) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	s.status = statusCode
}

// Implementation of http.ResponseWriter
func (s *responseSaver) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	if s.streaming {
		return s.rw.Write(b)
	}
	return s.body.Write(b)
}

// Flush marks the response as streaming and releases everything held so
// far. Implements http.Flusher so handlers that stream keep working when
// wrapped.
func (s *responseSaver) Flush() {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	if !s.streaming {
		s.streaming = true
		s.forwardHeader()
		if s.body.Len() > 0 {
			s.rw.Write(s.body.Bytes())
			s.body.Reset()
		}
	}
	if flusher, ok := s.rw.(http.Flusher); ok {
		flusher.Flush()
	}
}

// forward releases the held response to the underlying writer.
// It is a no-op for streaming responses, whose events have already been
// passed through; every event is forwarded exactly once either way.
func (s *responseSaver) forward() error {
	if s.streaming {
		return nil
	}
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	s.forwardHeader()
	_, err := s.rw.Write(s.body.Bytes())
	return err
}

func (s *responseSaver) forwardHeader() {
	copyHeader(s.rw.Header(), s.header)
	s.rw.WriteHeader(s.status)
}

// StatusCode returns the status of the held response, defaulting to 200
// when the handler never wrote an explicit header.
func (s *responseSaver) StatusCode() int {
	if !s.wroteHeader {
		return http.StatusOK
	}
	return s.status
}

// Body returns the buffered body bytes.
func (s *responseSaver) Body() []byte {
	return s.body.Bytes()
}

// Streaming reports whether the response was released mid-stream.
func (s *responseSaver) Streaming() bool {
	return s.streaming
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, value := range values {
			dst.Add(name, value)
		}
	}
}
