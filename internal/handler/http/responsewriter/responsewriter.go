// Package responsewriter wraps http.ResponseWriter to capture the status code
// and body size, and to run a hook right before the status line is sent.
package responsewriter

import "net/http"

// ResponseWriter records what the handler wrote.
type ResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int
	headerWritten bool
	beforeHeader  func(statusCode int)
}

// Wrap returns a recording writer with a default status of 200.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WrapWithHook is Wrap plus a hook that runs once with the final status code
// before it is written, while response headers can still be changed.
func WrapWithHook(w http.ResponseWriter, hook func(statusCode int)) *ResponseWriter {
	rw := Wrap(w)
	rw.beforeHeader = hook
	return rw
}

func (w *ResponseWriter) WriteHeader(statusCode int) {
	if w.headerWritten {
		return
	}
	w.statusCode = statusCode
	w.headerWritten = true
	if w.beforeHeader != nil {
		w.beforeHeader(statusCode)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

// Flush commits the header if needed and flushes when supported.
func (w *ResponseWriter) Flush() {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *ResponseWriter) StatusCode() int { return w.statusCode }

func (w *ResponseWriter) BytesWritten() int { return w.bytesWritten }

// HeaderWritten reports whether the handler produced any response.
func (w *ResponseWriter) HeaderWritten() bool { return w.headerWritten }

// Unwrap supports http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
