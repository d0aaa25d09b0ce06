package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pageza/foodgram/backend/internal/logging"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// responseRecorder holds back plain text error responses so they can be
// rewritten as JSON.
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	capture     bool
	body        strings.Builder
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.statusCode = statusCode
	ct := r.Header().Get("Content-Type")
	if statusCode >= 400 && !strings.HasPrefix(ct, "application/json") {
		r.capture = true
		return
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if r.capture {
		r.body.Write(b)
		return len(b), nil
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok && !r.capture {
		f.Flush()
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Del("Content-Length")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// ErrorHandler recovers panics and turns non-JSON error responses, such as
// the router's plain text 404, into JSON error bodies.
func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logging.Ctx(r.Context()).Error().
					Interface("panic", err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("recovered from panic")
				writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			if rec.capture {
				msg := strings.TrimSpace(rec.body.String())
				if msg == "" {
					msg = http.StatusText(rec.statusCode)
				}
				writeJSONError(w, rec.statusCode, msg)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// StripTrailingSlash serves "/api/recipes/" as "/api/recipes".
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimSuffix(p, "/")
			if r2.URL.RawPath != "" {
				r2.URL.RawPath = strings.TrimSuffix(r2.URL.RawPath, "/")
			}
			r = r2
		}
		next.ServeHTTP(w, r)
	})
}
