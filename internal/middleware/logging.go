// Package middleware contains HTTP middleware for the development backend.
//
// WHAT IS MIDDLEWARE HERE?
// Anything every route needs, and no handler should repeat: request logging
// in this file. Bearer-token checks live next to the token code in
// auth.RequireAuth. chi mounts both with r.Use (whole router) or
// r.With / r.Group (a subset of routes).
//
// The pattern is:
//
//	func MyMiddleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before
//	        next.ServeHTTP(w, r)
//	        // after
//	    })
//	}
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter records the status code and body size, which
// http.ResponseWriter does not expose after the fact.
//
// WHY EMBED http.ResponseWriter?
// Embedding promotes Header and every other method untouched. Only
// WriteHeader and Write are shadowed, to observe what the handler sends.
// statusCode starts at 200 because a handler that never calls WriteHeader
// gets an implicit 200 on its first Write.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logger logs one line per request.
//
// REQUEST CORRELATION:
// The tracker client stamps every call with an X-Request-ID. Mounted after
// chimiddleware.RequestID, this logger prints that same ID, so a client-side
// "remote call failed requestID=..." line can be matched to the server line.
//
// WHY PICK THE LEVEL FROM THE STATUS?
// A 500 is the server's own bug and should stand out at Error. A 4xx is the
// caller's problem (bad token, unknown job, invalid body) and stays at Warn,
// which the tests and the CLI's end-to-end runs can filter out. Everything
// else is routine and logs at Info.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			)
		})
	}
}
