package middleware

import (
	"net/http"

	"github.com/malwarebo/rentops/utils"
)

const DefaultMaxRequestBytes int64 = 1 << 20

// RequestSizeLimitMiddleware caps request bodies. Handlers see a read error past the limit.
func RequestSizeLimitMiddleware(maxSize int64) Stage {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				w.Header().Set("Connection", "close")
				utils.WriteError(w, utils.ErrRequestTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			}
			next.ServeHTTP(w, r)
		})
	}
}
