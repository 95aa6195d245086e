package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type cachedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (cw *cachedWriter) WriteHeader(status int) {
	cw.status = status
	cw.ResponseWriter.WriteHeader(status)
}

func (cw *cachedWriter) Write(p []byte) (int, error) {
	cw.body.Write(p)
	return cw.ResponseWriter.Write(p)
}

// CacheResponse caches successful GET responses in Redis for ttl,
// keyed by path and caller. Must be used after JWTMiddleware so the
// cache is per-user and cannot leak across members.
func CacheResponse(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("cache:%d:%s", GetUserID(r), r.URL.RequestURI())
			if body, err := Rdb.Get(context.Background(), key).Bytes(); err == nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				w.Write(body)
				return
			}

			cw := &cachedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status == http.StatusOK {
				if err := Rdb.Set(context.Background(), key, cw.body.Bytes(), ttl).Err(); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("response cache store failed")
				}
			}
		})
	}
}
