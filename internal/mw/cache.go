package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// snapshot is a stored response. Per-request headers are never part of it.
type snapshot struct {
	status      int
	contentType string
	body        []byte
}

// teeWriter copies everything the handler writes into buf.
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func cacheKey(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

// bypass reports whether the client asked for a fresh response.
func bypass(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache")
}

// Cache serves repeated GET requests for read-only room data from memory.
// The X-Cache header reports HIT, MISS or BYPASS. A Cache-Control: no-cache
// request skips the lookup but still refreshes the entry.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c.Request)
		state := "BYPASS"
		if !bypass(c.Request) {
			if v, ok := store.Get(key); ok {
				snap := v.(snapshot)
				c.Header("X-Cache", "HIT")
				c.Data(snap.status, snap.contentType, snap.body)
				c.Abort()
				return
			}
			state = "MISS"
		}

		c.Header("X-Cache", state)
		tee := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tee

		c.Next()

		if status := tee.Status(); status >= 200 && status < 300 {
			store.Set(key, snapshot{
				status:      status,
				contentType: tee.Header().Get("Content-Type"),
				body:        bytes.Clone(tee.buf.Bytes()),
			}, ttl)
		}
	}
}
