package cache

import (
	"bytes"
	"net/http"

	"golang.org/x/sync/singleflight"
)

// cacheResponseWriter captures the status and body written by the handler.
type cacheResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (w *cacheResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.statusCode = http.StatusOK
		w.written = true
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Manager owns the metadata cache. A nil *Manager caches nothing.
type Manager struct {
	cache *LRUCache
	group singleflight.Group
}

// NewManager returns nil when cfg is nil or disabled.
func NewManager(cfg *Config) *Manager {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Manager{cache: NewLRUCache(cfg.MaxSize, cfg.TTL)}
}

// InvalidateAll drops every cached response.
func (m *Manager) InvalidateAll() {
	if m == nil {
		return
	}
	m.cache.InvalidateAll()
}

// Middleware caches 200 responses to GET requests by request URI. Hits
// carry X-Cache: HIT. Concurrent misses for one key wait for the first
// request to fill the entry instead of all reaching the handler.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := r.URL.RequestURI()

			if m.serveCached(w, key) {
				return
			}

			served := false
			_, _, _ = m.group.Do(key, func() (any, error) {
				served = true
				crw := &cacheResponseWriter{ResponseWriter: w}
				crw.Header().Set("X-Cache", "MISS")
				next.ServeHTTP(crw, r)
				if crw.statusCode == http.StatusOK {
					m.cache.Set(key, bytes.Clone(crw.body.Bytes()), crw.Header().Get("Content-Type"))
				}
				return nil, nil
			})
			if served {
				return
			}
			// Another request filled the entry, unless it was not cacheable.
			if !m.serveCached(w, key) {
				w.Header().Set("X-Cache", "MISS")
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (m *Manager) serveCached(w http.ResponseWriter, key string) bool {
	body, contentType, ok := m.cache.Get(key)
	if !ok {
		return false
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return true
}
