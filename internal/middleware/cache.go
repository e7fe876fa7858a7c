package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-reservation/internal/config"
)

// cacheBackend is the subset of redis.Cmdable the response cache needs.
type cacheBackend interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// cachedResponse is what gets stored per key. Body is base64 in JSON.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// hop headers are never replayed from the cache.
var uncachedHeaders = []string{"Content-Length", HeaderRequestID, "X-Cache", "Set-Cookie"}

// bodyRecorder tees the response to the client and keeps a copy of up to
// max bytes. overflow is set once the body grows past max.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	max      int64
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.max > 0 && int64(r.body.Len()+len(b)) > r.max {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts of the request selected by KeyStrategy.
// The concrete path is always part of the key so /movies/1 and /movies/2
// never share an entry.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := []string{"path=" + r.URL.Path}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
	case "method_route":
		parts = append(parts, "method="+r.Method)
	case "method_route_query":
		parts = append(parts, "method="+r.Method, "q="+r.URL.Query().Encode())
	default: // route_query
		parts = append(parts, "q="+r.URL.Query().Encode())
	}
	sum := sha256.Sum256([]byte(c.Path() + "|" + strings.Join(parts, "|")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	h := header.Clone()
	for _, k := range uncachedHeaders {
		h.Del(k)
	}
	return json.Marshal(cachedResponse{Status: status, Header: h, Body: body})
}

func decodePayload(bs []byte) (cachedResponse, bool) {
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status < 100 || cr.Status > 599 {
		return cachedResponse{}, false
	}
	return cr, true
}

// NewRedisCache serves repeated catalog reads from Redis. Only 200
// responses of the configured methods are stored; bodies larger than
// MaxBodyBytes are served but not cached. Redis errors degrade to a miss.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return responseCache(cfg, rdb)
}

func responseCache(cfg config.CacheConfig, backend cacheBackend) echo.MiddlewareFunc {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)
			res := c.Response()

			if bs, err := backend.Get(ctx, key).Bytes(); err == nil {
				if cr, ok := decodePayload(bs); ok {
					for k, vals := range cr.Header {
						for _, v := range vals {
							res.Header().Add(k, v)
						}
					}
					res.Header().Set("X-Cache", "HIT")
					res.WriteHeader(cr.Status)
					_, err := res.Write(cr.Body)
					return err
				}
			}

			rec := &bodyRecorder{ResponseWriter: res.Writer, status: http.StatusOK, max: int64(cfg.MaxBodyBytes)}
			res.Writer = rec
			res.Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow {
				return nil
			}
			if payload, err := encodePayload(rec.status, res.Header(), rec.body.Bytes()); err == nil {
				_ = backend.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err()
			}
			return nil
		}
	}
}
