package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter cuenta peticiones por clave dentro de una ventana fija.
type RateLimiter interface {
	Allow(key string) bool
}

// RateLimitMiddleware rechaza con 429 las peticiones que exceden el límite
// del cliente (por IP). Un limiter nil desactiva el control.
func RateLimitMiddleware(limiter RateLimiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter implementa una ventana fija en memoria. Sirve como
// fallback cuando no hay redis configurado; los contadores no sobreviven al
// proceso ni se comparten entre instancias.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]windowEntry
}

func NewMemoryRateLimiter(window time.Duration, max int) *MemoryRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &MemoryRateLimiter{
		window:  window,
		max:     max,
		entries: make(map[string]windowEntry),
	}
}

func (l *MemoryRateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = windowEntry{resetAt: now.Add(l.window)}
	}
	entry.count++
	l.entries[key] = entry
	return entry.count <= l.max
}

const redisAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// RedisRateLimiter implementa la misma ventana fija sobre redis, para que el
// límite se comparta entre réplicas. Ante errores de redis deja pasar.
type RedisRateLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
	prefix string
}

func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int, prefix string) *RedisRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &RedisRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: prefix,
	}
}

func (l *RedisRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	if key == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisAllowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
