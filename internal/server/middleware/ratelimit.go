package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter token-bucket лимитер per клиентский ключ (IP). Бакет получает
// rate токенов на окно; опустевший бакет пополняется целиком по истечении
// окна, частичного пополнения нет.
type Limiter struct {
	buckets map[string]*clientBucket
	rate    int
	window  time.Duration
	done    chan struct{}
	mu      sync.Mutex
}

type clientBucket struct {
	refilled time.Time
	tokens   int
}

// NewLimiter создает лимитер и запускает фоновую чистку бакетов,
// по которым давно не было запросов
func NewLimiter(rate int, window time.Duration) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*clientBucket),
		rate:    rate,
		window:  window,
		done:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow списывает токен клиента; false — лимит исчерпан до конца окна
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{tokens: l.rate, refilled: now}
		l.buckets[key] = b
	}

	if now.Sub(b.refilled) >= l.window {
		b.tokens = l.rate
		b.refilled = now
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

// Close останавливает фоновую чистку
func (l *Limiter) Close() {
	close(l.done)
}

func (l *Limiter) janitor() {
	ticker := time.NewTicker(l.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.done:
			return
		}
	}
}

// prune выбрасывает бакеты, не пополнявшиеся два окна подряд
func (l *Limiter) prune() {
	cutoff := time.Now().Add(-2 * l.window)

	l.mu.Lock()
	for key, b := range l.buckets {
		if b.refilled.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
	l.mu.Unlock()
}

// PathLimit ужесточенный лимит для конкретного маршрута: login и register
// дороже обычного запроса и прикрывают подбор пароля
type PathLimit struct {
	Path   string
	Rate   int
	Window time.Duration
}

// RateLimitMiddleware ограничивает каждого клиента defaultRate запросами
// за window; маршруты из overrides считаются своими лимитерами.
// Отклоненный запрос получает 429 с Retry-After до конца окна.
func RateLimitMiddleware(defaultRate int, window time.Duration, overrides []PathLimit, logger *slog.Logger) func(http.Handler) http.Handler {
	defaultLimiter := NewLimiter(defaultRate, window)
	perPath := make(map[string]*Limiter, len(overrides))
	retryAfter := make(map[string]time.Duration, len(overrides))
	for _, o := range overrides {
		perPath[o.Path] = NewLimiter(o.Rate, o.Window)
		retryAfter[o.Path] = o.Window
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter, wait := defaultLimiter, window
			if l, ok := perPath[r.URL.Path]; ok {
				limiter, wait = l, retryAfter[r.URL.Path]
			}

			key := clientIP(r)
			if limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("rate limit exceeded",
				"client", key,
				"method", r.Method,
				"path", r.URL.Path,
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests, slow down"}`))
		})
	}
}

// clientIP ключ лимитера: первый адрес из X-Forwarded-For, затем
// X-Real-IP, иначе RemoteAddr как есть
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
