package middleware

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the number of bytes written
func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack пробрасывает hijacking нижележащему writer-у,
// иначе websocket upgrade через этот middleware не работает
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return hijacker.Hijack()
}

// LoggingMiddleware создает middleware для логирования HTTP запросов
// Логирует метод, путь, статус, время выполнения, размер ответа
// НЕ логирует sensitive данные (токены, пароли, ключи)
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer для захвата статуса и размера
			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // default status
				written:        0,
			}

			// Обрабатываем запрос
			next.ServeHTTP(wrapped, r)

			// Вычисляем длительность
			duration := time.Since(start)

			// Определяем уровень логирования на основе статуса
			logLevel := slog.LevelInfo
			if wrapped.statusCode >= 500 {
				logLevel = slog.LevelError
			} else if wrapped.statusCode >= 400 {
				logLevel = slog.LevelWarn
			}

			// Логируем запрос (без sensitive данных)
			logger.Log(r.Context(), logLevel, "HTTP request",
				"method", r.Method,
				"path", sanitizePath(r.URL.Path),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"bytes_written", wrapped.written,
			)
		})
	}
}

// sanitizePath маскирует части пути, которые не должны попадать в лог.
// Единственный такой маршрут — GET /api/v1/auth/salt/{username}: имя
// пользователя в пути маскируется, остальные маршруты статические.
func sanitizePath(path string) string {
	if !strings.Contains(path, "/salt/") {
		return path
	}

	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "salt" && i+1 < len(parts) && parts[i+1] != "" {
			parts[i+1] = "***"
		}
	}
	return strings.Join(parts, "/")
}

// LoggingWithSkip создает middleware с возможностью пропуска определенных путей
// Полезно для health checks и других эндпоинтов с высокой частотой запросов
func LoggingWithSkip(logger *slog.Logger, skipPaths []string) func(http.Handler) http.Handler {
	skipMap := make(map[string]bool)
	for _, path := range skipPaths {
		skipMap[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Проверяем, нужно ли пропустить логирование
			if skipMap[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Используем обычный логгер
			LoggingMiddleware(logger)(next).ServeHTTP(w, r)
		})
	}
}
