package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const RequestIDCtx contextKey = "requestID"

// requestIDFrom 从请求上下文取出请求标识
func requestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(RequestIDCtx).(string); ok {
		return v
	}
	return ""
}

// requestID 为每个请求分配标识，调用方自带 X-Request-Id 时沿用
func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		ctx := context.WithValue(r.Context(), RequestIDCtx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求",
			"requestId", requestIDFrom(r),
			"status", rw.StatusCode,
			"ip", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", duration,
		)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// cors 处理跨域：白名单为空且非生产环境时放行所有来源，
// 其余情况只放行白名单内的来源
func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed, headerValue := h.evaluateOrigin(origin)

		w.Header().Set("Access-Control-Allow-Origin", headerValue)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-Request-Id,Idempotency-Key")
		w.Header().Set("Access-Control-Max-Age", "3600")
		w.Header().Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if origin != "" && !allowed {
			h.errorJSON(w, r, http.StatusForbidden, "ORIGIN_NOT_ALLOWED",
				"Origin is not allowed by CORS policy",
				map[string]string{"origin": origin})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) evaluateOrigin(origin string) (bool, string) {
	allowedOrigins := h.config.Server.CORSAllowedOrigins
	allowAllInDev := h.config.Environment != "production" && len(allowedOrigins) == 0

	if origin == "" {
		if allowAllInDev || len(allowedOrigins) == 0 {
			return true, "*"
		}
		return true, allowedOrigins[0]
	}

	if allowAllInDev || slices.Contains(allowedOrigins, origin) {
		return true, origin
	}
	return false, "null"
}
