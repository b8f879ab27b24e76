package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS 允许前端开发服务器跨域访问 API 与 WebSocket，请求来源原样回显。
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool { return true },
		AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:  []string{"X-Request-ID"},
		MaxAge:          300,
	})
}
