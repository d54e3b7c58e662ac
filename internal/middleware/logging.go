package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

// RequestLogger 记录每个请求的状态码、耗时与请求 ID。请求体可能包含用户倾诉内容，不记录。
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Infow("HTTP Request Log",
			"statusCode", status,
			"latency", time.Since(start).String(),
			"clientIP", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"requestID", chimiddleware.GetReqID(r.Context()),
			"bytes", ww.BytesWritten(),
		)
	})
}
