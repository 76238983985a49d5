package router

import (
	"net/http"
	"time"

	"DisplayAPI/internal/config"
	"DisplayAPI/internal/handler"
	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/metrics"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// New builds the HTTP handler of the service.
func New(cfg config.CORSConfig, api *handler.API, m *metrics.Metrics) http.Handler {
	r := httprouter.New()
	r.GET("/api/:model/:view", observe(m, "/api/:model/:view", api.List))
	r.GET("/api/:model/:view/count", observe(m, "/api/:model/:view/count", api.Count))
	r.GET("/api/:model/:view/schema", observe(m, "/api/:model/:view/schema", api.Schema))
	if m != nil {
		r.Handler(http.MethodGet, "/metrics", m.Handler())
	}
	return withCORS(cfg.AllowOrigin, cfg.AllowCredentials, withLogging(r.ServeHTTP))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// observe counts requests per route pattern.
func observe(m *metrics.Metrics, route string, h httprouter.Handle) httprouter.Handle {
	if m == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r, ps)
		m.ObserveRequest(route, sw.status, time.Since(start).Seconds())
	}
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		level := "info"
		if sw.status >= 500 {
			level = "error"
		} else if sw.status >= 400 {
			level = "warn"
		}
		fields := map[string]any{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		switch level {
		case "error":
			logger.Error("response", fields)
		case "warn":
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
