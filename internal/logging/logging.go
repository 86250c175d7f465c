package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/niklasbuhl/virtual-whiteboard-backend/config"
	"github.com/samber/oops"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// LogError logs err, expanding the code and context of oops errors.
func LogError(l *zap.Logger, msg string, err error, fields ...zap.Field) {
	if oopsErr, ok := oops.AsOops(err); ok {
		fields = append(fields, zap.String("error", oopsErr.Error()))
		if code := oopsErr.Code(); code != nil {
			fields = append(fields, zap.Any("code", code))
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, zap.Any("context", ctx))
		}
		l.Error(msg, fields...)
		return
	}
	l.Error(msg, append(fields, zap.Error(err))...)
}

// Middleware logs one line per request.
func Middleware(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				l.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
