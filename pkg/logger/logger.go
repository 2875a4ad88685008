package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/lecture-diary-api/pkg/config"
	"github.com/noah-isme/lecture-diary-api/pkg/middleware/requestid"
)

// New builds the process logger. Production uses the zap production preset; every other
// environment the development one. LOG_FORMAT=console switches the encoder, and an
// unparsable LOG_LEVEL means info.
func New(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Env == config.EnvProduction {
		zc = zap.NewProductionConfig()
	}
	zc.Encoding = "json"
	if cfg.Log.Format == "console" {
		zc.Encoding = "console"
	}
	level := zapcore.InfoLevel
	if cfg.Log.Level != "" {
		if err := level.Set(cfg.Log.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logr, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logr.With(zap.String("env", cfg.Env)), nil
}

// GinMiddleware logs one http_request line per request: info below 400, warn for 4xx and
// error for 5xx, with the private gin errors attached.
func GinMiddleware(logr *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(started)),
			zap.String("ip", c.ClientIP()),
		}
		if id := requestid.Value(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		if ce := logr.Check(level, "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}
