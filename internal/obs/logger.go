// Package obs holds the ambient operational concerns shared by the whole
// service: structured logging setup and the periodic template-reload
// scheduler.
package obs

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds the logging configuration.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultLogConfig returns a LogConfig with sensible defaults.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		FilePath:   "logs/app.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

// SetupLogger configures the global zerolog logger based on LogConfig.
func SetupLogger(cfg *LogConfig) error {
	if cfg == nil {
		cfg = DefaultLogConfig()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	switch cfg.Output {
	case "stdout":
		writers = append(writers, buildStdoutWriter(cfg.Format))
	case "file":
		fileWriter, err := buildFileWriter(cfg)
		if err != nil {
			return err
		}
		writers = append(writers, fileWriter)
	case "both":
		writers = append(writers, buildStdoutWriter(cfg.Format))
		fileWriter, err := buildFileWriter(cfg)
		if err != nil {
			return err
		}
		writers = append(writers, fileWriter)
	default:
		writers = append(writers, buildStdoutWriter(cfg.Format))
	}

	multiWriter := io.MultiWriter(writers...)
	log.Logger = zerolog.New(multiWriter).With().Timestamp().Caller().Logger()

	log.Info().
		Str("level", cfg.Level).
		Str("format", cfg.Format).
		Str("output", cfg.Output).
		Msg("logger initialized")

	return nil
}

func buildStdoutWriter(format string) io.Writer {
	if format == "console" {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}
	return os.Stdout
}

func buildFileWriter(cfg *LogConfig) (io.Writer, error) {
	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

// RequestLogger returns a gin middleware for request logging.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := generateRequestID()
		c.Set("request_id", requestID)

		startTime := time.Now()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()
		responseSize := c.Writer.Size()

		event := log.Info()
		if statusCode >= 500 {
			event = log.Error()
		} else if statusCode >= 400 {
			event = log.Warn()
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("client_ip", clientIP).
			Int("response_size", responseSize).
			Str("user_agent", c.Request.UserAgent()).
			Msg("http request")

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				log.Error().
					Str("request_id", requestID).
					Err(e.Err).
					Int("type", int(e.Type)).
					Msg("request error")
			}
		}
	}
}

func generateRequestID() string {
	now := time.Now()
	return now.Format("20060102150405") + "-" + randomString(6)
}

func randomString(n int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[time.Now().UnixNano()%int64(len(charset))]
		time.Sleep(time.Nanosecond)
	}
	return string(b)
}

// GetLogger returns a logger with the given component name.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithRequestID returns a logger with request ID from gin context.
func WithRequestID(c *gin.Context) zerolog.Logger {
	requestID := ""
	if id, exists := c.Get("request_id"); exists {
		if idStr, ok := id.(string); ok {
			requestID = idStr
		}
	}
	return log.With().Str("request_id", requestID).Logger()
}
