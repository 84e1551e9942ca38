package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	logger.Out = os.Stdout
	logger.Formatter = &log.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	}
	logger.SetLevel(log.DebugLevel)

	// LOG_TO_FILE=true keeps the dated log file layout under ./logs.
	if os.Getenv("LOG_TO_FILE") == "true" {
		if out, err := openLogFile(os.Getenv("ENV")); err != nil {
			log.Warnf("Failed to open log file: %v, falling back to stdout", err)
		} else {
			logger.Out = out
		}
	}
}

func openLogFile(env string) (io.Writer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	logsDir := filepath.Join(cwd, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, err
	}
	filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", time.Now().Format("2006-01-02"), env))
	return os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
}

// Configure applies the format ("json" or "text") and level from configuration.
// Unknown values leave the current setting untouched.
func Configure(format, level string) {
	switch strings.ToLower(format) {
	case "text":
		logger.Formatter = &log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	case "json":
		logger.Formatter = &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	if level == "" {
		return
	}
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) { logger.Out = w }

func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)

	functionObject := runtime.FuncForPC(function)
	name := ""
	if functionObject != nil {
		name = functionObject.Name()
	}
	entry := logger.WithFields(log.Fields{
		"requestId": time.Now().UnixNano() / int64(time.Millisecond),
		"function":  name,
		"file":      file,
		"line":      line,
	})

	return entry
}
