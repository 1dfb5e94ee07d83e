// Package logger configures the process-wide logrus logger. Importing it for
// side effect installs the formatter; binaries serving the protocol on
// stdout must also call UseStderr so log lines never mix with responses.
package logger

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

type ConsoleFormatter struct{}

func (f *ConsoleFormatter) Format(entry *log.Entry) ([]byte, error) {
	levelColor := "\033[37m" // Default white
	resetColor := "\033[0m"

	switch entry.Level {
	case log.InfoLevel:
		levelColor = "\033[32m" // Green
	case log.WarnLevel:
		levelColor = "\033[33m" // Yellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = "\033[31m" // Red
	case log.DebugLevel:
		levelColor = "\033[36m" // Cyan
	}

	timestamp := entry.Time.Format("2006/01/02 - 15:04:05")

	// Uppercase and pad log level for alignment
	level := fmt.Sprintf("% -5s", strings.ToUpper(entry.Level.String()))

	return []byte(fmt.Sprintf("%s[%s] %s%s | %s\n",
		levelColor, timestamp, level, resetColor, entry.Message)), nil
}

// UseStderr redirects log output to stderr. Required in stdio transport
// mode, where stdout carries the wire protocol.
func UseStderr() {
	log.SetOutput(os.Stderr)
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&ConsoleFormatter{})
	log.SetReportCaller(false)

	level := log.InfoLevel
	if raw := os.Getenv("MCP_LOG_LEVEL"); raw != "" {
		if parsed, err := log.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
}
