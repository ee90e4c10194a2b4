// Package log forwards the log output of the echo framework to a logger
package log

import (
	"io"
	"strings"

	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/log"
)

type logwrapper struct {
	logger log.Logger
}

type logentry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// NewWrapper returns a writer for echo's logger. Each line of a message
// is written as a separate log event.
func NewWrapper(logger log.Logger) io.Writer {
	return &logwrapper{
		logger: logger,
	}
}

func (b *logwrapper) Write(p []byte) (int, error) {
	entry := logentry{}
	if err := json.Unmarshal(p, &entry); err != nil || len(entry.Message) == 0 {
		entry.Level = "DEBUG"
		entry.Message = strings.TrimSpace(string(p))
	}

	logger := b.logger.Debug()

	switch strings.ToUpper(entry.Level) {
	case "ERROR":
		logger = b.logger.Error()
	case "WARN":
		logger = b.logger.Warn()
	case "INFO":
		logger = b.logger.Info()
	}

	for _, line := range strings.Split(entry.Message, "\n") {
		logger.Log("%s", line)
	}

	return len(p), nil
}
