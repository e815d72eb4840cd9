package fs

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	// The TUI owns the terminal; logs are discarded until InitLog points
	// them somewhere.
	l.SetOutput(io.Discard)
	return l
}()

// InitLog configures the shared logger. An empty file keeps output
// discarded so the alternate screen stays clean.
func InitLog(level, file string) error {
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return err
		}
		logger.SetLevel(parsed)
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		logger.SetOutput(f)
	}
	return nil
}

func prefixed(src interface{}, format string) string {
	if src == nil {
		return format
	}
	return fmt.Sprintf("%v: %s", src, format)
}

// Debugf writes a debug message prefixed with the source object.
func Debugf(src interface{}, format string, args ...interface{}) {
	logger.Debugf(prefixed(src, format), args...)
}

// Infof writes an info message prefixed with the source object.
func Infof(src interface{}, format string, args ...interface{}) {
	logger.Infof(prefixed(src, format), args...)
}

// Errorf writes an error message prefixed with the source object.
func Errorf(src interface{}, format string, args ...interface{}) {
	logger.Errorf(prefixed(src, format), args...)
}
