package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Setup configures the package-level logrus logger. When toFile is set the
// output goes to path instead of stderr, since the terminal belongs to the
// TUI. The returned closer must be called on exit.
func Setup(level int, path string, toFile bool) (io.Closer, error) {
	log.SetLevel(log.Level(level))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if !toFile {
		log.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	log.SetOutput(f)
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
