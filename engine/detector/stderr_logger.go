package detector

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// stderrLogger forwards each line a child process writes to stderr into slog.
// glog-style prefixes (I/W/E/F followed by a digit) and Python warning lines choose the level.
type stderrLogger struct {
	mu      sync.Mutex
	logger  *slog.Logger
	partial []byte
}

func newStderrLogger(l *slog.Logger) *stderrLogger {
	return &stderrLogger{logger: l}
}

func (s *stderrLogger) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.partial = append(s.partial, p...)
	for {
		i := bytes.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(s.partial[:i]), "\r")
		s.partial = s.partial[i+1:]
		if line != "" {
			s.logger.Log(context.Background(), stderrLevel(line), "detector: worker stderr", "line", line)
		}
	}
	return len(p), nil
}

// stderrLevel maps a child stderr line to a log level.
func stderrLevel(line string) slog.Level {
	if len(line) > 1 && line[1] >= '0' && line[1] <= '9' {
		switch line[0] {
		case 'E', 'F':
			return slog.LevelError
		case 'W':
			return slog.LevelWarn
		case 'I':
			return slog.LevelDebug
		}
	}
	switch {
	case strings.Contains(line, "Traceback"), strings.Contains(line, "Error"):
		return slog.LevelError
	case strings.Contains(line, "Warning"), strings.HasPrefix(line, "WARNING"):
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}
