package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/yi-nology/mediable/pkg/config"
)

// Init configures the process logger. The returned closer releases the log
// file when output is not stdout/stderr.
func Init(cfg config.LogConfig) (io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	hlog.SetLevel(level)

	switch out := strings.TrimSpace(cfg.Output); out {
	case "", "stdout":
		hlog.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	case "stderr":
		hlog.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	default:
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		hlog.SetOutput(f)
		return f, nil
	}
}

// ParseLevel maps a config level name onto an hlog level.
func ParseLevel(name string) (hlog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return hlog.LevelTrace, nil
	case "debug":
		return hlog.LevelDebug, nil
	case "", "info":
		return hlog.LevelInfo, nil
	case "notice":
		return hlog.LevelNotice, nil
	case "warn", "warning":
		return hlog.LevelWarn, nil
	case "error":
		return hlog.LevelError, nil
	case "fatal":
		return hlog.LevelFatal, nil
	default:
		return hlog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Recover turns a panic in the calling goroutine into an error stored in
// errp, logging the stack trace. It must be deferred directly.
func Recover(ctx context.Context, errp *error) {
	if r := recover(); r != nil {
		hlog.CtxErrorf(ctx, "panic recovered: %v\n%s", r, string(debug.Stack()))
		if errp != nil {
			*errp = fmt.Errorf("panic: %v", r)
		}
	}
}
