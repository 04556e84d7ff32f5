//go:build !nogpu

package halqueue

import (
	"log/slog"

	"github.com/gogpu/submitq"
)

// slogger returns the current package logger. halqueue shares the submitq
// logger, so [submitq.SetLogger] configures both packages at once.
func slogger() *slog.Logger { return submitq.Logger() }
