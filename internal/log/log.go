// Package log provides the scheduler's logging helpers: a thin,
// fields-first wrapper around a package-level logrus.Logger, the same
// shape as rclone's own fs.Debugf/fs.Infof call sites (see any
// backend's use of fs.Debugf(f, "msg %v", x)), except that the
// scheduler itself never logs (spec.md §7); only the driver's
// host-integration layer and the CLI harness do.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

var logger = logrus.StandardLogger()

// SetLevel adjusts verbosity; the CLI harness's -v flag sets debug level.
func SetLevel(level logrus.Level) {
	logger.SetLevel(level)
}

type ctxKey struct{}

// WithConn returns a context carrying connID, so every log line below
// it in the call tree can be tagged without threading a parameter
// through every call.
func WithConn(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, connID)
}

func fields(ctx context.Context) logrus.Fields {
	if connID, ok := ctx.Value(ctxKey{}).(string); ok {
		return logrus.Fields{"conn": connID}
	}
	return logrus.Fields{}
}

// Debugf logs at debug level with the connection id (if any) attached.
func Debugf(ctx context.Context, format string, args ...any) {
	logger.WithFields(fields(ctx)).Debugf(format, args...)
}

// Infof logs at info level with the connection id (if any) attached.
func Infof(ctx context.Context, format string, args ...any) {
	logger.WithFields(fields(ctx)).Infof(format, args...)
}

// Errorf logs at error level with the connection id (if any) attached.
func Errorf(ctx context.Context, format string, args ...any) {
	logger.WithFields(fields(ctx)).Errorf(format, args...)
}
