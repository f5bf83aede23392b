package logutil

import (
	"context"
	"io"

	"github.com/datawire/dlib/dlog"
	//nolint: depguard
	"github.com/sirupsen/logrus"
)

func ParseLogLevel(str string) (logrus.Level, error) {
	return logrus.ParseLevel(str)
}

// NewLogger returns a logrus.Logger that writes text lines at the named level to out.
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		FullTimestamp:   true,
	})
	logger.SetReportCaller(false)
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	return logger, nil
}

// WithLogger installs logger as the dlog logger for ctx.
func WithLogger(ctx context.Context, logger *logrus.Logger) context.Context {
	return dlog.WithLogger(ctx, dlog.WrapLogrus(logger))
}
