package logrus

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
)

// NewLogrus returns a new log.Logger backed by a logrus entry.
func NewLogrus(l *logrus.Entry) log.Logger {
	return logger{entry: l}
}

type logger struct {
	entry *logrus.Entry
}

func (l logger) Infof(format string, args ...interface{})    { l.entry.Infof(format, args...) }
func (l logger) Warningf(format string, args ...interface{}) { l.entry.Warningf(format, args...) }
func (l logger) Errorf(format string, args ...interface{})   { l.entry.Errorf(format, args...) }
func (l logger) Debugf(format string, args ...interface{})   { l.entry.Debugf(format, args...) }

func (l logger) WithValues(kv map[string]interface{}) log.Logger {
	return logger{entry: l.entry.WithFields(logrus.Fields(kv))}
}

func (l logger) WithCtxValues(ctx context.Context) log.Logger {
	return l.WithValues(log.ValuesFromCtx(ctx))
}

func (l logger) SetValuesOnCtx(parent context.Context, values log.Kv) context.Context {
	return log.CtxWithValues(parent, values)
}
