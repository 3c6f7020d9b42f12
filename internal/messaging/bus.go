package messaging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// NewBus returns an in-process pub/sub. It is both the publisher and the
// subscriber; closing it once closes both sides.
func NewBus(buffer int64, logger *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: buffer},
		NewZapAdapter(logger),
	)
}

type zapAdapter struct {
	l *zap.Logger
}

// NewZapAdapter routes watermill's internal logging to zap.
func NewZapAdapter(l *zap.Logger) watermill.LoggerAdapter {
	if l == nil {
		l = zap.NewNop()
	}
	return zapAdapter{l: l.Named("watermill")}
}

func fields(f watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (a zapAdapter) Error(msg string, err error, f watermill.LogFields) {
	a.l.Error(msg, append(fields(f), zap.Error(err))...)
}

func (a zapAdapter) Info(msg string, f watermill.LogFields) {
	a.l.Info(msg, fields(f)...)
}

func (a zapAdapter) Debug(msg string, f watermill.LogFields) {
	a.l.Debug(msg, fields(f)...)
}

func (a zapAdapter) Trace(msg string, f watermill.LogFields) {
	a.l.Debug(msg, fields(f)...)
}

func (a zapAdapter) With(f watermill.LogFields) watermill.LoggerAdapter {
	return zapAdapter{l: a.l.With(fields(f)...)}
}
