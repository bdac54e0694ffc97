// Package logging builds the zap logger used across flowcrafter.
//
// Levels follow the configuration values "none", "normal" and "debug".
// Diagnostics go to a single writer, normally stderr, so that composed
// workflows printed with --stdout stay clean.
package logging

import (
	"errors"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Name is the logger name attached to every entry.
const Name = "flowcrafter"

// New returns a console logger writing to w at the given level.
//
// "none" and the empty string return a no-op logger.
func New(level string, w io.Writer) (*zap.Logger, error) {
	var min zapcore.Level
	switch level {
	case "", "none":
		return zap.NewNop(), nil
	case "normal":
		min = zapcore.InfoLevel
	case "debug":
		min = zapcore.DebugLevel
	default:
		return nil, errors.New("unknown log level '" + level + "'")
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	ec.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(newEncoder(ec), zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(min))
	return zap.New(core).Named(Name), nil
}

// Level maps the verbose flag onto a configured level.
func Level(configured string, verbose bool) string {
	if verbose {
		return "debug"
	}
	if configured == "" {
		return "normal"
	}
	return configured
}

// consoleEnc drops the verbose form of error fields so that console output
// shows only the message.
type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	newFields := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			if e, ok := f.Interface.(error); ok {
				f.Interface = errors.New(e.Error())
			}
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
