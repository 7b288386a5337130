package logger

import (
	"errors"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/campus-timetable-api/pkg/config"
)

// Reporter receives entries forwarded by RollbarCore.
type Reporter func(level zapcore.Level, msg string, err error, extras map[string]interface{})

// NewRollbarReporter configures the global Rollbar client and returns a
// reporter that sends to it.
func NewRollbarReporter(cfg config.RollbarConfig) Reporter {
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)

	return func(level zapcore.Level, msg string, err error, extras map[string]interface{}) {
		if err == nil {
			err = errors.New(msg)
		}
		if extras == nil {
			extras = map[string]interface{}{}
		}
		extras["message"] = msg
		if level >= zapcore.DPanicLevel {
			rollbar.Critical(err, extras)
			return
		}
		rollbar.Error(err, extras)
	}
}

// RollbarCore is a zapcore.Core that forwards entries at or above a level.
type RollbarCore struct {
	zapcore.LevelEnabler
	report Reporter
	fields []zapcore.Field
}

// NewRollbarCore builds the forwarding core.
func NewRollbarCore(level zapcore.LevelEnabler, report Reporter) *RollbarCore {
	return &RollbarCore{LevelEnabler: level, report: report}
}

// With adds structured context to the core.
func (c *RollbarCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

// Check registers the core when the entry level is enabled.
func (c *RollbarCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write forwards the entry. An "error" field becomes the reported error.
func (c *RollbarCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	var reported error
	for _, f := range append(append([]zapcore.Field(nil), c.fields...), fields...) {
		if f.Type == zapcore.ErrorType {
			if err, ok := f.Interface.(error); ok && reported == nil {
				reported = err
				continue
			}
		}
		f.AddTo(enc)
	}
	c.report(entry.Level, entry.Message, reported, enc.Fields)
	return nil
}

// Sync waits for queued Rollbar items.
func (c *RollbarCore) Sync() error {
	rollbar.Wait()
	return nil
}
