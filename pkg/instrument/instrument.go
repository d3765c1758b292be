package instrument

import (
	"time"

	"go.uber.org/zap"
)

// Instrument receives the duration of every transport call made by a device client.
type Instrument struct {
	RecordTime func(fnName string, d time.Duration)
}

// RecordTimer starts a timer for fnName. Call the returned func (usually with
// defer) when the call completes.
func RecordTimer(name string, instrument []Instrument) func() {
	if len(instrument) == 0 {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			if instrument[i].RecordTime != nil {
				instrument[i].RecordTime(name, duration)
			}
		}
	}
}

// TraceLogger logs every recorded call at debug level.
func TraceLogger(logger *zap.Logger) *Instrument {
	if logger == nil {
		return nil
	}
	return &Instrument{
		RecordTime: func(fnName string, d time.Duration) {
			logger.Debug("transport call", zap.String("fn", fnName), zap.Int64("millis", d.Milliseconds()))
		},
	}
}

// Collect drops nil entries.
func Collect(inst ...*Instrument) []Instrument {
	var out []Instrument
	for _, i := range inst {
		if i != nil {
			out = append(out, *i)
		}
	}
	return out
}
