package apiclient

import (
	"github.com/sirupsen/logrus"
)

// APICallEvent records metadata about a single API call.
type APICallEvent struct {
	Operation string
	Method    string
	Path      string
	Status    int
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about API calls for logging and metrics.
type Observer interface {
	OnCallComplete(event APICallEvent)
}

// LogObserver writes API call events to a logrus logger at debug level,
// failures at warn.
type LogObserver struct {
	log logrus.FieldLogger
}

// NewLogObserver creates an Observer that logs events to log.
func NewLogObserver(log logrus.FieldLogger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnCallComplete(event APICallEvent) {
	entry := o.log.WithFields(logrus.Fields{
		"op":         event.Operation,
		"method":     event.Method,
		"path":       event.Path,
		"status":     event.Status,
		"latency_ms": event.LatencyMs,
	})
	if !event.Success {
		entry.WithField("error_code", event.ErrorCode).Warn("api_call failed")
		return
	}
	entry.Debug("api_call")
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(APICallEvent) {}
