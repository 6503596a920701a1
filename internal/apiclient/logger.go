package apiclient

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// leveledLogger adapts a logrus logger to retryablehttp.LeveledLogger.
// Retry chatter is demoted one level so a healthy run stays quiet at info.
type leveledLogger struct {
	log logrus.FieldLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fieldsOf(keysAndValues)).Warn(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fieldsOf(keysAndValues)).Info(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fieldsOf(keysAndValues)).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(fieldsOf(keysAndValues)).Debug(msg)
}

func fieldsOf(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	if len(kv)%2 == 1 {
		fields["extra"] = kv[len(kv)-1]
	}
	return fields
}
