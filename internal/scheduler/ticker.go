package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Ticker starts a recurring task and returns the function that stops it.
// Calling stop more than once is safe.
type Ticker interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// CronTicker runs recurring tasks on a cron scheduler. Each firing runs in
// its own goroutine, so a slow task never delays the next tick.
type CronTicker struct {
	logger *logrus.Logger
}

// NewCronTicker creates a new cron-backed ticker
func NewCronTicker(logger *logrus.Logger) *CronTicker {
	return &CronTicker{logger: logger}
}

// Every schedules fn at a constant interval, rounded down to whole seconds
// with a one second minimum. The first run happens one interval from now.
func (t *CronTicker) Every(interval time.Duration, fn func()) func() {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{t.logger})))
	c.Schedule(cron.Every(interval), cron.FuncJob(fn))
	c.Start()

	t.logger.WithField("interval", interval).Debug("Ticker started")

	stopped := make(chan struct{})
	return func() {
		select {
		case <-stopped:
			return
		default:
			close(stopped)
		}
		c.Stop()
		t.logger.Debug("Ticker stopped")
	}
}

// cronLogger adapts logrus to the cron.Logger interface
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			f[k] = keysAndValues[i+1]
		}
	}
	return f
}
