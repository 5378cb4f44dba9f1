package main

import (
	"go.uber.org/fx/fxevent"

	"github.com/pawmate/pawmate/pkg/logger"
)

// fxLogger routes container events to the application logger. Successful
// provides and invokes are only interesting at debug level.
type fxLogger struct {
	log *logger.Logger
}

func (l *fxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.log.WithError(e.Err).WithField("callee", e.FunctionName).Error("start hook failed")
			return
		}
		l.log.WithField("callee", e.FunctionName).WithField("runtime", e.Runtime.String()).Debug("start hook executed")
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.log.WithError(e.Err).WithField("callee", e.FunctionName).Error("stop hook failed")
			return
		}
		l.log.WithField("callee", e.FunctionName).Debug("stop hook executed")
	case *fxevent.Provided:
		if e.Err != nil {
			l.log.WithError(e.Err).Error("provide failed")
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.log.WithError(e.Err).WithField("function", e.FunctionName).Error("invoke failed")
		}
	case *fxevent.Stopping:
		l.log.WithField("signal", e.Signal.String()).Info("received signal")
	case *fxevent.Started:
		if e.Err != nil {
			l.log.WithError(e.Err).Error("start failed")
			return
		}
		l.log.Info("started")
	case *fxevent.RollingBack:
		l.log.WithError(e.StartErr).Error("start failed, rolling back")
	}
}
