package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx lifecycle events into the package logger.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx. Successful wiring is logged at DEBUG so CLI output stays quiet.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("OnStart hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
		} else {
			Debugf("OnStart hook executed: %s", trimFuncName(e.FunctionName))
		}
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("OnStop hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
		} else {
			Debugf("OnStop hook executed: %s", trimFuncName(e.FunctionName))
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("Supplied failed: %v", e.Err)
		}
	case *fxevent.Provided:
		for _, rtype := range e.OutputTypeNames {
			Debugf("Provided: %s", rtype)
		}
		if e.Err != nil {
			Errorf("Provide error: %v", e.Err)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("Invoke failed: %s, error: %v", e.FunctionName, e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back, error: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("Rollback failed, error: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed, error: %v", e.Err)
		} else {
			Debugf("Application started.")
		}
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("Stop failed, error: %v", e.Err)
		}
	}
}

// trimFuncName removes anonymous function suffixes such as ".func1" from fx function names.
func trimFuncName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
