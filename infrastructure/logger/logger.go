package logger

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is a subsystem logger. It filters by its own level and forwards
// formatted entries to its backend.
type Logger struct {
	tag     string
	level   uint32
	backend *Backend
}

// SetLevel changes the logging level of the Logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// Level returns the current logging level of the Logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// Backend returns the backend this Logger writes to.
func (l *Logger) Backend() *Backend {
	return l.backend
}

func (l *Logger) write(level Level, format string, args ...interface{}) {
	if level < l.Level() {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	var message string
	if format == "" {
		message = fmt.Sprint(args...)
	} else {
		message = fmt.Sprintf(format, args...)
	}
	entry := fmt.Sprintf("%s [%s] %s: %s\n", timestamp, level, l.tag, message)
	l.backend.write(level, []byte(entry))
}

// Tracef formats message according to format specifier and writes to log with LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.write(LevelTrace, format, args...) }

// Debugf formats message according to format specifier and writes to log with LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.write(LevelDebug, format, args...) }

// Infof formats message according to format specifier and writes to log with LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.write(LevelInfo, format, args...) }

// Warnf formats message according to format specifier and writes to log with LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.write(LevelWarn, format, args...) }

// Errorf formats message according to format specifier and writes to log with LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.write(LevelError, format, args...) }

// Criticalf formats message according to format specifier and writes to log with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, format, args...)
}

// Trace writes args to log with LevelTrace.
func (l *Logger) Trace(args ...interface{}) { l.write(LevelTrace, "", args...) }

// Debug writes args to log with LevelDebug.
func (l *Logger) Debug(args ...interface{}) { l.write(LevelDebug, "", args...) }

// Info writes args to log with LevelInfo.
func (l *Logger) Info(args ...interface{}) { l.write(LevelInfo, "", args...) }

// Warn writes args to log with LevelWarn.
func (l *Logger) Warn(args ...interface{}) { l.write(LevelWarn, "", args...) }

// Error writes args to log with LevelError.
func (l *Logger) Error(args ...interface{}) { l.write(LevelError, "", args...) }

// Critical writes args to log with LevelCritical.
func (l *Logger) Critical(args ...interface{}) { l.write(LevelCritical, "", args...) }

var (
	registryMutex sync.Mutex
	subsystems    = make(map[string]*Logger)
	backendLog    = NewBackend()
)

// RegisterSubSystem returns the logger registered for the given subsystem tag,
// creating it on the shared backend if it doesn't exist yet.
func RegisterSubSystem(tag string) *Logger {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if log, ok := subsystems[tag]; ok {
		return log
	}
	log := &Logger{tag: tag, level: uint32(LevelInfo), backend: backendLog}
	subsystems[tag] = log
	return log
}

// BackendLog returns the shared backend all registered subsystems write to.
func BackendLog() *Backend {
	return backendLog
}

// SetLogLevels sets the logging level of all registered subsystems.
func SetLogLevels(level Level) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	for _, log := range subsystems {
		log.SetLevel(level)
	}
}

// InitLog attaches stdout and the given log files to the shared backend.
// errLogFile receives only warnings and above.
func InitLog(logFile, errLogFile string) error {
	err := backendLog.AddLogWriter(stdoutWriter{}, LevelTrace)
	if err != nil {
		return err
	}
	if logFile != "" {
		err := backendLog.AddLogFile(logFile, LevelTrace)
		if err != nil {
			return err
		}
	}
	if errLogFile != "" {
		err := backendLog.AddLogFile(errLogFile, LevelWarn)
		if err != nil {
			return err
		}
	}
	return nil
}

// LogAndMeasureExecutionTime logs that the given function started and returns
// a closure that logs its total run time when called.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Debugf("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName, time.Since(start))
	}
}
