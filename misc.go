package tslh

import (
	"fmt"
	goLog "log"
)

// Error is the interface satisfied by every error this package returns.
// Locked indicates the error arose from a lockfile contention and a retry
// might succeed; Inner exposes a wrapped cause, if any.
type Error interface {
	error
	Locked() bool
	Inner() error
}

type errorImpl struct {
	msg    string
	locked bool
	inner  error
}

func (err *errorImpl) Locked() bool { return err.locked }
func (err *errorImpl) Inner() error { return err.inner }

func (err *errorImpl) Error() string {
	if err.inner != nil {
		return fmt.Sprintf("%s: %s", err.msg, err.inner.Error())
	}
	return err.msg
}

// errorf formats a new Error.
func errorf(format string, a ...interface{}) *errorImpl {
	return &errorImpl{msg: fmt.Sprintf(format, a...)}
}

// wrapErrorf formats a new Error that wraps another.
func wrapErrorf(err error, format string, a ...interface{}) *errorImpl {
	return &errorImpl{msg: fmt.Sprintf(format, a...), inner: err}
}

func lockedErrorf(format string, a ...interface{}) *errorImpl {
	e := errorf(format, a...)
	e.locked = true
	return e
}

type dummyLogger struct{}
type stdlibLogger struct{}

func (logger *dummyLogger) Logf(format string, a ...interface{}) {}

func (logger *stdlibLogger) Logf(format string, a ...interface{}) {
	goLog.Printf(format, a...)
}

var log Logger = &dummyLogger{}

// Logger receives diagnostic messages; hypertreeSign reports subtree
// cache misses through it. Signing and verification never depend on
// logging for correctness, per the CORE's totality.
type Logger interface {
	Logf(format string, a ...interface{})
}

// EnableLogging sends diagnostic output to the standard log package.
// For more flexibility, see SetLogger.
func EnableLogging() {
	SetLogger(&stdlibLogger{})
}

// SetLogger installs logger as the destination for diagnostic output.
// Pass nil to disable logging.
func SetLogger(logger Logger) {
	if logger == nil {
		log = &dummyLogger{}
		return
	}
	log = logger
}
