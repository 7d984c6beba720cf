package monitoring

import (
	"fmt"
	"log"

	"go.uber.org/zap"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or UseZap. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// UseZap routes Logf through a zap sugared logger: the development config
// when debug is set, the production (JSON) config otherwise. The returned
// func flushes buffered entries and should be deferred by the caller.
func UseZap(debug bool) (func(), error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		logger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	SetZapLogger(logger)
	return func() { _ = logger.Sync() }, nil
}

// SetZapLogger routes Logf through an existing zap logger at info level.
func SetZapLogger(logger *zap.Logger) {
	sugar := logger.Sugar()
	Logf = sugar.Infof
}
