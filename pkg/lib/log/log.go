// Package log defines the logging interface accepted by the ShortsTurbo SDK.
//
// The SDK logs task stage progression, provider retries and registry
// operations through this interface. By default nothing is logged, [Noop]
// is used when [lib.Config] carries no logger.
//
// Bridge your application's logger by implementing [Logger]:
//
//	type appLogger struct{}
//
//	func (appLogger) Infof(format string, args ...any)    { slog.Info(fmt.Sprintf(format, args...)) }
//	func (appLogger) Warningf(format string, args ...any) { slog.Warn(fmt.Sprintf(format, args...)) }
//	func (appLogger) Errorf(format string, args ...any)   { slog.Error(fmt.Sprintf(format, args...)) }
//	func (appLogger) Debugf(format string, args ...any)   { slog.Debug(fmt.Sprintf(format, args...)) }
//	// ... remaining methods
package log

import "github.com/GiladLeef/ShortsTurbo/internal/log"

// Logger is what the SDK logs through.
//
// [Kv] values attach structured context such as the task ID and pipeline
// stage. Implementations that only care about the formatted messages can
// return themselves from WithValues and WithCtxValues unchanged.
type Logger = log.Logger

// Kv holds structured logging key-value pairs.
type Kv = log.Kv

// Noop discards everything. It is the default when [lib.Config] has no
// logger set.
var Noop = log.Noop
