// Package logx wraps zerolog behind a small structured-logging API.
//
// Components receive a Logger and add fixed fields via With(); the Service
// owns the sinks (console, optional file) and can swap level/outputs at
// runtime when the config reloads.
package logx
