// Package logging provides structured, context-aware logging for gapd.
//
// It wraps go.uber.org/zap with:
//   - A custom Trace level below Debug for wire-level detail
//   - Context-carried correlation fields (request ID, detection run ID,
//     OpenTelemetry trace/span IDs)
//   - Field-name and value-pattern redaction so API keys and credentials
//     never reach log output
//   - Level-aware sampling that never drops Error and above
//   - An optional OTEL log bridge for shipping logs to a collector
//   - A test logger built on zaptest/observer for asserting log output
//
// Loggers are created from a Config and passed explicitly; FromContext
// provides a fallback nop logger for call sites without one.
package logging
