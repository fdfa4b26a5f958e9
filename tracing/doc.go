// Package tracing wraps OpenTelemetry so that lifecycle operations and HTTP
// requests can be traced with StartSpan/EndSpan without importing the
// upstream packages directly.
package tracing
