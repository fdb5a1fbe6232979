// Package logx wraps zerolog behind a small structured-logging API so the
// rest of the codebase never imports zerolog directly.
package logx
