// Package logging provides structured JSON logging with file rotation.
// With --debug set, full logs are written to ~/.recall/logs/ for
// troubleshooting; otherwise output is minimal and goes to stderr only.
package logging
