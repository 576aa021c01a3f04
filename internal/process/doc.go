// Package process supervises the external database server process.
//
// BaseProcess starts a command with its output captured in log files, stops
// it with SIGTERM followed by SIGKILL, and reports liveness. WaitReady polls a
// readiness check until the server accepts connections or exits early.
package process
