// Package core provides the internal implementation of embeddb.
//
// It contains the Controller (a Stopped/Starting/Running/Stopping state
// machine that negotiates a port, creates the server with bounded
// bind-collision retry and provisions databases), the Registry of
// name@scriptPath entries, and the Provisioner that runs each startup script
// at most once per database.
package core
