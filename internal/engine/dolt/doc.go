// Package dolt runs a dolt sql-server child process as the embedded database
// engine and talks to it over the MySQL wire protocol.
//
// The server listens on all interfaces and accepts the password-less root
// user. It must only be reachable from localhost or a trusted network.
package dolt
