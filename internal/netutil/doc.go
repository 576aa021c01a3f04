// Package netutil decides which TCP port the embedded database server binds.
//
// CheckPort validates the requested port, probes it by binding and
// immediately releasing a listener, and falls back to the failover port when
// the policy allows it. The probe does not reserve the port: another process
// can claim it between the probe and the server's own bind, which the
// lifecycle controller handles with its bind-collision retry.
package netutil
