//go:build !linux

package process

import "os/exec"

// configureSysProcAttr is a no-op: Pdeathsig exists only on Linux.
func configureSysProcAttr(_ *exec.Cmd) {}
