// Package fileutil provides the small filesystem helpers embeddb needs:
// creating data directories, checking whether a startup script exists, and
// holding an inter-process lock on a data directory while databases are
// provisioned.
package fileutil
