//go:build unix

package tools

import (
	"errors"
	"syscall"
)

// isProcessRunning reports whether pid names a live process.
// Signal 0 performs the permission and existence checks without signalling.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// Exists, owned by another user
		return true
	default:
		// ESRCH and anything unexpected
		return false
	}
}
