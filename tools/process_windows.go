//go:build windows

package tools

import "syscall"

// isProcessRunning reports whether pid names a process that has not exited
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	const access = syscall.PROCESS_QUERY_INFORMATION | syscall.SYNCHRONIZE
	h, err := syscall.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return false
	}
	defer syscall.CloseHandle(h)

	// A handle to an exited process stays valid until closed; check the exit code
	const stillActive = 259
	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return true
	}
	return code == stillActive
}
