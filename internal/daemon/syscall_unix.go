//go:build !windows

package daemon

import "syscall"

// detachedAttr puts the re-exec'd daemon child in its own process
// group, per spec §4.9 step 2 ("re-exec self ... under a new process
// group"), so a TERM sent to the parent's group doesn't also reach it.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

func terminateSignal() syscall.Signal {
	return syscall.SIGTERM
}
