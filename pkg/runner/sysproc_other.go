//go:build !windows

package runner

import "syscall"

// sysProcAttr puts the child in its own process group so terminal signals
// aimed at the UI do not reach it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
