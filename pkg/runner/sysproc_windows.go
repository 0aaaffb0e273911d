//go:build windows

package runner

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// sysProcAttr keeps the child from opening a console window.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
