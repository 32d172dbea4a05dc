//go:build unix

package daemonlifecycle

import "syscall"

// detachedAttr starts the child in its own session so it survives the
// parent CLI invocation exiting.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
