//go:build !unix

package daemonlifecycle

import "syscall"

func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}
