//go:build !unix

package watcher

import "syscall"

func detached() *syscall.SysProcAttr {
	return nil
}
