//go:build linux || darwin || freebsd || netbsd || openbsd

package secmem

import "golang.org/x/sys/unix"

const lockSupported = true

func lockPages(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

func unlockPages(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
