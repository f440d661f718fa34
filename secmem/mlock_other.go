//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package secmem

import "errors"

const lockSupported = false

var errLockUnsupported = errors.New("secmem: page locking not supported on this platform")

func lockPages(b []byte) error   { return errLockUnsupported }
func unlockPages(b []byte) error { return nil }
