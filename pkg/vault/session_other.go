//go:build !unix && !windows

package vault

import "errors"

var errMlockUnsupported = errors.New("vault: memory locking not supported on this platform")

func lockMemory([]byte) error   { return errMlockUnsupported }
func unlockMemory([]byte) error { return nil }
