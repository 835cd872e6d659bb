//go:build unix

package vault

import "golang.org/x/sys/unix"

// lockMemory pins b in RAM so the key is never written to swap.
// Usually fails without CAP_IPC_LOCK or under a low RLIMIT_MEMLOCK.
func lockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

func unlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
