//go:build unix

package clientconfig

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive blocks until an exclusive flock on f is held.
func lockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func unlockFile(f *os.File) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
