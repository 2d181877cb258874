//go:build !unix

package lockfile

import "os"

// FlockExclusiveNonBlocking is a no-op where flock is unavailable; callers
// fall back to unlocked read-modify-write.
func FlockExclusiveNonBlocking(f *os.File) error {
	return nil
}

// FlockUnlock is a no-op where flock is unavailable.
func FlockUnlock(f *os.File) error {
	return nil
}
