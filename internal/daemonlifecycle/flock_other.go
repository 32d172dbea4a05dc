//go:build !unix

package daemonlifecycle

import "os"

// flockExclusive has no portable equivalent outside unix; Start's check for
// a live PID in the pidfile is the sole guard on these platforms.
func flockExclusive(f *os.File) error {
	return nil
}
