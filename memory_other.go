//go:build !linux

package mutprox

import "errors"

// FreeMemory is only implemented on Linux; elsewhere the engine falls back
// to in-memory estimation.
func (SystemMemory) FreeMemory() (uint64, error) {
	return 0, errors.New("mutprox: free memory probe not supported on this platform")
}
