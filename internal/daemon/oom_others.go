//go:build !linux

package daemon

// SetOOMScoreAdj is a no-op outside Linux.
func SetOOMScoreAdj(score int) error {
	return nil
}
