//go:build windows

package config

// VerifyPermissions is a no-op on Windows: ACL-based permission checks are
// out of scope, and the POSIX mode bits that x/sys/unix.Stat reports on
// other platforms don't apply here.
func (c *Configer) VerifyPermissions() error {
	return nil
}
