//go:build !windows

package config

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// VerifyPermissions cross-checks that config.toml is owner-only (0600) by
// statting it directly through golang.org/x/sys/unix, rather than trusting
// the return value of the os.WriteFile/os.Chmod call that set the mode.
// Remote endpoints carry bearer API keys in plaintext, so a config.toml
// readable by other local accounts is a credential leak.
func (c *Configer) VerifyPermissions() error {
	var stat unix.Stat_t
	if err := unix.Stat(c.targetPath, &stat); err != nil {
		if err == unix.ENOENT {
			return nil
		}
		return fmt.Errorf("statting config: %w", err)
	}

	if mode := stat.Mode & 0o777; mode != 0o600 {
		return fmt.Errorf("config.toml has mode %#o, expected 0600: chmod it before storing endpoint credentials", mode)
	}
	return nil
}
