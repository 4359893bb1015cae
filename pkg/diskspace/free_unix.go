//go:build unix

package diskspace

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Free returns the number of bytes available to unprivileged users on the filesystem holding path
func Free(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	// field types differ between platforms
	return int64(st.Bavail) * int64(st.Bsize), nil //nolint:gosec,unconvert
}
