//go:build linux

package endpoint

import (
	"os"

	"golang.org/x/sys/unix"
)

func onSysfs(f *os.File) bool {
	var st unix.Statfs_t
	if err := unix.Fstatfs(int(f.Fd()), &st); err != nil {
		return false
	}
	return st.Type == unix.SYSFS_MAGIC
}
