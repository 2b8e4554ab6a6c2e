//go:build unix

package fs

import (
	"io/fs"
	"syscall"
	"time"
)

// AccessTime returns the last access time recorded in info, if the platform exposes it.
func AccessTime(info fs.FileInfo) (time.Time, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(stat.Atim.Sec), int64(stat.Atim.Nsec)), true
}
