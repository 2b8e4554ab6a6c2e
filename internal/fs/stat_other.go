//go:build !unix

package fs

import (
	"io/fs"
	"time"
)

// AccessTime is not available on this platform.
func AccessTime(info fs.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
