package quarantine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pegasus/internal/fileutil"
)

// ErrMove reports that a file could not be relocated by rename or by copy
// and delete. The source is left in place.
var ErrMove = errors.New("quarantine move failed")

// stampLayout plus a three digit millisecond suffix gives yyyyMMdd_HHmmsszzz.
const stampLayout = "20060102_150405"

func collisionStamp(now time.Time) string {
	now = now.UTC()
	return now.Format(stampLayout) + fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
}

// uniqueName returns a file name inside dir that no entry currently uses:
// base itself, else base.<stamp>, else base.<stamp>-N.
func uniqueName(dir, base string, now time.Time) string {
	if !fileutil.Exists(filepath.Join(dir, base)) {
		return base
	}
	stamped := base + "." + collisionStamp(now)
	if !fileutil.Exists(filepath.Join(dir, stamped)) {
		return stamped
	}
	for n := 1; ; n++ {
		candidate := stamped + "-" + strconv.Itoa(n)
		if !fileutil.Exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
}

// moveFile relocates src to dst. It tries a rename first and falls back to a
// verified copy followed by removal of the source. When the source cannot be
// removed the copy is deleted again so only one live copy remains.
func moveFile(src, dst string) (crossDevice bool, err error) {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return false, nil
	}
	crossDevice = fileutil.IsCrossDevice(renameErr)

	if err := fileutil.CopyFilePreserveMode(src, dst); err != nil {
		return crossDevice, fmt.Errorf("%w: copy %s: %w (rename: %v)", ErrMove, src, err, renameErr)
	}
	if err := os.Remove(src); err != nil {
		if cleanupErr := os.Remove(dst); cleanupErr != nil {
			return crossDevice, fmt.Errorf("%w: remove source %s: %w (copy cleanup: %v)", ErrMove, src, err, cleanupErr)
		}
		return crossDevice, fmt.Errorf("%w: remove source %s: %w", ErrMove, src, err)
	}
	return crossDevice, nil
}
