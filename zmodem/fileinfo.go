package zmodem

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// buildFileMetadata renders a ZFILE data subpacket's payload: the
// filename, a null terminator, then "size mtime mode 0 filesleft
// totalleft" (mode in octal, matching the original's mode&0777).
func buildFileMetadata(info FileInfo) []byte {
	var b strings.Builder
	b.WriteString(info.Name)
	b.WriteByte(0)
	fmt.Fprintf(&b, "%d %d %o 0 %d %d",
		info.Size, info.ModTime.Unix(), info.Mode&0o777, info.FilesLeft, info.BytesLeft)
	return []byte(b.String())
}

// parseFileMetadata reverses buildFileMetadata.
func parseFileMetadata(data []byte) (FileInfo, error) {
	nullPos := -1
	for i, b := range data {
		if b == 0 {
			nullPos = i
			break
		}
	}
	if nullPos < 0 {
		return FileInfo{}, NewError(ErrInvalidFrame, "no null terminator in file header")
	}

	info := FileInfo{Name: string(data[:nullPos]), Mode: 0o644}

	rest := string(data[nullPos+1:])
	fields := strings.Fields(rest)
	if len(fields) >= 1 {
		fmt.Sscanf(fields[0], "%d", &info.Size)
	}
	if len(fields) >= 2 {
		var mtime int64
		fmt.Sscanf(fields[1], "%d", &mtime)
		info.ModTime = time.Unix(mtime, 0)
	}
	if len(fields) >= 3 {
		var modeInt uint
		fmt.Sscanf(fields[2], "%o", &modeInt)
		info.Mode = os.FileMode(modeInt)
	}
	if len(fields) >= 5 {
		fmt.Sscanf(fields[4], "%d", &info.FilesLeft)
	}
	if len(fields) >= 6 {
		fmt.Sscanf(fields[5], "%d", &info.BytesLeft)
	}
	return info, nil
}
