package imaging

import "os"

// NeedsUpdate reports whether dst must be regenerated from src. It returns
// true when either file cannot be stat'ed or when dst is strictly older than
// src. Equal modification times count as fresh.
func NeedsUpdate(src, dst string) bool {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return true
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return true
	}
	return dstInfo.ModTime().Before(srcInfo.ModTime())
}
