//go:build windows

package platform

import (
	"golang.org/x/sys/windows"
)

// isElevated reports whether the process token carries administrative
// rights. Elevation acquisition is out of scope; we only detect.
func isElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
