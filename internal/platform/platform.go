// ===== internal/platform/platform.go =====
package platform

import (
	"runtime"
)

// Info describes the host capabilities relevant to tweak operations. It is
// detected once and passed explicitly into components so that nothing in the
// core reads ambient process-wide state.
type Info struct {
	// Windows is true when the netsh/powercfg/ping utilities are expected
	// to be available.
	Windows bool

	// Elevated is true when the process holds administrative rights.
	// Mutating operations require it; read-only probes do not.
	Elevated bool
}

// Detect inspects the current process environment.
func Detect() Info {
	return Info{
		Windows:  runtime.GOOS == "windows",
		Elevated: isElevated(),
	}
}
