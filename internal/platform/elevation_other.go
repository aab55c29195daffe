//go:build !windows

package platform

// isElevated always reports false off Windows; the tweak utilities are
// unavailable there and every mutating operation bails out earlier anyway.
func isElevated() bool {
	return false
}
