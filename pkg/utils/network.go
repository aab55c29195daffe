// ===== pkg/utils/network.go =====
package utils

import (
	"net"
	"regexp"
)

var (
	ipv4Pattern = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	guidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// IsIPv4 checks whether s is a valid dotted-quad IPv4 address
func IsIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// FindIPv4 extracts all dotted-quad IPv4 tokens from text in output order,
// dropping tokens that do not parse as real addresses
func FindIPv4(text string) []string {
	var addrs []string
	for _, tok := range ipv4Pattern.FindAllString(text, -1) {
		if IsIPv4(tok) {
			addrs = append(addrs, tok)
		}
	}
	return addrs
}

// FindGUID returns the first GUID-shaped token (8-4-4-4-12 hex groups) in
// text, or "" when none is present
func FindGUID(text string) string {
	return guidPattern.FindString(text)
}
