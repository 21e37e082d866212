package util

import (
	"strings"
)

// MaskIP masks an IP address for privacy
func MaskIP(ip string) string {
	if ip == "" {
		return "***"
	}

	// IPv6
	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		return parts[0] + ":***"
	}

	// IPv4
	parts := strings.Split(ip, ".")
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1] + ".***.***"
	}

	return "***"
}

// MaskHostname masks a hostname for privacy. Container hostnames are
// usually the short container ID, which identifies the workload.
func MaskHostname(hostname string) string {
	switch {
	case len(hostname) == 0:
		return "ctr-****"
	case len(hostname) == 1:
		return "ctr-" + hostname + "***"
	default:
		return "ctr-" + hostname[:2] + "**"
	}
}
