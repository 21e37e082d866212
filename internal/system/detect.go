package system

import (
	"context"
	"os"
	"runtime"
	"strings"
)

// OSInfo contains information about the container image and kernel
type OSInfo struct {
	System   string `json:"system" yaml:"system"`
	Distro   string `json:"distro" yaml:"distro"`
	Kernel   string `json:"kernel" yaml:"kernel"`
	Hostname string `json:"hostname" yaml:"hostname"`
}

// GetOSInfo returns OS information as seen from inside the container
func GetOSInfo(ctx context.Context, runner Runner) *OSInfo {
	info := &OSInfo{
		System: runtime.GOOS,
		Distro: GetDistro("/etc/os-release"),
	}

	if result, err := runner.Run(ctx, TimeoutShort, "uname", "-r"); err == nil && result.Success {
		info.Kernel = strings.TrimSpace(result.Stdout)
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	return info
}

// GetDistro reads the image distribution ID from an os-release file
func GetDistro(osRelease string) string {
	data, err := os.ReadFile(osRelease)
	if err != nil {
		return "unknown"
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "ID=") {
			return normalizeDistro(strings.Trim(strings.TrimPrefix(line, "ID="), "\""))
		}
	}
	return "unknown"
}

func normalizeDistro(distro string) string {
	distro = strings.ToLower(distro)
	switch {
	case strings.Contains(distro, "ubuntu"):
		return "ubuntu"
	case strings.Contains(distro, "debian"):
		return "debian"
	case strings.Contains(distro, "alpine"):
		return "alpine"
	case strings.Contains(distro, "rhel"), strings.Contains(distro, "redhat"):
		return "rhel"
	case strings.Contains(distro, "fedora"):
		return "fedora"
	default:
		return distro
	}
}
