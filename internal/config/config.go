package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/girste/containaudit/internal/errors"
	"gopkg.in/yaml.v3"
)

// Capability sources
const (
	CapabilitySourceCapsh  = "capsh"
	CapabilitySourceKernel = "kernel"
)

type Config struct {
	Sentinels    []string           `yaml:"sentinels"`
	MaskData     bool               `yaml:"maskData"`
	Baseline     Baseline           `yaml:"baseline"`
	Paths        PathConfig         `yaml:"paths"`
	Network      NetworkConfig      `yaml:"network"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
}

// Baseline is the static set of names each isolation and privilege check
// compares observed facts against.
type Baseline struct {
	Namespaces       []string `yaml:"namespaces"`
	Cgroups          []string `yaml:"cgroups"`
	Capabilities     []string `yaml:"capabilities"`
	PrivilegedGroups []string `yaml:"privilegedGroups"`
}

// PathConfig holds the kernel and system paths the collectors read.
type PathConfig struct {
	NamespaceDir string `yaml:"namespaceDir"`
	CgroupRoot   string `yaml:"cgroupRoot"`
	ResolvConf   string `yaml:"resolvConf"`
	InterfaceDir string `yaml:"interfaceDir"`
	InitNetNS    string `yaml:"initNetNS"`
}

type NetworkConfig struct {
	ProbeAddress    string `yaml:"probeAddress"`
	ProbeTimeout    int    `yaml:"probeTimeoutSeconds"`
	ScanHost        string `yaml:"scanHost"`
	PortRangeStart  int    `yaml:"portRangeStart"`
	PortRangeEnd    int    `yaml:"portRangeEnd"`
	PortTimeoutMs   int    `yaml:"portTimeoutMs"`
	ScanConcurrency int    `yaml:"scanConcurrency"`
}

type CapabilitiesConfig struct {
	Source string `yaml:"source"` // capsh, kernel
}

// TimeoutConfig defines configurable timeout durations in seconds
type TimeoutConfig struct {
	Command   int `yaml:"command"`   // Each external tool invocation (default: 5s)
	Collector int `yaml:"collector"` // Whole collector run (default: 120s)
}

func Default() *Config {
	return &Config{
		Sentinels: []string{"/.dockerenv"},
		MaskData:  false,
		Baseline: Baseline{
			Namespaces: []string{"cgroup", "ipc", "mnt", "net", "pid", "user", "uts"},
			Cgroups: []string{
				"cpu", "cpuacct", "blkio", "memory", "devices", "freezer",
				"net_cls", "perf_event", "net_prio", "hugetlb", "pids",
			},
			Capabilities: []string{
				"CAP_CHOWN", "CAP_DAC_OVERRIDE", "CAP_FSETID", "CAP_FOWNER",
				"CAP_MKNOD", "CAP_NET_RAW", "CAP_SETGID", "CAP_SETUID",
				"CAP_SETPCAP", "CAP_NET_BIND_SERVICE", "CAP_SYS_CHROOT",
				"CAP_KILL", "CAP_AUDIT_WRITE",
			},
			PrivilegedGroups: []string{"sudo", "wheel", "admin"},
		},
		Paths: PathConfig{
			NamespaceDir: "/proc/self/ns",
			CgroupRoot:   "/sys/fs/cgroup",
			ResolvConf:   "/etc/resolv.conf",
			InterfaceDir: "/sys/class/net",
			InitNetNS:    "/proc/1/ns/net",
		},
		Network: NetworkConfig{
			ProbeAddress:    "8.8.8.8",
			ProbeTimeout:    2,
			ScanHost:        "127.0.0.1",
			PortRangeStart:  1,
			PortRangeEnd:    1023,
			PortTimeoutMs:   1000,
			ScanConcurrency: 64,
		},
		Capabilities: CapabilitiesConfig{
			Source: CapabilitySourceCapsh,
		},
		Timeouts: TimeoutConfig{
			Command:   5,
			Collector: 120,
		},
	}
}

// SearchPaths returns the config file locations in priority order.
func SearchPaths() []string {
	paths := []string{}

	// 1. Environment variable (highest priority - for mounted configs)
	if configDir := os.Getenv("CONTAINAUDIT_CONFIG_DIR"); configDir != "" {
		paths = append(paths,
			filepath.Join(configDir, ".containaudit.yaml"),
			filepath.Join(configDir, "config.yaml"),
		)
	}

	// 2. Current directory
	paths = append(paths, ".containaudit.yaml", ".containaudit.yml")

	// 3. Home directory
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths,
			filepath.Join(home, ".containaudit.yaml"),
			filepath.Join(home, ".containaudit", "config.yaml"),
		)
	}

	// 4. System-wide config
	return append(paths, "/etc/containaudit/config.yaml")
}

// Load returns the first config found on the search path, or the defaults.
func Load() (*Config, error) {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return Default(), nil
}

// LoadFile reads a YAML config file over the defaults and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config at %s: %w", path, errors.Wrap(errors.ErrInvalidConfig, "%v", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks config for errors
func (c *Config) Validate() error {
	if len(c.Sentinels) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "at least one sentinel path is required")
	}

	if c.Capabilities.Source != CapabilitySourceCapsh && c.Capabilities.Source != CapabilitySourceKernel {
		return errors.Wrap(errors.ErrInvalidConfig, "capabilities.source must be %q or %q, got %q",
			CapabilitySourceCapsh, CapabilitySourceKernel, c.Capabilities.Source)
	}

	n := c.Network
	if n.PortRangeStart < 1 || n.PortRangeEnd > 65535 || n.PortRangeStart > n.PortRangeEnd {
		return errors.Wrap(errors.ErrInvalidConfig, "port range %d-%d must lie within 1-65535", n.PortRangeStart, n.PortRangeEnd)
	}
	if n.PortTimeoutMs <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "portTimeoutMs must be positive, got %d", n.PortTimeoutMs)
	}
	if n.ScanConcurrency < 1 || n.ScanConcurrency > 1024 {
		return errors.Wrap(errors.ErrInvalidConfig, "scanConcurrency must be between 1 and 1024, got %d", n.ScanConcurrency)
	}
	if n.ProbeTimeout < 1 {
		return errors.Wrap(errors.ErrInvalidConfig, "probeTimeoutSeconds must be at least 1, got %d", n.ProbeTimeout)
	}
	if n.ScanHost == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "scanHost is required")
	}

	if c.Timeouts.Command < 1 || c.Timeouts.Collector < 1 {
		return errors.Wrap(errors.ErrInvalidConfig, "timeouts must be at least 1 second")
	}

	return nil
}

// CommandTimeout is the bound applied to each external tool invocation.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Timeouts.Command) * time.Second
}

// CollectorTimeout is the bound applied to a whole collector run.
func (c *Config) CollectorTimeout() time.Duration {
	return time.Duration(c.Timeouts.Collector) * time.Second
}

// PortTimeout is the connect timeout of a single port probe.
func (c *Config) PortTimeout() time.Duration {
	return time.Duration(c.Network.PortTimeoutMs) * time.Millisecond
}

// ProbeTimeout is the reachability probe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Network.ProbeTimeout) * time.Second
}
