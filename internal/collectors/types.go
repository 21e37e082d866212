// Package collectors gathers the raw isolation, privilege and network facts
// of the running container. Collectors never fail: a fact that cannot be
// gathered degrades to its documented unavailable or empty value.
package collectors

import (
	"os"
	"path/filepath"
	"sort"
)

// Observation is a raw fact before normalization.
type Observation struct {
	Name     string
	Observed interface{}
	Detail   string
}

// Presence records whether one baseline name was found.
type Presence struct {
	Name    string `json:"name" yaml:"name"`
	Present bool   `json:"present" yaml:"present"`
}

// PresenceSet maps baseline names to presence, in baseline order.
// It backs the namespace, cgroup and capability sets.
type PresenceSet []Presence

// Has reports whether name is in the set and present.
func (s PresenceSet) Has(name string) bool {
	for _, p := range s {
		if p.Name == name {
			return p.Present
		}
	}
	return false
}

func newPresenceSet(baseline []string, found map[string]bool) PresenceSet {
	set := make(PresenceSet, 0, len(baseline))
	for _, name := range baseline {
		set = append(set, Presence{Name: name, Present: found[name]})
	}
	return set
}

// IsolationFacts holds the namespace, cgroup and capability sets.
type IsolationFacts struct {
	Namespaces              PresenceSet `json:"namespaces" yaml:"namespaces"`
	Cgroups                 PresenceSet `json:"cgroups" yaml:"cgroups"`
	Capabilities            PresenceSet `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	ExtraCapabilities       []string    `json:"extra_capabilities,omitempty" yaml:"extraCapabilities,omitempty"`
	CapabilitiesUnavailable string      `json:"capabilities_unavailable,omitempty" yaml:"capabilitiesUnavailable,omitempty"`
}

// PrivilegeProfile describes the identity and privilege grants of the process.
type PrivilegeProfile struct {
	UID             int      `json:"uid" yaml:"uid"`
	GID             int      `json:"gid" yaml:"gid"`
	UserName        string   `json:"user_name,omitempty" yaml:"userName,omitempty"`
	Groups          []string `json:"groups" yaml:"groups"`
	GroupsError     string   `json:"groups_error,omitempty" yaml:"groupsError,omitempty"`
	InSudoGroup     bool     `json:"in_sudo_group" yaml:"inSudoGroup"`
	PrivilegedGroup string   `json:"privileged_group,omitempty" yaml:"privilegedGroup,omitempty"`
	SudoGrants      []string `json:"sudo_grants" yaml:"sudoGrants"`
	SudoQueryError  string   `json:"sudo_query_error,omitempty" yaml:"sudoQueryError,omitempty"`
}

// Reachability is the outcome of the internet probe
type Reachability string

const (
	Available   Reachability = "Available"
	Unreachable Reachability = "Unavailable"
	Unknown     Reachability = "Unknown"
)

// NoIPv4 marks an interface without an IPv4 address
const NoIPv4 = "No IPv4 address"

// Interface is one network interface and its IPv4 address, if any.
type Interface struct {
	Name string `json:"name" yaml:"name"`
	IPv4 string `json:"ipv4,omitempty" yaml:"ipv4,omitempty"`
}

// NetNamespace identifies the network namespace of the process.
type NetNamespace struct {
	ID             string `json:"id,omitempty" yaml:"id,omitempty"`
	SharedWithInit bool   `json:"shared_with_init" yaml:"sharedWithInit"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NetworkProfile describes connectivity, resolver, addressing and exposure.
type NetworkProfile struct {
	Internet        Reachability `json:"internet" yaml:"internet"`
	DNSServer       string       `json:"dns_server,omitempty" yaml:"dnsServer,omitempty"`
	Interfaces      []Interface  `json:"interfaces" yaml:"interfaces"`
	InterfacesError string       `json:"interfaces_error,omitempty" yaml:"interfacesError,omitempty"`
	OpenPorts       []int        `json:"open_ports" yaml:"openPorts"`
	ScanRange       string       `json:"scan_range" yaml:"scanRange"`
	ScanComplete    bool         `json:"scan_complete" yaml:"scanComplete"`
	Namespace       NetNamespace `json:"namespace" yaml:"namespace"`
}

// listEntries returns the entry names of dir. With dirsOnly, only
// directories (or symlinks to directories) are returned.
func listEntries(dir string, dirsOnly bool) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if dirsOnly && !entry.IsDir() {
			// cgroup v1 exposes combined controllers through symlinks (cpu -> cpu,cpuacct)
			info, err := os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil || !info.IsDir() {
				continue
			}
		}
		names[entry.Name()] = true
	}
	return names, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
