// Package verdict maps observed audit facts to OK/WARN/ERROR verdicts
// against the static baseline.
package verdict

import (
	"strings"

	"github.com/girste/containaudit/internal/config"
)

// Verdict is the classification of a single check
type Verdict string

const (
	OK    Verdict = "OK"
	Warn  Verdict = "WARN"
	Error Verdict = "ERROR" // the fact could not be observed
	Info  Verdict = "INFO"  // informational, carries no judgement
)

// Check names and prefixes
const (
	PrefixNamespace  = "namespace."
	PrefixCgroup     = "cgroup."
	PrefixCapability = "capability."
	PrefixInterface  = "network.interface."

	CheckCapabilities = "capabilities"
	CheckExtraCaps    = "capabilities.extra"
	CheckInterfaces   = "network.interfaces"
	CheckUID          = "privilege.uid"
	CheckGID          = "privilege.gid"
	CheckSudoGroup    = "privilege.sudo_group"
	CheckSudoGrants   = "privilege.sudo_grants"
	CheckInternet     = "network.internet"
	CheckDNS          = "network.dns"
	CheckOpenPorts    = "network.open_ports"
	CheckNetNS        = "network.netns"
)

// Unavailable is the observed value of a fact that could not be gathered.
type Unavailable struct {
	Reason string `json:"unavailable" yaml:"unavailable"`
}

func (u Unavailable) String() string {
	return u.Reason
}

// CheckResult is one normalized check. It is built by Normalizer.Result
// and not modified afterwards.
type CheckResult struct {
	Name     string      `json:"name" yaml:"name"`
	Observed interface{} `json:"observed" yaml:"observed"`
	Verdict  Verdict     `json:"verdict" yaml:"verdict"`
	Detail   string      `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Normalizer classifies observed values. It holds only the baseline, which
// is copied at construction, so Normalize has no side effects.
type Normalizer struct {
	namespaces   map[string]bool
	cgroups      map[string]bool
	capabilities map[string]bool
}

// NewNormalizer builds a normalizer for the given baseline
func NewNormalizer(b config.Baseline) *Normalizer {
	return &Normalizer{
		namespaces:   toSet(b.Namespaces, false),
		cgroups:      toSet(b.Cgroups, false),
		capabilities: toSet(b.Capabilities, true),
	}
}

func toSet(names []string, upper bool) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		if upper {
			name = strings.ToUpper(name)
		}
		set[name] = true
	}
	return set
}

// Normalize returns the verdict for a check name and its observed value.
func (n *Normalizer) Normalize(name string, observed interface{}) Verdict {
	if _, ok := observed.(Unavailable); ok {
		return Error
	}

	switch {
	case strings.HasPrefix(name, PrefixNamespace):
		return presence(n.namespaces, strings.TrimPrefix(name, PrefixNamespace), observed)
	case strings.HasPrefix(name, PrefixCgroup):
		return presence(n.cgroups, strings.TrimPrefix(name, PrefixCgroup), observed)
	case strings.HasPrefix(name, PrefixCapability):
		return presence(n.capabilities, strings.ToUpper(strings.TrimPrefix(name, PrefixCapability)), observed)
	case name == CheckSudoGroup:
		member, ok := observed.(bool)
		if !ok {
			return Error
		}
		return warnIf(member)
	case name == CheckSudoGrants:
		grants, ok := observed.([]string)
		if !ok {
			return Error
		}
		return warnIf(len(grants) > 0)
	case name == CheckOpenPorts:
		ports, ok := observed.([]int)
		if !ok {
			return Error
		}
		return warnIf(len(ports) > 0)
	default:
		return Info
	}
}

// Result builds an immutable CheckResult
func (n *Normalizer) Result(name string, observed interface{}, detail string) CheckResult {
	return CheckResult{
		Name:     name,
		Observed: observed,
		Verdict:  n.Normalize(name, observed),
		Detail:   detail,
	}
}

// presence is the isolation rule: activated is OK, absent is WARN.
func presence(baseline map[string]bool, name string, observed interface{}) Verdict {
	if !baseline[name] {
		return Info
	}
	activated, ok := observed.(bool)
	if !ok {
		return Error
	}
	if activated {
		return OK
	}
	return Warn
}

func warnIf(cond bool) Verdict {
	if cond {
		return Warn
	}
	return OK
}
