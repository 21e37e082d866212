package collectors

import (
	"context"
	"strings"

	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/log"
	"github.com/girste/containaudit/internal/verdict"
)

// IsolationCollector checks namespaces, cgroup controllers and capabilities
// against the baseline.
type IsolationCollector struct {
	NamespaceDir string
	CgroupRoot   string
	Baseline     config.Baseline
	Caps         CapabilityProvider
}

// NewIsolationCollector creates an isolation collector from the config
func NewIsolationCollector(cfg *config.Config, caps CapabilityProvider) *IsolationCollector {
	return &IsolationCollector{
		NamespaceDir: cfg.Paths.NamespaceDir,
		CgroupRoot:   cfg.Paths.CgroupRoot,
		Baseline:     cfg.Baseline,
		Caps:         caps,
	}
}

func (c *IsolationCollector) Name() string { return "isolation" }

// Collect gathers the three isolation sets. A missing directory leaves every
// entry of that set not activated; a capability failure only marks the
// capability set unavailable.
func (c *IsolationCollector) Collect(ctx context.Context) *IsolationFacts {
	facts := &IsolationFacts{}

	namespaces, err := listEntries(c.NamespaceDir, false)
	if err != nil {
		log.Degraded("namespaces", err)
	}
	facts.Namespaces = newPresenceSet(c.Baseline.Namespaces, namespaces)

	cgroups, err := listEntries(c.CgroupRoot, true)
	if err != nil {
		log.Degraded("cgroups", err)
	}
	facts.Cgroups = newPresenceSet(c.Baseline.Cgroups, cgroups)

	granted, err := c.Caps.Capabilities(ctx)
	if err != nil {
		log.Degraded("capabilities", err)
		facts.CapabilitiesUnavailable = unavailableReason(c.Caps.Name(), err)
		return facts
	}

	found := make(map[string]bool, len(granted))
	for _, name := range granted {
		found[strings.ToUpper(name)] = true
	}

	baseline := make([]string, 0, len(c.Baseline.Capabilities))
	inBaseline := make(map[string]bool, len(c.Baseline.Capabilities))
	for _, name := range c.Baseline.Capabilities {
		name = strings.ToUpper(name)
		baseline = append(baseline, name)
		inBaseline[name] = true
	}
	facts.Capabilities = newPresenceSet(baseline, found)

	for _, name := range sortedKeys(found) {
		if !inBaseline[name] {
			facts.ExtraCapabilities = append(facts.ExtraCapabilities, name)
		}
	}

	return facts
}

// Observations returns the isolation facts as raw check values
func (f *IsolationFacts) Observations() []Observation {
	obs := make([]Observation, 0, len(f.Namespaces)+len(f.Cgroups)+len(f.Capabilities)+1)

	for _, p := range f.Namespaces {
		obs = append(obs, Observation{Name: verdict.PrefixNamespace + p.Name, Observed: p.Present})
	}
	for _, p := range f.Cgroups {
		obs = append(obs, Observation{Name: verdict.PrefixCgroup + p.Name, Observed: p.Present})
	}

	if f.CapabilitiesUnavailable != "" {
		return append(obs, Observation{
			Name:     verdict.CheckCapabilities,
			Observed: verdict.Unavailable{Reason: f.CapabilitiesUnavailable},
		})
	}

	for _, p := range f.Capabilities {
		obs = append(obs, Observation{Name: verdict.PrefixCapability + p.Name, Observed: p.Present})
	}
	if len(f.ExtraCapabilities) > 0 {
		obs = append(obs, Observation{
			Name:     verdict.CheckExtraCaps,
			Observed: f.ExtraCapabilities,
			Detail:   "granted outside baseline",
		})
	}

	return obs
}
