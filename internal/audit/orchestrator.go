package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/girste/containaudit/internal/collectors"
	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/system"
	"github.com/girste/containaudit/internal/util"
	"github.com/girste/containaudit/internal/verdict"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator runs the collectors and assembles the report
type Orchestrator struct {
	cfg        *config.Config
	runner     system.Runner
	caps       collectors.CapabilityProvider
	privileges collectors.PrivilegeProvider
	normalizer *verdict.Normalizer
	logger     *zap.Logger

	isolation *collectors.IsolationCollector
	privilege *collectors.PrivilegeCollector
	network   *collectors.NetworkCollector
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithRunner replaces the command runner used by every collector.
func WithRunner(r system.Runner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithCapabilityProvider replaces the provider selected by capabilities.source.
func WithCapabilityProvider(p collectors.CapabilityProvider) Option {
	return func(o *Orchestrator) { o.caps = p }
}

// WithPrivilegeProvider replaces the system privilege provider.
func WithPrivilegeProvider(p collectors.PrivilegeProvider) Option {
	return func(o *Orchestrator) { o.privileges = p }
}

// WithLogger sets the orchestrator logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates a new audit orchestrator
func NewOrchestrator(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		runner:     system.ExecRunner{},
		normalizer: verdict.NewNormalizer(cfg.Baseline),
		logger:     util.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.caps == nil {
		o.caps = CapabilityProvider(cfg, o.runner)
	}
	if o.privileges == nil {
		o.privileges = &collectors.SystemPrivilegeProvider{Runner: o.runner, Timeout: cfg.CommandTimeout()}
	}

	o.isolation = collectors.NewIsolationCollector(cfg, o.caps)
	o.privilege = collectors.NewPrivilegeCollector(cfg, o.privileges)
	o.network = collectors.NewNetworkCollector(cfg, o.runner)
	return o
}

// CapabilityProvider returns the provider named by capabilities.source.
func CapabilityProvider(cfg *config.Config, runner system.Runner) collectors.CapabilityProvider {
	if cfg.Capabilities.Source == config.CapabilitySourceKernel {
		return &collectors.KernelProvider{}
	}
	return &collectors.CapshProvider{Runner: runner, Timeout: cfg.CommandTimeout()}
}

// RunAudit executes the three collectors in parallel and assembles the report.
// It always returns a report; collector failures degrade to ERROR results.
func (o *Orchestrator) RunAudit(ctx context.Context) *Report {
	startTime := time.Now()

	var (
		wg        sync.WaitGroup
		isolation *collectors.IsolationFacts
		privilege *collectors.PrivilegeProfile
		network   *collectors.NetworkProfile
		failures  = make(map[string]string, 3)
		mu        sync.Mutex
	)

	run := func(name string, collect func(context.Context)) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("Collector panicked", zap.String("collector", name), zap.Any("panic", r))
				mu.Lock()
				failures[name] = fmt.Sprintf("collector failed: %v", r)
				mu.Unlock()
			}
		}()

		collectorCtx, cancel := context.WithTimeout(ctx, o.cfg.CollectorTimeout())
		defer cancel()

		start := time.Now()
		collect(collectorCtx)
		o.logger.Debug("Collector finished", zap.String("collector", name), zap.Duration("duration", time.Since(start)))
	}

	wg.Add(3)
	go run(o.isolation.Name(), func(ctx context.Context) { isolation = o.isolation.Collect(ctx) })
	go run(o.privilege.Name(), func(ctx context.Context) { privilege = o.privilege.Collect(ctx) })
	go run(o.network.Name(), func(ctx context.Context) { network = o.network.Collect(ctx) })
	wg.Wait()

	osInfo := system.GetOSInfo(ctx, o.runner)
	hostname := osInfo.Hostname
	if o.cfg.MaskData {
		hostname = util.MaskHostname(hostname)
		osInfo.Hostname = hostname
		maskNetwork(network)
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Timestamp: startTime.UTC(),
		Hostname:  hostname,
		OS:        osInfo,
		Isolation: isolation,
		Privilege: privilege,
		Network:   network,
	}
	report.Sections = o.assemble(isolation, privilege, network, failures)
	report.DurationMs = time.Since(startTime).Milliseconds()

	o.logger.Info("Audit completed",
		zap.String("run_id", report.RunID),
		zap.Duration("duration", time.Since(startTime)))

	return report
}

// assemble builds the sections in report order. A nil profile yields a
// single ERROR result for its collector.
func (o *Orchestrator) assemble(iso *collectors.IsolationFacts, priv *collectors.PrivilegeProfile,
	net *collectors.NetworkProfile, failures map[string]string) []Section {

	sections := make([]Section, 0, 3)

	if iso != nil {
		sections = append(sections, o.section(SectionIsolation, iso.Observations()))
	} else {
		sections = append(sections, o.failed(SectionIsolation, "isolation", failures))
	}

	if priv != nil {
		sections = append(sections, o.section(SectionPrivilege, priv.Observations()))
	} else {
		sections = append(sections, o.failed(SectionPrivilege, "privilege", failures))
	}

	if net != nil {
		sections = append(sections, o.section(SectionNetwork, net.Observations()))
	} else {
		sections = append(sections, o.failed(SectionNetwork, "network", failures))
	}

	return sections
}

func (o *Orchestrator) section(name string, obs []collectors.Observation) Section {
	results := make([]verdict.CheckResult, 0, len(obs))
	for _, ob := range obs {
		results = append(results, o.normalizer.Result(ob.Name, ob.Observed, ob.Detail))
	}
	return Section{Name: name, Results: results}
}

func (o *Orchestrator) failed(section, collector string, failures map[string]string) Section {
	reason := failures[collector]
	if reason == "" {
		reason = "collector returned no data"
	}
	return o.section(section, []collectors.Observation{
		{Name: collector, Observed: verdict.Unavailable{Reason: reason}},
	})
}

// maskNetwork hides addresses that identify the deployment
func maskNetwork(p *collectors.NetworkProfile) {
	if p == nil {
		return
	}
	if p.DNSServer != "" {
		p.DNSServer = util.MaskIP(p.DNSServer)
	}
	for i := range p.Interfaces {
		if p.Interfaces[i].IPv4 != "" {
			p.Interfaces[i].IPv4 = util.MaskIP(p.Interfaces[i].IPv4)
		}
	}
}
