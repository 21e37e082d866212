package collectors

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/system"
)

// CapabilityProvider returns the capability names granted to the process,
// upper-cased (CAP_CHOWN, CAP_NET_RAW, ...).
type CapabilityProvider interface {
	Name() string
	Capabilities(ctx context.Context) ([]string, error)
}

// CapshProvider reads the bounding set printed by capsh --print.
type CapshProvider struct {
	Runner  system.Runner
	Timeout time.Duration
}

func (p *CapshProvider) Name() string { return "capsh" }

func (p *CapshProvider) Capabilities(ctx context.Context) ([]string, error) {
	result, err := p.Runner.Run(ctx, p.Timeout, "capsh", "--print")
	if err != nil {
		return nil, errors.Wrap(err, "capsh")
	}
	if !result.Success {
		return nil, errors.Wrap(errors.ErrCommandFailed, "capsh exited with %d", result.ExitCode)
	}
	return ParseCapsh(result.Stdout)
}

// ParseCapsh extracts capability names from capsh --print output. The
// "Bounding set" line is preferred; "Current:" is used when it is missing.
// Both the legacy "= cap_a,cap_b+eip" and the newer "cap_a,cap_b=ep" forms
// are accepted.
func ParseCapsh(output string) ([]string, error) {
	var current string
	haveCurrent := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Bounding set"):
			idx := strings.Index(line, "=")
			if idx == -1 {
				return nil, errors.Wrap(errors.ErrParseFailure, "bounding set line %q", line)
			}
			return capabilityTokens(line[idx+1:]), nil
		case strings.HasPrefix(line, "Current:"):
			current = strings.TrimPrefix(line, "Current:")
			haveCurrent = true
		}
	}

	if !haveCurrent {
		return nil, errors.Wrap(errors.ErrParseFailure, "no capability set in capsh output")
	}

	caps := capabilityTokens(current)
	if len(caps) == 0 && strings.Contains(current, "=") && strings.TrimSpace(current) != "=" {
		// "=ep" grants every capability without naming them
		return nil, errors.Wrap(errors.ErrParseFailure, "capability set %q is not enumerable", strings.TrimSpace(current))
	}
	return caps, nil
}

func capabilityTokens(list string) []string {
	caps := []string{}
	seen := make(map[string]bool)
	for _, token := range strings.Fields(strings.ReplaceAll(list, ",", " ")) {
		if idx := strings.IndexAny(token, "+-="); idx != -1 {
			token = token[:idx]
		}
		token = strings.ToUpper(token)
		if !strings.HasPrefix(token, "CAP_") || seen[token] {
			continue
		}
		seen[token] = true
		caps = append(caps, token)
	}
	return caps
}

// StaticProvider returns fixed capabilities or a fixed error.
type StaticProvider struct {
	Caps []string
	Err  error
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Capabilities(ctx context.Context) ([]string, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Caps, nil
}

// unavailableReason turns a provider error into the marker shown in the report.
func unavailableReason(provider string, err error) string {
	switch {
	case errors.Is(err, errors.ErrCommandNotFound):
		return provider + " tool required for capability check"
	case errors.Is(err, errors.ErrTimeoutExceeded):
		return provider + " timed out during capability check"
	case errors.Is(err, errors.ErrParseFailure):
		return provider + " output could not be parsed"
	default:
		return "capability check failed: " + err.Error()
	}
}
